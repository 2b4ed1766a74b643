package endpoint

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/uno-framework/uno/vars"
	"github.com/vmihailenco/msgpack/v5"
)

const msgpackContentType = "application/msgpack"

// responseContentType negotiates the reply codec: the rt form value wins,
// then Accept, json by default.
func responseContentType(r *http.Request) string {
	if rt := r.FormValue("rt"); rt != "" {
		return rt
	}
	if strings.Contains(r.Header.Get("Accept"), msgpackContentType) {
		return msgpackContentType
	}
	return "application/json"
}

// decodeBody reads the request body into a weakly typed map, json or
// msgpack by Content-Type.
func decodeBody(r *http.Request, out interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if strings.Contains(r.Header.Get("Content-Type"), msgpackContentType) {
		return msgpack.Unmarshal(body, out)
	}
	return json.Unmarshal(body, out)
}

func respond(w http.ResponseWriter, r *http.Request, status int, result interface{}) {
	contentType := responseContentType(r)
	var (
		bs  []byte
		err error
	)
	if contentType == msgpackContentType {
		bs, err = msgpack.Marshal(result)
	} else {
		bs, err = json.Marshal(result)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(bs)
}

func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case vars.IsNotFound(err):
		status = http.StatusNotFound
	case vars.IsConflict(err):
		status = http.StatusConflict
	case errors.Is(err, vars.ErrNotPermitted):
		status = http.StatusForbidden
	case errors.Is(err, vars.ErrTokenInvalid), errors.Is(err, vars.ErrTokenRevoked),
		errors.Is(err, vars.ErrBadCredentials), errors.Is(err, vars.ErrTotpCodeRejected),
		errors.Is(err, vars.ErrRecoveryRejected):
		status = http.StatusUnauthorized
	case errors.Is(err, vars.ErrInvalidField):
		status = http.StatusBadRequest
	}
	respond(w, r, status, map[string]string{"error": err.Error()})
}
