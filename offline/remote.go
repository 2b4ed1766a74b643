package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/uno-framework/uno/vars"
)

// HTTPRemote talks to the /sync endpoints the endpoint factory mounts.
type HTTPRemote struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPRemote(baseURL, token string) *HTTPRemote {
	return &HTTPRemote{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type pushRequest struct {
	Changes []Change `json:"changes"`
}

type pullResponse struct {
	Changes []Change `json:"changes"`
	Next    string   `json:"next"`
}

func (r *HTTPRemote) Push(ctx context.Context, changes []Change) ([]string, error) {
	body, err := json.Marshal(pushRequest{Changes: changes})
	if err != nil {
		return nil, vars.Wrap(vars.CodeOffline, "push", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/sync/push", bytes.NewReader(body))
	if err != nil {
		return nil, vars.Wrap(vars.CodeOffline, "push", err)
	}
	req.Header.Set("Content-Type", "application/json")
	var result PushResult
	if err = r.do(req, &result); err != nil {
		return nil, err
	}
	return result.Acked, nil
}

func (r *HTTPRemote) Pull(ctx context.Context, cursor string, limit int) ([]Change, string, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	q.Set("limit", strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/sync/pull?"+q.Encode(), nil)
	if err != nil {
		return nil, cursor, vars.Wrap(vars.CodeOffline, "pull", err)
	}
	var result pullResponse
	if err = r.do(req, &result); err != nil {
		return nil, cursor, err
	}
	return result.Changes, result.Next, nil
}

func (r *HTTPRemote) do(req *http.Request, out interface{}) error {
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return vars.Wrap(vars.CodeOffline, "sync", vars.ErrNetwork)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return vars.Wrap(vars.CodeOffline, "sync", fmt.Errorf("%w: status %d", vars.ErrNetwork, resp.StatusCode))
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return vars.Wrap(vars.CodeOffline, "sync", err)
	}
	return nil
}
