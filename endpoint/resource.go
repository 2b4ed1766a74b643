package endpoint

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/uno-framework/uno/model"
	"github.com/uno-framework/uno/obj"
	"github.com/uno-framework/uno/vars"
)

// reserved query params that never become filters
var reservedParams = map[string]bool{"limit": true, "offset": true, "sort": true, "rt": true}

// page size cap for list and pull feeds; larger requests fall back to the
// default page
const maxListLimit = 1000

// mountResources generates the REST surface for every registered class.
// Routes are looked up by table at request time, so classes registered by
// plugins after mount are served too.
func (s *Server) mountResources() {
	s.mux.HandleFunc("GET /api/{table}", s.resourceHandler("list", s.handleList))
	s.mux.HandleFunc("POST /api/{table}", s.resourceHandler("create", s.handleCreate))
	s.mux.HandleFunc("GET /api/{table}/{id}", s.resourceHandler("get", s.handleGet))
	s.mux.HandleFunc("PUT /api/{table}/{id}", s.resourceHandler("update", s.handleUpdate))
	s.mux.HandleFunc("DELETE /api/{table}/{id}", s.resourceHandler("delete", s.handleDelete))
}

type resourceFunc func(w http.ResponseWriter, r *http.Request, resource obj.Resource)

// resourceHandler resolves the class and gates the verb before the actual
// operation runs: the class must expose it and the permission table must
// permit it.
func (s *Server) resourceHandler(verb string, next resourceFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := r.PathValue("table")
		resource, ok := obj.Lookup(table)
		if !ok {
			respondErr(w, r, vars.Wrap(vars.CodeEndpoint, verb, vars.ErrNotFound))
			return
		}
		if !resource.Allowed(verb) || !s.Permissions.IsPermitted(table, verb) {
			respondErr(w, r, vars.Wrap(vars.CodeEndpoint, verb, vars.ErrNotPermitted))
			return
		}
		next(w, r, resource)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, resource obj.Resource) {
	q, err := queryFromRequest(r, resource)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	items, err := resource.List(r.Context(), q)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, items)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, resource obj.Resource) {
	item, err := resource.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, item)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, resource obj.Resource) {
	data := map[string]interface{}{}
	if err := decodeBody(r, &data); err != nil {
		respondErr(w, r, vars.Wrap(vars.CodeEndpoint, "create", err))
		return
	}
	item, err := resource.CreateFromMap(r.Context(), data)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, item)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, resource obj.Resource) {
	data := map[string]interface{}{}
	if err := decodeBody(r, &data); err != nil {
		respondErr(w, r, vars.Wrap(vars.CodeEndpoint, "update", err))
		return
	}
	item, err := resource.UpdateFromMap(r.Context(), r.PathValue("id"), data)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, item)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, resource obj.Resource) {
	if err := resource.DeleteByID(r.Context(), r.PathValue("id")); err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

// queryFromRequest maps query params onto a filter: limit/offset/sort are
// paging, any param naming a schema column becomes an equality condition.
// Unknown columns are rejected downstream by the query renderer.
func queryFromRequest(r *http.Request, resource obj.Resource) (*model.Query, error) {
	q := model.NewQuery()
	values := r.URL.Query()
	if limit, err := strconv.Atoi(values.Get("limit")); err == nil && limit > 0 && limit <= maxListLimit {
		q.Limit = limit
	} else {
		q.Limit = 100
	}
	if offset, err := strconv.Atoi(values.Get("offset")); err == nil && offset > 0 {
		q.Offset = offset
	}
	if sort := values.Get("sort"); sort != "" {
		q.Order(strings.TrimPrefix(sort, "-"), strings.HasPrefix(sort, "-"))
	}
	for param, vals := range values {
		if reservedParams[param] || len(vals) == 0 {
			continue
		}
		if _, ok := resource.Schema().FieldByColumn(param); !ok {
			continue
		}
		q.Where(param, model.Eq, vals[0])
	}
	return q, nil
}
