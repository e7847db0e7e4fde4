package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/sessioncache"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var (
	errRoute   = fmt.Errorf("%w: no such route", catalog.ErrNotFound)
	errNoName  = fmt.Errorf("%w: name is required", catalog.ErrNotFound)
	errRequest = errors.New("malformed request")
)

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case catalog.IsDuplicate(err):
		return http.StatusConflict
	case catalog.IsClientError(err), errors.Is(err, errRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log(r).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = http.StatusText(status)
	} else {
		s.log(r).Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: msg, Status: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// redirect keeps the location relative, e.g. "./3".
func redirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}

func kindOf(r *http.Request) (catalog.Kind, error) {
	item := mux.Vars(r)["item"]
	kind, ok := catalog.ParseKind(item)
	if !ok {
		return 0, fmt.Errorf("%w: unknown item %q", catalog.ErrNotFound, item)
	}
	return kind, nil
}

func idOf(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad record id", catalog.ErrNotFound)
	}
	return id, nil
}

// attrsOf collects query and form values; the first value of each wins.
func attrsOf(r *http.Request) (catalog.Attrs, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", errRequest, err)
	}
	attrs := catalog.Attrs{}
	for tag, values := range r.Form {
		if len(values) > 0 {
			attrs[tag] = values[0]
		}
	}
	return attrs, nil
}

// write runs fn in a scope and drops cached reads of kind once committed.
func (s *Server) write(ctx context.Context, r *http.Request, kind catalog.Kind, fn func(ctx context.Context, st *sessioncache.Store) error) error {
	if err := s.db.Scope(ctx, fn); err != nil {
		return err
	}
	if err := s.reader.Invalidate(ctx, kind); err != nil {
		s.log(r).Warn("read cache invalidation failed", zap.Stringer("kind", kind), zap.Error(err))
	}
	return nil
}

func (s *Server) home(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<b>Library Catalog v%s</b>", s.version)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.log(r).Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	attrs, err := attrsOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name, _ := attrs[catalog.AttrName].(string)
	delete(attrs, catalog.AttrName)

	var id int64
	err = s.write(r.Context(), r, kind, func(ctx context.Context, st *sessioncache.Store) error {
		if err := catalog.CheckAttrs(kind, attrs, false); err != nil {
			return err
		}
		existing, ok, err := st.Get(ctx, kind, name)
		if err != nil {
			return err
		}
		if ok {
			return &catalog.DuplicateNameError{Kind: kind, Name: existing.DisplayName()}
		}
		e, err := st.Create(ctx, kind, name, attrs)
		if err != nil {
			return err
		}
		id = e.Key()
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	redirect(w, fmt.Sprintf("./%d", id))
}

func (s *Server) findByName(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name := r.URL.Query().Get(catalog.AttrName)
	if name == "" {
		s.writeError(w, r, errNoName)
		return
	}
	id, err := s.reader.Find(r.Context(), kind, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	redirect(w, fmt.Sprintf("./%d", id))
}

func (s *Server) readRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := idOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.reader.Record(r.Context(), kind, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) indexRecords(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	idx, err := s.reader.Index(r.Context(), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := idOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	attrs, err := attrsOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	err = s.write(r.Context(), r, kind, func(ctx context.Context, st *sessioncache.Store) error {
		e, err := st.GetByKey(ctx, kind, id)
		if err != nil {
			return err
		}
		return st.Update(ctx, e, attrs)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	redirect(w, fmt.Sprintf("../%d", id))
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := idOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var deleted string
	err = s.write(r.Context(), r, kind, func(ctx context.Context, st *sessioncache.Store) error {
		e, err := st.GetByKey(ctx, kind, id)
		if err != nil {
			return err
		}
		deleted = fmt.Sprint(e)
		return st.Delete(ctx, e)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Deleted: %s", deleted)
}
