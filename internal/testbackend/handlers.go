package testbackend

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type userKey struct{}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		s.mu.Lock()
		s.headers = append(s.headers, header)
		s.mu.Unlock()

		user, ok := s.validAccess(strings.TrimPrefix(header, "Bearer "))
		if !ok || !strings.HasPrefix(header, "Bearer ") {
			s.unauthorized.Add(1)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.loginCalls.Add(1)
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request")
		return
	}
	if pw, ok := s.opts.Users[in.Username]; !ok || pw != in.Password {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	access, refresh := s.Issue(in.Username)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: tokenPair{AccessToken: access, RefreshToken: refresh}})
}

func (s *Server) refreshTokens(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	gate := s.gate
	status := s.refreshErr
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if s.opts.RefreshDelay > 0 {
		time.Sleep(s.opts.RefreshDelay)
	}
	if status != 0 {
		writeError(w, status, "Refresh unavailable")
		return
	}

	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Malformed request")
		return
	}

	s.mu.Lock()
	user, ok := s.refresh[in.RefreshToken]
	if ok {
		delete(s.refresh, in.RefreshToken)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	access, refresh := s.Issue(user)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: tokenPair{AccessToken: access, RefreshToken: refresh}})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	s.profileCalls.Add(1)
	s.mu.Lock()
	status := s.profileErr
	s.mu.Unlock()
	if status != 0 {
		writeError(w, status, "Profile unavailable")
		return
	}
	user, _ := r.Context().Value(userKey{}).(string)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{
		"username": user,
		"role":     "admin",
	}})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.logoutCalls.Add(1)
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.access, token)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Signed out"})
}

func (s *Server) listItems(w http.ResponseWriter, _ *http.Request) {
	s.apiCalls.Add(1)
	s.mu.Lock()
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: out})
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	s.apiCalls.Add(1)
	var it Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil || it.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "Name is required")
		return
	}
	it.ID = strconv.FormatInt(s.seq.Add(1), 10)
	s.mu.Lock()
	s.items[it.ID] = it
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: it, Message: "Created"})
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	s.apiCalls.Add(1)
	s.mu.Lock()
	it, ok := s.items[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: it})
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	s.apiCalls.Add(1)
	id := chi.URLParam(r, "id")
	var in Item
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request")
		return
	}
	s.mu.Lock()
	it, ok := s.items[id]
	if ok && in.Name != "" {
		it.Name = in.Name
		s.items[id] = it
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: it})
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	s.apiCalls.Add(1)
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	_, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bare answers with a payload that is not wrapped in the success envelope.
func (s *Server) bare(w http.ResponseWriter, _ *http.Request) {
	s.apiCalls.Add(1)
	writeJSON(w, http.StatusOK, []int{1, 2, 3})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request) {
	s.apiCalls.Add(1)
	status := http.StatusUnprocessableEntity
	if v, err := strconv.Atoi(r.URL.Query().Get("status")); err == nil && v >= 400 {
		status = v
	}
	if r.URL.Query().Get("plain") != "" {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, "upstream exploded")
		return
	}
	writeError(w, status, "Validation failed")
}

func (s *Server) slow(w http.ResponseWriter, r *http.Request) {
	s.apiCalls.Add(1)
	select {
	case <-time.After(s.opts.SlowDelay):
		writeJSON(w, http.StatusOK, envelope{Success: true})
	case <-r.Context().Done():
	}
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	s.apiCalls.Add(1)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Expected multipart form")
		return
	}
	fields := make(map[string]string)
	for k, vs := range r.MultipartForm.Value {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	files := make([]map[string]any, 0)
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			files = append(files, map[string]any{
				"field":    field,
				"filename": fh.Filename,
				"size":     fh.Size,
			})
		}
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{
		"fields": fields,
		"files":  files,
	}})
}

// export serves name as CSV, except "missing" which answers like a backend refusing the
// export: a JSON body where a file was expected.
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	s.apiCalls.Add(1)
	name := chi.URLParam(r, "name")
	switch name {
	case "missing":
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"message":"not found"}`)
	case "unnamed":
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.WriteString(w, "raw-bytes")
	default:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
		_, _ = io.WriteString(w, "id,name\n1,first\n")
	}
}
