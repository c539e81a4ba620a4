// Package notiontest provides an in-memory stand-in for the knowledge store
// API, for exercising the adapter and the pipeline without the real vendor.
package notiontest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

type page struct {
	props    map[string]map[string]any
	children []map[string]any
	edited   time.Time
}

// Server is a fake knowledge store. Zero value is not usable; construct with
// NewServer and Close when done.
type Server struct {
	*httptest.Server

	// TitleProp is the schema's title property name. Defaults to "Title";
	// set to "Name" to exercise the second naming convention, or to "" to
	// simulate a database with no recognizable title property.
	TitleProp string

	// Token, when set, is required as a bearer token on every call.
	Token string

	mu     sync.Mutex
	pages  map[string]*page
	serial int
}

func NewServer() *Server {
	s := &Server{
		TitleProp: "Title",
		pages:     make(map[string]*page),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeErr(w, http.StatusUnauthorized, "unauthorized", "API token is invalid.")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v1/databases/"):
		s.handleDatabase(w)
	case r.Method == http.MethodPost && path == "/v1/pages":
		s.handleCreate(w, r)
	case r.Method == http.MethodPatch && strings.HasPrefix(path, "/v1/pages/"):
		s.handlePatch(w, r, strings.TrimPrefix(path, "/v1/pages/"))
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v1/pages/"):
		s.handleGet(w, strings.TrimPrefix(path, "/v1/pages/"))
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v1/blocks/"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/v1/blocks/"), "/children")
		s.handleChildren(w, r, id)
	default:
		writeErr(w, http.StatusNotFound, "invalid_request_url", "Unrecognized endpoint.")
	}
}

func (s *Server) handleDatabase(w http.ResponseWriter) {
	props := map[string]any{
		"Source URL": map[string]string{"type": "url"},
		"Intent":     map[string]string{"type": "select"},
		"Status":     map[string]string{"type": "select"},
	}
	if s.TitleProp != "" {
		props[s.TitleProp] = map[string]string{"type": "title"}
	}
	json.NewEncoder(w).Encode(map[string]any{"object": "database", "properties": props})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Properties map[string]map[string]any `json:"properties"`
		Children   []map[string]any          `json:"children"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	s.mu.Lock()
	s.serial++
	id := fmt.Sprintf("%08d-aaaa-bbbb-cccc-000000000000", s.serial)
	s.pages[id] = &page{props: req.Properties, children: req.Children, edited: time.Now().UTC()}
	s.mu.Unlock()

	json.NewEncoder(w).Encode(map[string]any{"object": "page", "id": id})
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Properties map[string]map[string]any `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		writeErr(w, http.StatusNotFound, "object_not_found", "Could not find page with ID: "+id)
		return
	}
	for name, val := range req.Properties {
		p.props[name] = val
	}
	p.edited = time.Now().UTC()
	json.NewEncoder(w).Encode(map[string]any{"object": "page", "id": id})
}

func (s *Server) handleGet(w http.ResponseWriter, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		writeErr(w, http.StatusNotFound, "object_not_found", "Could not find page with ID: "+id)
		return
	}

	// Re-attach the type discriminator the adapter keys title parsing on.
	props := map[string]any{}
	for name, val := range p.props {
		out := map[string]any{}
		for k, v := range val {
			out[k] = v
		}
		for _, kind := range []string{"title", "rich_text", "select", "url", "number"} {
			if _, has := val[kind]; has {
				out["type"] = kind
			}
		}
		props[name] = out
	}

	json.NewEncoder(w).Encode(map[string]any{
		"object":           "page",
		"id":               id,
		"last_edited_time": p.edited.Format(time.RFC3339),
		"properties":       props,
	})
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		writeErr(w, http.StatusNotFound, "object_not_found", "Could not find block with ID: "+id)
		return
	}

	pageSize := 100
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			pageSize = n
		}
	}
	start := 0
	if raw := r.URL.Query().Get("start_cursor"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > len(p.children) {
			writeErr(w, http.StatusBadRequest, "validation_error", "Invalid start_cursor: "+raw)
			return
		}
		start = n
	}

	end := start + pageSize
	if end > len(p.children) {
		end = len(p.children)
	}
	results := p.children[start:end]
	if results == nil {
		results = []map[string]any{}
	}

	resp := map[string]any{"object": "list", "results": results, "has_more": end < len(p.children)}
	if end < len(p.children) {
		resp["next_cursor"] = strconv.Itoa(end)
	} else {
		resp["next_cursor"] = nil
	}
	json.NewEncoder(w).Encode(resp)
}

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"object": "error", "status": status, "code": code, "message": msg,
	})
}

// PageCount reports how many pages have been created.
func (s *Server) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// SelectValue returns the select value of a property on a stored page, or "".
func (s *Server) SelectValue(id, prop string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return ""
	}
	sel, ok := p.props[prop]["select"].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := sel["name"].(string)
	return name
}

// TextValue returns the concatenated rich text (or title) of a property.
func (s *Server) TextValue(id, prop string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return ""
	}
	for _, kind := range []string{"rich_text", "title"} {
		if arr, ok := p.props[prop][kind].([]any); ok {
			return joinRichText(arr)
		}
	}
	return ""
}

// NumberValue returns a number property, or -1 when absent.
func (s *Server) NumberValue(id, prop string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return -1
	}
	if n, ok := p.props[prop]["number"].(float64); ok {
		return n
	}
	return -1
}

// Content reassembles the paragraph children of a page.
func (s *Server) Content(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return ""
	}
	var sb strings.Builder
	for _, block := range p.children {
		para, ok := block["paragraph"].(map[string]any)
		if !ok {
			continue
		}
		if arr, ok := para["rich_text"].([]any); ok {
			sb.WriteString(joinRichText(arr))
		}
	}
	return sb.String()
}

// FragmentCount reports how many paragraph children a page carries.
func (s *Server) FragmentCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return 0
	}
	return len(p.children)
}

func joinRichText(arr []any) string {
	var sb strings.Builder
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := m["text"].(map[string]any); ok {
			if content, ok := text["content"].(string); ok {
				sb.WriteString(content)
			}
		}
	}
	return sb.String()
}
