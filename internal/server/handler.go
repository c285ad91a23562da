// Package server is the HTTP face of the pipeline: it filters inbound
// requests, serves validated artifacts, and notifies connected clients
// when an artifact is replaced.
package server

import (
	"errors"
	"log"
	"net/http"

	"unchained/internal/cache/artifact"
	"unchained/internal/upstream"
)

// ModuleHandler serves transformed modules. A request is routed through
// the pipeline iff it is a read-only fetch carrying the marker query key;
// everything else is passed through to the upstream source untouched.
type ModuleHandler struct {
	validator *artifact.Validator
	source    upstream.Source
	marker    string
}

func NewModuleHandler(validator *artifact.Validator, source upstream.Source, marker string) *ModuleHandler {
	return &ModuleHandler{validator: validator, source: source, marker: marker}
}

func (h *ModuleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !r.URL.Query().Has(h.marker) {
		h.passthrough(w, r)
		return
	}

	path := r.URL.Path
	entry, state, err := h.validator.Serve(r.Context(), path, path)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Printf("serve %s: %v", path, err)
		http.Error(w, "transform failed", http.StatusBadGateway)
		return
	}

	for name, value := range entry.Headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("X-Unchained-Cache", string(state))
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(entry.Body)
}

// passthrough serves the untransformed upstream bytes for requests that
// did not opt in to the pipeline.
func (h *ModuleHandler) passthrough(w http.ResponseWriter, r *http.Request) {
	file, err := h.source.Fetch(r.Context(), r.URL.Path)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Printf("passthrough %s: %v", r.URL.Path, err)
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}
	for name, value := range file.Headers {
		w.Header().Set(name, value)
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}
