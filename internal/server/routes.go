package server

import (
	"encoding/json"
	"net/http"

	"unchained/internal/cache/artifact"
)

func NewMux(modules *ModuleHandler, hub *ReloadHub, validator *artifact.Validator) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/__unchained/reload", hub)
	mux.HandleFunc("/__unchained/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"cache":   validator.Metrics(),
			"clients": hub.ClientCount(),
		})
	})
	mux.Handle("/", modules)

	h := http.Handler(mux)
	h = RequestID(h)
	h = CORS(h)
	return h
}
