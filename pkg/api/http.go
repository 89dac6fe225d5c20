package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"convosync/pkg/api/handlers"
	"convosync/pkg/telemetry"
)

// Handler returns the versioned API router:
//   - POST /v1/conversations                                create a conversation
//   - GET  /v1/conversations                                list caller's conversations
//   - GET  /v1/conversations/{conversationId}               fetch one conversation
//   - GET  /v1/conversations/{conversationId}/messages      cursor-paginated history
//   - POST /v1/conversations/{conversationId}/messages      append a message
//   - POST /v1/conversations/{conversationId}/read          mark all read as of now
func Handler() http.Handler {
	r := mux.NewRouter()

	r.Use(telemetry.Middleware(routeTemplate))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterConversations(v1)
	handlers.RegisterMessages(v1)

	return r
}

// routeTemplate reports the matched mux template (ids collapsed) so metric
// label cardinality stays bounded.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return ""
}
