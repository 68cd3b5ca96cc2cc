package rest

import (
	"net/http"
	"os"

	"edulearn/internal/service"
	"edulearn/internal/transport/rest/handler"
	"edulearn/internal/transport/rest/middleware"
	"edulearn/internal/transport/ws"

	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router.
type Container struct {
	AuthService    *service.AuthService
	SessionService *service.SessionService
	WSHub          *ws.Hub
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(c.SessionService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.SessionService)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	r.Use(corsMiddleware)

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/sessions/code/{code}", sessionHandler.ResolveCode).Methods("GET", "OPTIONS")

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws/sessions/{id}", wsHandler.SessionWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Teacher routes (require teacher auth)
	teacherRoutes := v1.NewRoute().Subrouter()
	teacherRoutes.Use(authMW.RequireTeacher)

	teacherRoutes.HandleFunc("/sessions", sessionHandler.Start).Methods("POST", "OPTIONS")
	teacherRoutes.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods("GET", "OPTIONS")
	teacherRoutes.HandleFunc("/sessions/{id}/end", sessionHandler.End).Methods("POST", "OPTIONS")
	teacherRoutes.HandleFunc("/sessions/{id}/content", sessionHandler.PushContent).Methods("POST", "OPTIONS")
	teacherRoutes.HandleFunc("/sessions/{id}/content", sessionHandler.ContentHistory).Methods("GET", "OPTIONS")
	teacherRoutes.HandleFunc("/sessions/{id}/roster", sessionHandler.Roster).Methods("GET", "OPTIONS")
	teacherRoutes.HandleFunc("/sessions/{id}/analytics", sessionHandler.Analytics).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
