package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/CrowderSoup/kanban/database"
	"github.com/CrowderSoup/kanban/services"
)

// RouterConfig carries the dependencies of the HTTP API.
type RouterConfig struct {
	AuthService    *services.AuthService
	DataService    *database.DataService
	Hub            *services.Hub
	PublicKey      string
	AllowedOrigins []string
}

// NewRouter builds the API router.
func NewRouter(cfg RouterConfig) *mux.Router {
	authHandler := NewAuthHandler(cfg.AuthService)
	taskHandler := NewTaskHandler(cfg.DataService, cfg.Hub)
	wsHandler := NewWebSocketHandler(cfg.Hub, cfg.AllowedOrigins)
	authMiddleware := NewAuthMiddleware(cfg.AuthService)

	r := mux.NewRouter()
	r.Use(RequestLogger)
	r.HandleFunc("/healthz", Healthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(APIKey(cfg.PublicKey))

	// Auth routes
	api.HandleFunc("/auth/signup", authHandler.SignUp).Methods(http.MethodPost)
	api.HandleFunc("/auth/signin", authHandler.SignIn).Methods(http.MethodPost)

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware.Auth)
	protected.HandleFunc("/auth/signout", authHandler.SignOut).Methods(http.MethodPost)
	protected.HandleFunc("/auth/session", authHandler.Session).Methods(http.MethodGet)

	protected.HandleFunc("/tasks", taskHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/tasks", taskHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/tasks/order", taskHandler.Order).Methods(http.MethodPut)
	protected.HandleFunc("/tasks/{id}", taskHandler.Update).Methods(http.MethodPatch)
	protected.HandleFunc("/tasks/{id}", taskHandler.Delete).Methods(http.MethodDelete)

	// WebSocket route for real-time updates
	protected.HandleFunc("/ws", wsHandler.HandleWebSocket)

	return r
}
