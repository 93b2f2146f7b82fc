package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Yassen717/Chatly/internal/ai"
	"github.com/Yassen717/Chatly/internal/auth"
	"github.com/Yassen717/Chatly/internal/chat"
)

// Server exposes the chat core over REST plus a WebSocket streaming
// endpoint.
type Server struct {
	store        *chat.Store
	orchestrator *ai.Orchestrator
	auth         *auth.Service
	logger       *log.Logger
	upgrader     websocket.Upgrader
	httpServer   *http.Server
}

// NewServer wires a server to the application services.
func NewServer(store *chat.Store, orchestrator *ai.Orchestrator, authSvc *auth.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		store:        store,
		orchestrator: orchestrator,
		auth:         authSvc,
		logger:       logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return isLocalhostOrigin(r)
			},
		},
	}
}

// isLocalhostOrigin restricts WebSocket upgrades to local callers.
func isLocalhostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.HasPrefix(origin, "http://localhost:") ||
		strings.HasPrefix(origin, "http://127.0.0.1:") ||
		strings.HasPrefix(origin, "http://[::1]:")
}

// Start begins serving on the given port and blocks until shutdown.
func (s *Server) Start(port int) error {
	router := s.setupRoutes()

	addr := fmt.Sprintf(":%d", port)
	s.logger.Info("starting API server", "addr", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.corsMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	api.HandleFunc("/conversations", s.handleListConversations).Methods("GET")
	api.HandleFunc("/conversations", s.handleCreateConversation).Methods("POST")
	api.HandleFunc("/conversations/active", s.handleSetActiveConversation).Methods("PUT")
	api.HandleFunc("/conversations/{id}", s.handleGetConversation).Methods("GET")
	api.HandleFunc("/conversations/{id}", s.handleDeleteConversation).Methods("DELETE")
	api.HandleFunc("/conversations/{id}/title", s.handleUpdateTitle).Methods("PUT")
	api.HandleFunc("/conversations/{id}/pin", s.handleTogglePin).Methods("POST")
	api.HandleFunc("/conversations/{id}/context", s.handleUpdateContext).Methods("PUT")
	api.HandleFunc("/conversations/{id}/messages", s.handleSendMessage).Methods("POST")

	api.HandleFunc("/auth/signup", s.handleSignUp).Methods("POST")
	api.HandleFunc("/auth/signin", s.handleSignIn).Methods("POST")
	api.HandleFunc("/auth/signout", s.handleSignOut).Methods("POST")
	api.HandleFunc("/auth/reset-password", s.handleResetPassword).Methods("POST")
	api.HandleFunc("/auth/me", s.handleCurrentUser).Methods("GET")
	api.HandleFunc("/auth/profile", s.handleUpdateProfile).Methods("PUT")

	api.HandleFunc("/chat/ws/{id}", s.handleChatWebSocket).Methods("GET")

	return router
}

// corsMiddleware adds CORS headers for local web clients.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allow := ""
		if origin == "" || strings.HasPrefix(origin, "http://localhost:") ||
			strings.HasPrefix(origin, "http://127.0.0.1:") ||
			strings.HasPrefix(origin, "http://[::1]:") {
			allow = origin
		}
		if allow != "" {
			w.Header().Set("Access-Control-Allow-Origin", allow)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Response helpers
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"model":     s.orchestrator.Provider().Model(),
	})
}
