package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Yassen717/Chatly/internal/ai"
	"github.com/Yassen717/Chatly/internal/chat"
)

type createConversationRequest struct {
	Title        string `json:"title"`
	SystemPrompt string `json:"systemPrompt"`
}

type updateTitleRequest struct {
	Title string `json:"title"`
}

type setActiveRequest struct {
	ID string `json:"id"`
}

type updateContextRequest struct {
	SystemPrompt *string           `json:"systemPrompt,omitempty"`
	ModelConfig  *chat.ModelConfig `json:"modelConfig,omitempty"`
	MessageLimit *int              `json:"messageLimit,omitempty"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	var conversations []chat.Conversation
	if query != "" {
		conversations = s.store.SearchConversations(query)
	} else {
		conversations = s.store.Conversations()
	}
	s.writeJSON(w, map[string]interface{}{
		"conversations":        conversations,
		"activeConversationId": s.store.ActiveConversation(),
	})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if r.Body != nil {
		// Empty body means all defaults.
		json.NewDecoder(r.Body).Decode(&req)
	}
	id := s.store.CreateConversation(req.Title, req.SystemPrompt)
	conv, _ := s.store.Conversation(id)
	w.WriteHeader(http.StatusCreated)
	s.writeJSON(w, conv)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.store.Conversation(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, "conversation not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	s.store.DeleteConversation(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetActiveConversation(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.store.SetActiveConversation(req.ID)
	s.writeJSON(w, map[string]string{"activeConversationId": s.store.ActiveConversation()})
}

func (s *Server) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	var req updateTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		s.writeError(w, "title is required", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	if _, ok := s.store.Conversation(id); !ok {
		s.writeError(w, "conversation not found", http.StatusNotFound)
		return
	}
	s.store.UpdateConversationTitle(id, req.Title)
	conv, _ := s.store.Conversation(id)
	s.writeJSON(w, conv)
}

func (s *Server) handleTogglePin(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.store.Conversation(id); !ok {
		s.writeError(w, "conversation not found", http.StatusNotFound)
		return
	}
	s.store.TogglePinConversation(id)
	conv, _ := s.store.Conversation(id)
	s.writeJSON(w, conv)
}

func (s *Server) handleUpdateContext(w http.ResponseWriter, r *http.Request) {
	var req updateContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	if _, ok := s.store.Conversation(id); !ok {
		s.writeError(w, "conversation not found", http.StatusNotFound)
		return
	}
	s.store.UpdateContextConfig(id, chat.ContextUpdate{
		SystemPrompt: req.SystemPrompt,
		ModelConfig:  req.ModelConfig,
		MessageLimit: req.MessageLimit,
	})
	conv, _ := s.store.Conversation(id)
	s.writeJSON(w, conv)
}

// handleSendMessage runs a full non-streaming exchange and returns the
// updated conversation. Provider failures surface as the fallback
// assistant message, not as HTTP errors.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	streaming := false
	convID, err := s.orchestrator.SendMessage(r.Context(), mux.Vars(r)["id"], req.Text, ai.SendOptions{
		Streaming: &streaming,
	})
	switch {
	case errors.Is(err, ai.ErrEmptyMessage):
		s.writeError(w, "message text is required", http.StatusBadRequest)
		return
	case errors.Is(err, ai.ErrConversationBusy):
		s.writeError(w, "a message is already being processed", http.StatusConflict)
		return
	case err != nil:
		s.writeError(w, "failed to send message", http.StatusInternalServerError)
		return
	}

	conv, _ := s.store.Conversation(convID)
	s.writeJSON(w, conv)
}

// Auth handlers

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	user, err := s.auth.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
	s.writeJSON(w, user)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	user, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	s.writeJSON(w, user)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.auth.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.auth.ResetPassword(r.Context(), req.Email); err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user := s.auth.CurrentUser()
	if user == nil {
		s.writeError(w, "not signed in", http.StatusUnauthorized)
		return
	}
	s.writeJSON(w, user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	user, err := s.auth.UpdateProfile(r.Context(), req.DisplayName, req.PhotoURL)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, user)
}
