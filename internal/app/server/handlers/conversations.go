package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/services"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/platform/logger"
	"github.com/oleg-sazonov/mern-chat-app-sub001/pkg/middleware"
)

type ConversationHandler struct {
	convSvc *services.ConversationService
	msgSvc  *services.MessageService
}

func NewConversationHandler(c *services.ConversationService, m *services.MessageService) *ConversationHandler {
	return &ConversationHandler{convSvc: c, msgSvc: m}
}

type readStateResponse struct {
	UserID      string     `json:"user_id"`
	LastReadAt  *time.Time `json:"last_read_at"`
	UnreadCount int        `json:"unread_count"`
}

type conversationResponse struct {
	ID           string              `json:"id"`
	Participants []string            `json:"participants"`
	ReadStates   []readStateResponse `json:"read_states"`
	CreatedAt    time.Time           `json:"created_at"`
}

func toConversationResponse(c *domain.Conversation) conversationResponse {
	resp := conversationResponse{
		ID:        c.ID.String(),
		CreatedAt: c.CreatedAt,
	}
	for _, p := range c.Participants {
		resp.Participants = append(resp.Participants, p.String())
		if rs, ok := c.ReadStates[p]; ok {
			resp.ReadStates = append(resp.ReadStates, readStateResponse{
				UserID:      p.String(),
				LastReadAt:  rs.LastReadAt,
				UnreadCount: rs.UnreadCount,
			})
		}
	}
	return resp
}

// callerID reads the user id the auth middleware resolved.
func callerID(r *http.Request) (uuid.UUID, bool) {
	sub, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrConversationNotFound):
		http.Error(w, "conversation not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, "not a participant", http.StatusForbidden)
	case errors.Is(err, domain.ErrInvalidConversationID),
		errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrNotEnoughParticipants):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	creatorID, ok := callerID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		ParticipantIDs []string `json:"participant_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	participants := make([]uuid.UUID, 0, len(req.ParticipantIDs))
	for _, raw := range req.ParticipantIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid participant id", http.StatusBadRequest)
			return
		}
		participants = append(participants, id)
	}
	conv, err := h.convSvc.Create(r.Context(), creatorID, participants)
	if err != nil {
		log.ErrorContext(r.Context(), "conversation handler - create failed", "err", err)
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toConversationResponse(conv))
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	conv, err := h.convSvc.Get(r.Context(), convID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	json.NewEncoder(w).Encode(toConversationResponse(conv))
}

func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := callerID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	if err := h.convSvc.MarkRead(r.Context(), convID, userID); err != nil {
		log.ErrorContext(r.Context(), "conversation handler - mark read failed",
			"conv_id", convID, "user_id", userID, "err", err)
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	msgs, err := h.msgSvc.History(r.Context(), convID, userID, 100)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	type messageResponse struct {
		ID             string    `json:"id"`
		ConversationID string    `json:"conversation_id"`
		SenderID       string    `json:"sender_id"`
		Body           string    `json:"body"`
		CreatedAt      time.Time `json:"created_at"`
	}
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			ID:             m.ID.String(),
			ConversationID: m.ConversationID.String(),
			SenderID:       m.SenderID.String(),
			Body:           m.Body,
			CreatedAt:      m.CreatedAt,
		})
	}
	json.NewEncoder(w).Encode(out)
}
