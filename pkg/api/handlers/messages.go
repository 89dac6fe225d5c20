package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"convosync/pkg/auth"
	"convosync/pkg/logger"
	"convosync/pkg/models"
	"convosync/pkg/store"
	"convosync/pkg/utils"
	"convosync/pkg/validation"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// maxBody caps request body size for message creation.
var maxBody int64 = 64 << 10

// SetMaxBody overrides the request body cap (from server config).
func SetMaxBody(n int64) {
	if n > 0 {
		maxBody = n
	}
}

// RegisterMessages registers HTTP handlers for message-related endpoints.
func RegisterMessages(r *mux.Router) {
	r.HandleFunc("/conversations/{conversationId}/messages", listMessages).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{conversationId}/messages", createMessage).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{conversationId}/read", markRead).Methods(http.MethodPost)
}

// participantConversation loads the conversation and checks membership.
// Missing conversations and non-participant callers both yield a 404 so
// conversation existence never leaks.
func participantConversation(w http.ResponseWriter, r *http.Request) (models.Conversation, string, bool) {
	convID := mux.Vars(r)["conversationId"]
	userID := auth.UserIDFromContext(r.Context())
	conv, err := store.GetConversation(convID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONNotFound(w)
		} else {
			logger.Error("load_conversation_failed", "conversation", convID, "error", err)
			utils.JSONError(w, http.StatusInternalServerError, "internal error")
		}
		return models.Conversation{}, "", false
	}
	if !conv.HasParticipant(userID) {
		utils.JSONNotFound(w)
		return models.Conversation{}, "", false
	}
	return conv, userID, true
}

func listMessages(w http.ResponseWriter, r *http.Request) {
	conv, _, ok := participantConversation(w, r)
	if !ok {
		return
	}

	limit := defaultPageLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			utils.JSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > maxPageLimit {
			n = maxPageLimit
		}
		limit = n
	}
	cursor := r.URL.Query().Get("cursor")

	msgs, next, err := store.ListMessagesBefore(conv.ID, limit, cursor)
	if err != nil {
		logger.Error("list_messages_failed", "conversation", conv.ID, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	page := models.MessagePage{Data: msgs}
	if next != "" {
		page.Cursor = &next
	}
	logger.Info("messages_listed", "conversation", conv.ID, "count", len(msgs), "more", next != "")
	_ = utils.JSONWrite(w, http.StatusOK, page)
}

func createMessage(w http.ResponseWriter, r *http.Request) {
	conv, userID, ok := participantConversation(w, r)
	if !ok {
		return
	}

	var in struct {
		Content     string `json:"content"`
		MessageType string `json:"messageType"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.ValidateContent(in.Content); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := store.AppendMessage(conv.ID, models.Message{
		SenderID:    userID,
		Content:     in.Content,
		MessageType: in.MessageType,
	})
	if err != nil {
		logger.Error("create_message_failed", "conversation", conv.ID, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	logger.Info("message_created", "conversation", conv.ID, "id", m.ID, "sender", userID)
	_ = utils.JSONWrite(w, http.StatusCreated, m)
}

func markRead(w http.ResponseWriter, r *http.Request) {
	conv, userID, ok := participantConversation(w, r)
	if !ok {
		return
	}
	// coarse contract: everything in the conversation is read as of now
	if err := store.SetReadMarker(conv.ID, userID, time.Now().UTC().UnixNano()); err != nil {
		logger.Error("mark_read_failed", "conversation", conv.ID, "user", userID, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}
