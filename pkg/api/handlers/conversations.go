package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"convosync/pkg/auth"
	"convosync/pkg/logger"
	"convosync/pkg/models"
	"convosync/pkg/store"
	"convosync/pkg/utils"
	"convosync/pkg/validation"
)

// RegisterConversations registers HTTP handlers for conversation metadata.
func RegisterConversations(r *mux.Router) {
	r.HandleFunc("/conversations", createConversation).Methods(http.MethodPost)
	r.HandleFunc("/conversations", listConversations).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{conversationId}", getConversation).Methods(http.MethodGet)
}

func createConversation(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var in struct {
		Participants []string `json:"participants"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	// the caller is always a participant of a conversation it creates
	participants := in.Participants
	found := false
	for _, p := range participants {
		if p == userID {
			found = true
			break
		}
	}
	if !found {
		participants = append(participants, userID)
	}

	now := time.Now().UTC().UnixNano()
	conv := models.Conversation{
		ID:           store.NewConversationID(),
		Participants: participants,
		CreatedTS:    now,
		UpdatedTS:    now,
	}
	if err := validation.ValidateConversation(conv); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := store.SaveConversation(conv); err != nil {
		logger.Error("create_conversation_failed", "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	logger.Info("conversation_created", "conversation", conv.ID, "participants", len(conv.Participants))
	_ = utils.JSONWrite(w, http.StatusCreated, conv)
}

func listConversations(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	convs, err := store.ListConversationsFor(userID)
	if err != nil {
		logger.Error("list_conversations_failed", "user", userID, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Data []models.Conversation `json:"data"`
	}{Data: convs})
}

func getConversation(w http.ResponseWriter, r *http.Request) {
	conv, _, ok := participantConversation(w, r)
	if !ok {
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, conv)
}
