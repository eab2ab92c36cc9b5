package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/avelez/duet/internal/httpx"
	"github.com/avelez/duet/internal/metrics"
	"github.com/avelez/duet/internal/middleware"
	"github.com/avelez/duet/internal/models"
	"github.com/avelez/duet/internal/store"
	"github.com/avelez/duet/internal/upload"
	"github.com/avelez/duet/internal/ws"
)

type MessageHandler struct {
	Store    store.Store
	Hub      *ws.Hub
	Uploader upload.Saver
	Logger   zerolog.Logger
}

// GetUsers lists every other user, for picking a chat partner.
func (h *MessageHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	users, err := h.Store.ListUsersExcept(userID)
	if err != nil {
		h.Logger.Error().Err(err).Msg("list users failed")
		httpx.Error(w, err, "Internal server error")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	httpx.JSON(w, http.StatusOK, users)
}

// GetMessages returns the full conversation with the peer, oldest first.
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	peerID, err := strconv.Atoi(mux.Vars(r)["peerId"])
	if err != nil {
		httpx.Error(w, httpx.ErrValidation, "Invalid peer id")
		return
	}

	messages, err := h.Store.GetConversation(userID, peerID)
	if err != nil {
		h.Logger.Error().Err(err).Msg("get conversation failed")
		httpx.Error(w, err, "Internal server error")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	httpx.JSON(w, http.StatusOK, messages)
}

type SendMessageRequest struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// SendMessage persists the message, then hands it to the hub for delivery to
// the receiver's connection. The two paths are independent: the caller gets
// its 201 from this response, not from the live channel.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	peerID, err := strconv.Atoi(mux.Vars(r)["peerId"])
	if err != nil {
		httpx.Error(w, httpx.ErrValidation, "Invalid peer id")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, httpx.ErrValidation, "Invalid request body")
		return
	}
	if req.Text == "" && req.Image == "" {
		httpx.Error(w, httpx.ErrValidation, "Message must have text or an image")
		return
	}

	var imageURL string
	if req.Image != "" {
		imageURL, err = h.Uploader.Save(req.Image)
		if err != nil {
			if errors.Is(err, upload.ErrNotImage) {
				httpx.Error(w, httpx.ErrValidation, "Invalid image")
			} else {
				h.Logger.Error().Err(err).Msg("image upload failed")
				httpx.Error(w, httpx.ErrUpstream, "Image upload failed")
			}
			return
		}
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		SenderID:   userID,
		ReceiverID: peerID,
		Text:       req.Text,
		Image:      imageURL,
	}
	if err := h.Store.SaveMessage(msg); err != nil {
		h.Logger.Error().Err(err).Msg("save message failed")
		httpx.Error(w, err, "Internal server error")
		return
	}
	metrics.MessagesSent.Inc()

	h.Hub.DeliverNewMessage(msg)

	httpx.JSON(w, http.StatusCreated, msg)
}

type DeleteMessageRequest struct {
	DeleteForEveryone bool `json:"delete_for_everyone"`
}

// DeleteMessage hard-deletes a message. Only the sender may delete, and only
// for everyone; both participants' connections are then notified.
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	messageID := mux.Vars(r)["messageId"]

	var req DeleteMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, httpx.ErrValidation, "Invalid request body")
		return
	}
	if !req.DeleteForEveryone {
		httpx.Error(w, httpx.ErrValidation, "Delete for everyone only")
		return
	}

	msg, err := h.Store.GetMessageByID(messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.Error(w, httpx.ErrNotFound, "Message not found")
			return
		}
		h.Logger.Error().Err(err).Msg("get message failed")
		httpx.Error(w, err, "Internal server error")
		return
	}

	if msg.SenderID != userID {
		httpx.Error(w, httpx.ErrForbidden, "Not authorized")
		return
	}

	if err := h.Store.DeleteMessage(messageID); err != nil {
		h.Logger.Error().Err(err).Msg("delete message failed")
		httpx.Error(w, err, "Internal server error")
		return
	}
	metrics.MessagesDeleted.Inc()

	h.Hub.DeliverMessageDeleted(messageID, []int{msg.SenderID, msg.ReceiverID})

	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Message deleted for everyone"})
}
