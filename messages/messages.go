package messages

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"jobconnect/models"
	"jobconnect/mq"
	"jobconnect/store"
	"jobconnect/utils"
)

type Handler struct {
	Store  store.Store
	Events mq.Emitter
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, f store.MessageFilter) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	msgs, err := h.Store.ListMessages(ctx, f)
	if err != nil {
		log.Error().Err(err).Msg("list messages")
		utils.RespondServerError(w, "Failed to fetch messages", err)
		return
	}
	views, err := store.PopulateMessages(ctx, h.Store, msgs)
	if err != nil {
		utils.RespondServerError(w, "Failed to fetch messages", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"count":   len(views),
		"data":    views,
	})
}

// GetInbox handles GET /api/messages/inbox[?unread=true].
func (h *Handler) GetInbox(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.list(w, r, store.MessageFilter{
		ReceiverID: utils.GetUserIDFromRequest(r),
		UnreadOnly: r.URL.Query().Get("unread") == "true",
	})
}

// GetSent handles GET /api/messages/sent.
func (h *Handler) GetSent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.list(w, r, store.MessageFilter{SenderID: utils.GetUserIDFromRequest(r)})
}

// UnreadCount handles GET /api/messages/unread-count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	n, err := h.Store.CountUnread(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondServerError(w, "Failed to count messages", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"count": n})
}

// MarkRead handles PATCH /api/messages/:id/read. Messages the caller did not
// receive are reported as missing.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	err := h.Store.MarkRead(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r))
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Message not found")
		return
	}
	if err != nil {
		utils.RespondServerError(w, "Failed to update message", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// Send handles POST /api/messages.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in struct {
		ReceiverID string `json:"receiverId"`
		JobID      string `json:"jobId"`
		Title      string `json:"title"`
		Content    string `json:"content"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	in.ReceiverID = strings.TrimSpace(in.ReceiverID)
	in.Title = strings.TrimSpace(in.Title)

	var missing []string
	if in.ReceiverID == "" {
		missing = append(missing, "receiverId")
	}
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.Content) == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		utils.RespondWithMissing(w, missing)
		return
	}

	senderID := utils.GetUserIDFromRequest(r)
	if in.ReceiverID == senderID {
		utils.RespondWithError(w, http.StatusBadRequest, "You cannot message yourself")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	if _, err := h.Store.GetUser(ctx, in.ReceiverID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Receiver not found")
			return
		}
		utils.RespondServerError(w, "Failed to load receiver", err)
		return
	}
	if in.JobID != "" {
		if _, err := h.Store.GetJob(ctx, in.JobID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				utils.RespondWithError(w, http.StatusNotFound, "Job not found")
				return
			}
			utils.RespondServerError(w, "Failed to load job", err)
			return
		}
	}

	msg := &models.Message{
		ID:         utils.GetUUID(),
		JobID:      in.JobID,
		SenderID:   senderID,
		ReceiverID: in.ReceiverID,
		Title:      in.Title,
		Content:    in.Content,
		Type:       models.MessageDirect,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Store.InsertMessages(ctx, msg); err != nil {
		utils.RespondServerError(w, "Failed to send message", err)
		return
	}
	mq.EmitMessages(ctx, h.Events, msg)
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "data": msg})
}
