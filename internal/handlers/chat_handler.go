package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/buddy-ya/chat-engine/internal/dto"
	"github.com/buddy-ya/chat-engine/internal/middlewares"
	"github.com/buddy-ya/chat-engine/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// ImageSubmitter is the pipeline's image path as the upload endpoint needs it.
type ImageSubmitter interface {
	SubmitImage(ctx context.Context, roomID, senderID int64, att services.Attachment, tempID json.RawMessage) (dto.MessageEvent, error)
}

type ChatHandler struct {
	chat           ImageSubmitter
	maxUploadBytes int64
}

func NewChatHandler(chat ImageSubmitter, maxUploadBytes int64) *ChatHandler {
	return &ChatHandler{chat: chat, maxUploadBytes: maxUploadBytes}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// UploadImage accepts a multipart attachment for a room and runs the image
// path of the message pipeline. The response carries the same record shape as
// the live message broadcast.
//
// POST /api/v1/rooms/{roomId}/images  (form fields: image, tempId)
func (h *ChatHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	claims := middlewares.GetMemberClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	roomID, err := strconv.ParseInt(mux.Vars(r)["roomId"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	att := services.Attachment{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        file,
	}

	chat, err := h.chat.SubmitImage(r.Context(), roomID, claims.MemberID, att, rawTempID(r.FormValue("tempId")))
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("room_id", roomID).Int64("member_id", claims.MemberID).
			Msg("image submission failed")
		switch {
		case errors.Is(err, services.ErrAttachmentUploadFailed):
			writeError(w, http.StatusBadGateway, "attachment upload failed")
		default:
			writeError(w, http.StatusInternalServerError, "message could not be saved")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Image uploaded and broadcasted successfully",
		"chatMessage": chat,
	})
}

// rawTempID echoes the client's correlation token back in whatever JSON shape
// it was sent: numeric form values stay numbers, everything else is a string.
func rawTempID(v string) json.RawMessage {
	if v == "" {
		return nil
	}
	if json.Valid([]byte(v)) {
		return json.RawMessage(v)
	}
	quoted, _ := json.Marshal(v)
	return quoted
}
