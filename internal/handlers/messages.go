package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/umar/campus-chat/internal/auth"
	"github.com/umar/campus-chat/internal/chat"
	"github.com/umar/campus-chat/internal/models"
)

func roomFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	roomID := mux.Vars(r)["room_id"]
	if _, err := models.ParseRoomID(roomID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return "", false
	}
	return roomID, true
}

// GetHistory returns the room's full history and marks it read for the
// caller.
func GetHistory(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := auth.CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		roomID, ok := roomFromRequest(w, r)
		if !ok {
			return
		}

		msgs, err := svc.History(r.Context(), roomID, caller.ID)
		if err != nil {
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				writeError(w, http.StatusBadRequest, verr.Error())
				return
			}
			slog.Error("failed to get history", "error", err, "room_id", roomID, "user_id", caller.ID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, msgs)
	}
}

func MarkRead(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := auth.CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		roomID, ok := roomFromRequest(w, r)
		if !ok {
			return
		}

		if err := svc.MarkRead(r.Context(), roomID, caller.ID); err != nil {
			slog.Error("failed to mark read", "error", err, "room_id", roomID, "user_id", caller.ID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
