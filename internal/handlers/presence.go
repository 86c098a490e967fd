package handlers

import (
	"log/slog"
	"net/http"

	"github.com/umar/campus-chat/internal/chat"
)

func OnlineMembers(hub *chat.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := roomFromRequest(w, r)
		if !ok {
			return
		}
		names, err := hub.Members(r.Context(), roomID)
		if err != nil {
			slog.Error("failed to load presence", "error", err, "room_id", roomID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"room_id": roomID,
			"online":  names,
		})
	}
}
