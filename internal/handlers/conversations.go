package handlers

import (
	"log/slog"
	"net/http"

	"github.com/umar/campus-chat/internal/auth"
	"github.com/umar/campus-chat/internal/conversation"
)

func ListConversations(agg *conversation.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := auth.CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		convs, err := agg.List(r.Context(), caller)
		if err != nil {
			slog.Error("failed to list conversations", "error", err, "user_id", caller.ID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, convs)
	}
}
