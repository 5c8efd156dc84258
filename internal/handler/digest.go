package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/foodrescue/foodrescue/internal/ctxkeys"
	"github.com/foodrescue/foodrescue/internal/service"
)

// digestRunner runs one digest pass outside the schedule.
type digestRunner interface {
	RunDigest(ctx context.Context) (service.DigestResult, error)
}

type digestHandler struct {
	runner digestRunner
}

func NewDigestHandler(runner digestRunner) *digestHandler {
	return &digestHandler{runner: runner}
}

// Trigger runs the daily digest now and reports how many emails were sent.
// The pass runs to completion even if the client disconnects.
func (h *digestHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	slog.Info("manual digest triggered", "user_id", user.ID)

	result, err := h.runner.RunDigest(context.WithoutCancel(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"emails_sent":   result.Sent,
		"emails_failed": result.Failed,
	})
}
