package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/foodrescue/foodrescue/internal/apierror"
	"github.com/foodrescue/foodrescue/internal/db"
	"github.com/jmoiron/sqlx"
)

type healthHandler struct {
	db *sqlx.DB
}

func NewHealthHandler(db *sqlx.DB) *healthHandler {
	return &healthHandler{db: db}
}

func (h *healthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	err := db.Ping(ctx, h.db)
	if err != nil {
		apierror.ServiceUnavailable(w, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
