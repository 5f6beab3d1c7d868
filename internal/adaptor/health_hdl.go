package adaptor

import (
	"context"
	"net/http"
	"time"

	"subtitle-hub/pkg/utils"

	"go.uber.org/zap"
)

// Pinger is satisfied by database.PgxIface.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db  Pinger
	log *zap.Logger
}

func NewHealthHandler(db Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:  db,
		log: log.With(zap.String("handler", "health")),
	}
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("Health check failed", zap.Error(err))
		utils.ResponseError(w, http.StatusServiceUnavailable, "Database unavailable", nil)
		return
	}

	utils.ResponseJSON(w, http.StatusOK, utils.Response{OK: true})
}
