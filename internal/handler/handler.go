package handler

import (
	"encoding/json"
	"net/http"

	"github.com/certifyapp/certnotify/internal/config"
	"github.com/certifyapp/certnotify/internal/database"
	"github.com/certifyapp/certnotify/internal/logger"
	"github.com/certifyapp/certnotify/internal/metrics"
	"github.com/certifyapp/certnotify/internal/service"
	"github.com/certifyapp/certnotify/internal/trigger"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// Handler holds all HTTP handlers
type Handler struct {
	db        *database.Postgres
	rdb       *database.Redis
	log       *logger.Logger
	cfg       *config.Config
	metrics   *metrics.Metrics
	decoder   *trigger.Decoder
	notifySvc *service.NotificationService
}

// New creates a new Handler instance. db and rdb are nil when the delivery
// log or the ledger is disabled.
func New(db *database.Postgres, rdb *database.Redis, log *logger.Logger, cfg *config.Config, m *metrics.Metrics, notifySvc *service.NotificationService) *Handler {
	return &Handler{
		db:        db,
		rdb:       rdb,
		log:       log.WithComponent("handler"),
		cfg:       cfg,
		metrics:   m,
		decoder:   trigger.NewDecoder(cfg.Trigger.Collection),
		notifySvc: notifySvc,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}
