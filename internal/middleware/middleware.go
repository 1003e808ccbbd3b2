package middleware

import (
	"github.com/certifyapp/certnotify/internal/config"
	"github.com/certifyapp/certnotify/internal/logger"
	"github.com/certifyapp/certnotify/internal/metrics"
)

// Middleware holds all HTTP middleware
type Middleware struct {
	log           *logger.Logger
	cfg           *config.Config
	metrics       *metrics.Metrics
	validateToken TokenValidator
}

// New creates a new Middleware instance
func New(log *logger.Logger, cfg *config.Config, m *metrics.Metrics) *Middleware {
	return &Middleware{
		log:           log,
		cfg:           cfg,
		metrics:       m,
		validateToken: googleTokenValidator,
	}
}
