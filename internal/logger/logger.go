package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/certifyapp/certnotify/internal/model"
)

// Logger wraps zerolog.Logger with application-specific methods
type Logger struct {
	zerolog.Logger
}

// New creates a new Logger instance writing to stdout
func New(level string, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a new Logger instance writing to w
func NewWithWriter(w io.Writer, level string, format string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger

	switch format {
	case "text", "console":
		// Human-readable output for development
		output := zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
		logger = zerolog.New(output).With().Timestamp().Caller().Logger()
	case "gcp":
		// Cloud Logging reads the severity key from JSON lines
		logger = zerolog.New(&severityWriter{w: w}).With().Timestamp().Logger()
	default:
		logger = zerolog.New(w).With().Timestamp().Caller().Logger()
	}

	return &Logger{Logger: logger.Level(lvl)}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// severityWriter copies zerolog's level into a Cloud Logging severity field.
type severityWriter struct {
	w io.Writer
}

func (s *severityWriter) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *severityWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	severity := strings.ToUpper(gcpSeverity(level))
	if len(p) > 0 && p[0] == '{' {
		line := make([]byte, 0, len(p)+len(severity)+16)
		line = append(line, `{"severity":"`...)
		line = append(line, severity...)
		line = append(line, '"')
		if len(p) > 2 {
			line = append(line, ',')
		}
		line = append(line, p[1:]...)
		if _, err := s.w.Write(line); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	return s.w.Write(p)
}

func gcpSeverity(level zerolog.Level) string {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return "debug"
	case zerolog.InfoLevel:
		return "info"
	case zerolog.WarnLevel:
		return "warning"
	case zerolog.ErrorLevel:
		return "error"
	case zerolog.FatalLevel:
		return "critical"
	case zerolog.PanicLevel:
		return "alert"
	default:
		return "default"
	}
}

// WithRequestID returns a new logger with the request ID attached
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With().Str("request_id", requestID).Logger(),
	}
}

// WithComponent returns a new logger with the component name attached
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.With().Str("component", component).Logger(),
	}
}

// WithCertificateID returns a new logger with the certificate ID attached
func (l *Logger) WithCertificateID(certID string) *Logger {
	return &Logger{
		Logger: l.With().Str("certificate_id", certID).Logger(),
	}
}

// WithEventID returns a new logger with the triggering event ID attached
func (l *Logger) WithEventID(eventID string) *Logger {
	return &Logger{
		Logger: l.With().Str("event_id", eventID).Logger(),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, statusCode int, duration time.Duration, clientIP string) {
	l.Info().
		Str("method", method).
		Str("path", path).
		Int("status", statusCode).
		Dur("duration", duration).
		Str("client_ip", clientIP).
		Msg("HTTP request")
}

// Delivery logs the outcome of one certificate change at a level matching the outcome
func (l *Logger) Delivery(result model.DeliveryResult) {
	var e *zerolog.Event
	switch result.Outcome {
	case model.DeliveryOutcomeSent:
		e = l.Info()
	case model.DeliveryOutcomeFailed:
		e = l.Error().Err(result.Err)
	case model.DeliveryOutcomeDuplicate:
		e = l.Info()
	default:
		e = l.Debug()
	}

	e = e.Str("certificate_id", result.CertificateID).
		Str("outcome", string(result.Outcome))
	if result.EventID != "" {
		e = e.Str("event_id", result.EventID)
	}
	if result.Status != "" {
		e = e.Str("status", string(result.Status))
	}
	if result.Reason != model.SkipReasonNone {
		e = e.Str("reason", string(result.Reason))
	}
	if result.Recipient != "" {
		e = e.Str("recipient", result.Recipient).Str("provider", result.Provider)
	}
	e.Msg("Certificate notification handled")
}
