package observability

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CorrelationHeader carries the request correlation id in and out of the service
const CorrelationHeader = "X-Request-ID"

var (
	globalLogger zerolog.Logger
	initOnce     sync.Once
)

// InitLogger initializes the global structured logger. Only the first call takes effect.
func InitLogger(level string, pretty bool) {
	initOnce.Do(func() {
		logLevel, err := zerolog.ParseLevel(level)
		if err != nil || level == "" {
			logLevel = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(logLevel)

		if pretty {
			// Pretty console output for development
			output := zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: time.RFC3339,
			}
			globalLogger = zerolog.New(output).With().Timestamp().Logger()
		} else {
			// JSON output for production
			globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		}

		log.Logger = globalLogger
	})
}

// GetLogger returns the global logger
func GetLogger() zerolog.Logger {
	// Initialize with defaults if not already initialized
	InitLogger("info", false)
	return globalLogger
}

// WithCorrelationID creates a logger with a correlation ID
func WithCorrelationID(correlationID string) zerolog.Logger {
	if correlationID == "" {
		correlationID = NewCorrelationID()
	}
	return GetLogger().With().Str("correlation_id", correlationID).Logger()
}

// NewCorrelationID generates a new correlation ID
func NewCorrelationID() string {
	return uuid.New().String()
}

// FromContext returns the request logger stored in ctx, or the global logger
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	l := GetLogger()
	return &l
}

// RequestLogging attaches a correlation-scoped logger to every request and logs its completion
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationHeader)
		if correlationID == "" {
			correlationID = NewCorrelationID()
		}
		logger := WithCorrelationID(correlationID).With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		w.Header().Set(CorrelationHeader, correlationID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(logger.WithContext(r.Context())))

		logger.Info().
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
