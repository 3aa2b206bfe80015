package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/getcooked/interview-gateway/internal/config"
	"github.com/getcooked/interview-gateway/internal/resilience"
)

// Open builds the configured Store. A MongoDB deployment is pinged with backoff
// so a database that is still starting does not fail the boot.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreNone, "":
		return Disabled{}, nil
	case config.StoreSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case config.StoreMongo:
		m, err := NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		err = resilience.Reconnect(ctx, "mongodb", func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return m.Ping(pingCtx)
		}, reconnectConfig(cfg), logger)
		if err != nil {
			m.Close(context.Background())
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func reconnectConfig(cfg *config.Config) *resilience.ReconnectConfig {
	rc := resilience.DefaultReconnectConfig()
	if cfg.ReconnectMaxAttempts > 0 {
		rc.MaxAttempts = cfg.ReconnectMaxAttempts
	}
	if cfg.ReconnectBackoff > 0 {
		rc.Backoff = time.Duration(cfg.ReconnectBackoff) * time.Millisecond
	}
	return rc
}
