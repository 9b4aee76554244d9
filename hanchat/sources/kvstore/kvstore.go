package kvstore

import (
	"context"
	"fmt"
	"time"

	"hanchat/hanchat/config"
	"hanchat/hanchat/types"
	"hanchat/hanchat/utils/logging"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

// HistoryKey is the single key the session list lives under, matching the
// browser client's localStorage entry so histories migrate cleanly.
const HistoryKey = "koreanChatHistory"

// Store mirrors the session list as one JSON array value. It never
// initiates a mutation; it only seeds the initial state (Load) or reacts to
// store changes (Save). Load returns (nil, nil) for a missing key and an
// error for a malformed value; callers treat both as an empty history.
type Store interface {
	Load(ctx context.Context) ([]types.ChatSession, error)
	Save(ctx context.Context, sessions []types.ChatSession) error
}

// Open builds the backend selected by cfg.StorageBackend.
func Open(cfg config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case "file", "":
		return NewFileStore(cfg.StoragePath), nil
	case "sqlite":
		return NewGormStore(sqlite.Open(cfg.StoragePath))
	case "postgres":
		return NewGormStore(postgres.Open(cfg.PostgresDSN()))
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

// Mirror adapts a Store into a session.Store change subscriber. The write
// is best-effort: a failure is logged and swallowed.
func Mirror(st Store) func([]types.ChatSession) {
	return func(sessions []types.ChatSession) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Save(ctx, sessions); err != nil {
			logging.ErrorLogger.Error("history mirror write failed", zap.Error(err))
		}
	}
}
