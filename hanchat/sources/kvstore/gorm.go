package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hanchat/hanchat/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type historyRecord struct {
	Key       string `gorm:"primaryKey;type:varchar(255)"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (historyRecord) TableName() string {
	return "chat_history"
}

// GormStore keeps the history under HistoryKey in a one-row key-value
// table. The same code serves the sqlite and postgres dialectors.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&historyRecord{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Load(ctx context.Context) ([]types.ChatSession, error) {
	var rec historyRecord
	err := s.db.WithContext(ctx).First(&rec, "key = ?", HistoryKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sessions []types.ChatSession
	if err := json.Unmarshal([]byte(rec.Value), &sessions); err != nil {
		return nil, fmt.Errorf("malformed history under %s: %w", HistoryKey, err)
	}
	return sessions, nil
}

func (s *GormStore) Save(ctx context.Context, sessions []types.ChatSession) error {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	rec := historyRecord{Key: HistoryKey, Value: string(raw), UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, UpdateAll: true}).
		Create(&rec).Error
}
