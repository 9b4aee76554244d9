package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"hanchat/hanchat/types"
)

// FileStore keeps the whole history as one JSON file on disk, the closest
// server-side analog of the browser's localStorage entry.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) ([]types.ChatSession, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sessions []types.ChatSession
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, fmt.Errorf("malformed history at %s: %w", s.path, err)
	}
	return sessions, nil
}

func (s *FileStore) Save(ctx context.Context, sessions []types.ChatSession) error {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), os.ModePerm); err != nil {
		return err
	}
	// write-then-rename so a crash never leaves a half-written history
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
