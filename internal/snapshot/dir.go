package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"linked-go/internal/game"
)

// DirStore writes one JSON file per match and player under a directory.
type DirStore struct {
	dir string
	now func() time.Time
}

func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir, now: time.Now}
}

func (s *DirStore) path(matchID, playerID string) string {
	return filepath.Join(s.dir, matchID+"_"+playerID+".json")
}

func (s *DirStore) Save(ctx context.Context, playerID string, match *game.Match) error {
	if err := validKey(match.ID, playerID); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	data, err := json.Marshal(Snapshot{
		MatchID:  match.ID,
		PlayerID: playerID,
		Match:    match,
		SavedAt:  s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(match.ID, playerID)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (s *DirStore) Load(ctx context.Context, matchID, playerID string) (*Snapshot, error) {
	if err := validKey(matchID, playerID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(matchID, playerID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}
