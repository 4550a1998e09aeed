package progress

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kokistudios/drill/internal/store"
)

// pendingFile holds the session delta: ids marked done locally but not yet
// persisted to the remote store. It survives process restarts so a failed
// sync can be retried later.
const pendingFile = "pending.yaml"

type pendingDoc struct {
	Pending []string `yaml:"pending"`
}

// LoadPending reads the session delta. A missing file means no pending ids.
func LoadPending(s *store.Store) ([]string, error) {
	data, err := os.ReadFile(s.Path(pendingFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read pending file: %w", err)
	}
	var doc pendingDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid pending file: %w", err)
	}
	return doc.Pending, nil
}

func savePending(s *store.Store, ids []string) error {
	data, err := yaml.Marshal(pendingDoc{Pending: ids})
	if err != nil {
		return fmt.Errorf("failed to marshal pending ids: %w", err)
	}
	if err := os.WriteFile(s.Path(pendingFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write pending file: %w", err)
	}
	return nil
}

// AddPending appends ids to the session delta. An id already in the master
// set cannot be re-marked, and an id already pending is rejected rather than
// duplicated. Returns the ids actually added.
func AddPending(s *store.Store, t *Tracker, ids []string) ([]string, error) {
	pending, err := LoadPending(s)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(pending))
	for _, id := range pending {
		seen[id] = true
	}

	var added []string
	for _, id := range ids {
		if t.Completed(id) {
			return nil, fmt.Errorf("question %s is already completed", id)
		}
		if seen[id] {
			return nil, fmt.Errorf("question %s is already pending", id)
		}
		seen[id] = true
		added = append(added, id)
	}

	if err := savePending(s, append(pending, added...)); err != nil {
		return nil, err
	}
	return added, nil
}

// ClearPending empties the session delta. Call only after a successful Save.
func ClearPending(s *store.Store) error {
	err := os.Remove(s.Path(pendingFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear pending file: %w", err)
	}
	return nil
}

// SyncPending pushes the session delta through the tracker's save protocol
// and clears it on success. Returns the number of ids synced. A failed save
// leaves both the master set and the pending file unchanged, so the sync can
// simply be re-run.
func SyncPending(ctx context.Context, s *store.Store, t *Tracker) (int, error) {
	pending, err := LoadPending(s)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	if err := t.Save(ctx, pending); err != nil {
		return 0, err
	}
	if err := ClearPending(s); err != nil {
		return 0, err
	}
	return len(pending), nil
}
