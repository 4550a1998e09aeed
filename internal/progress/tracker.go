package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/kokistudios/drill/internal/remote"
)

// Tracker owns the durable completion set: the master set of question ids
// marked done, synchronized against a single versioned document in the
// remote store.
//
// A Tracker is not safe for concurrent use. The design assumes at most one
// in-flight Load or Save per Tracker; callers serialize invocations.
type Tracker struct {
	client  remote.Client
	name    string
	master  map[string]struct{}
	version string
}

// NewTracker builds a tracker for the named remote document.
func NewTracker(client remote.Client, name string) *Tracker {
	return &Tracker{
		client: client,
		name:   name,
		master: make(map[string]struct{}),
	}
}

// Load fetches the remote completion document. A missing document is not an
// error: the master set becomes empty and the next Save will create it. Any
// other failure is returned and leaves prior in-memory state untouched.
func (t *Tracker) Load(ctx context.Context) error {
	doc, err := t.client.Get(ctx, t.name)
	if errors.Is(err, remote.ErrNotFound) {
		t.master = make(map[string]struct{})
		t.version = ""
		return nil
	}
	if err != nil {
		return err
	}

	var ids []string
	if err := json.Unmarshal(doc.Content, &ids); err != nil {
		return fmt.Errorf("invalid completion document %s: %w", t.name, err)
	}

	master := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		master[id] = struct{}{}
	}
	t.master = master
	t.version = doc.Version
	return nil
}

// Save merges delta into the master set and persists it with a conditional
// write. The merge is applied optimistically before the write; if the token
// re-fetch or the write fails, the merge is rolled back so that the master
// set is exactly as it was before the call and delta stays usable for a
// retry. One attempt per call — conflicts are reported, never retried
// internally.
func (t *Tracker) Save(ctx context.Context, delta []string) error {
	if len(delta) == 0 {
		return nil
	}

	// Optimistic merge. Only ids actually added are rolled back on failure.
	var added []string
	for _, id := range delta {
		if _, ok := t.master[id]; ok {
			continue
		}
		t.master[id] = struct{}{}
		added = append(added, id)
	}
	rollback := func() {
		for _, id := range added {
			delete(t.master, id)
		}
	}

	// Re-fetch the current token to shrink the window against concurrent
	// writers. A missing document means we are creating it.
	version := ""
	doc, err := t.client.Get(ctx, t.name)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		// create below with empty token
	case err != nil:
		rollback()
		return fmt.Errorf("refreshing version token: %w", err)
	default:
		version = doc.Version
	}

	content, err := json.Marshal(t.IDs())
	if err != nil {
		rollback()
		return fmt.Errorf("encoding completion set: %w", err)
	}

	newVersion, err := t.client.Put(ctx, t.name, content, version)
	if err != nil {
		rollback()
		return err
	}
	t.version = newVersion
	return nil
}

// Completed reports whether id is in the master set.
func (t *Tracker) Completed(id string) bool {
	_, ok := t.master[id]
	return ok
}

// Len returns the size of the master set.
func (t *Tracker) Len() int {
	return len(t.master)
}

// IDs returns the master set sorted for stable output. Order carries no
// meaning in the persisted document.
func (t *Tracker) IDs() []string {
	ids := make([]string, 0, len(t.master))
	for id := range t.master {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Version returns the last-known remote version token. Empty means the
// document has not been seen remotely.
func (t *Tracker) Version() string {
	return t.version
}
