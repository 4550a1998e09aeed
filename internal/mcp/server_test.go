package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kokistudios/drill/internal/catalog"
	"github.com/kokistudios/drill/internal/picker"
	"github.com/kokistudios/drill/internal/progress"
	"github.com/kokistudios/drill/internal/remote"
	"github.com/kokistudios/drill/internal/store"
)

const catalogYAML = `Chem:
  P1:
    - "2020"
    - "2021"
Bio:
  P1:
    - "2019"
`

// testServer wires a Server against a temp home, a small catalog, and a
// remote backend that has no completion document yet.
func testServer(t *testing.T) *Server {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(backend.Close)

	home := t.TempDir()
	path := filepath.Join(home, "catalog.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	st := &store.Store{Home: home, Config: store.DefaultConfig()}
	st.Config.Catalog.Path = path
	st.Config.Remote.URL = backend.URL

	return NewServer(st, "test")
}

func TestPickMode(t *testing.T) {
	m, err := pickMode("")
	if err != nil {
		t.Fatalf("pickMode(\"\") error = %v", err)
	}
	if m != picker.ModeRandom {
		t.Errorf("pickMode(\"\") = %q, want %q", m, picker.ModeRandom)
	}

	m, err = pickMode("balanced")
	if err != nil {
		t.Fatalf("pickMode(balanced) error = %v", err)
	}
	if m != picker.ModeBalanced {
		t.Errorf("pickMode(balanced) = %q, want %q", m, picker.ModeBalanced)
	}

	if _, err := pickMode("alphabetical"); err == nil {
		t.Error("pickMode(alphabetical) expected error, got nil")
	}
}

func TestHandlePickBalancedSpansCategories(t *testing.T) {
	s := testServer(t)

	_, out, err := s.handlePick(context.Background(), nil, PickArgs{Count: 2, Mode: "balanced"})
	if err != nil {
		t.Fatalf("handlePick error = %v", err)
	}
	res, ok := out.(PickResult)
	if !ok {
		t.Fatalf("handlePick result type = %T, want PickResult", out)
	}

	if len(res.Questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(res.Questions))
	}
	cats := make(map[string]int)
	for _, q := range res.Questions {
		cats[q.Category]++
	}
	if cats["Chem"] != 1 || cats["Bio"] != 1 {
		t.Errorf("balanced pick distribution = %v, want one from each category", cats)
	}
}

func TestHandlePickRejectsUnknownMode(t *testing.T) {
	s := testServer(t)

	_, _, err := s.handlePick(context.Background(), nil, PickArgs{Mode: "alphabetical"})
	if err == nil {
		t.Fatal("expected error for unknown mode, got nil")
	}
	if !strings.Contains(err.Error(), "unknown pick mode") {
		t.Errorf("error = %v, want mention of unknown pick mode", err)
	}
}

type fixedClient struct {
	content []byte
	version string
}

func (f *fixedClient) Get(ctx context.Context, name string) (remote.Document, error) {
	if f.version == "" {
		return remote.Document{}, remote.ErrNotFound
	}
	return remote.Document{Content: f.content, Version: f.version}, nil
}

func (f *fixedClient) Put(ctx context.Context, name string, content []byte, version string) (string, error) {
	return "v-next", nil
}

func TestBuildPoolExcludesCompletedAndPending(t *testing.T) {
	c, err := catalog.Parse([]byte(catalogYAML))
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	tr := progress.NewTracker(&fixedClient{content: []byte(`["Chem_P1_2020"]`), version: "v1"}, "completed.json")
	if err := tr.Load(context.Background()); err != nil {
		t.Fatalf("Load error = %v", err)
	}

	pool := buildPool(c, tr, []string{"Chem_P1_2021"}, "", "")
	if len(pool) != 1 {
		t.Fatalf("pool size = %d, want 1", len(pool))
	}
	if pool[0].ID != "Bio_P1_2019" {
		t.Errorf("pool[0].ID = %q, want Bio_P1_2019", pool[0].ID)
	}
}
