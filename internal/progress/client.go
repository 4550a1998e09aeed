package progress

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kokistudios/drill/internal/remote"
	"github.com/kokistudios/drill/internal/store"
)

// NewTrackerFromStore builds a Tracker against the remote store configured
// in DRILL_HOME.
func NewTrackerFromStore(s *store.Store) (*Tracker, error) {
	cfg := s.Config.Remote
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote.url is not configured — run 'drill config set remote.url <url>'")
	}
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	return NewTracker(remote.NewHTTPClient(cfg.URL, cfg.Token, httpClient), cfg.File), nil
}
