package mcp

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kokistudios/drill/internal/catalog"
	"github.com/kokistudios/drill/internal/picker"
	"github.com/kokistudios/drill/internal/progress"
	"github.com/kokistudios/drill/internal/store"
)

// Server wraps the MCP server with drill's store.
type Server struct {
	store  *store.Store
	server *mcp.Server
}

// NewServer creates a new drill MCP server.
func NewServer(st *store.Store, version string) *Server {
	s := &Server{store: st}

	impl := &mcp.Implementation{
		Name:    "drill",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds all drill tools to the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "drill_categories",
		Description: "List the question catalog: categories, their subcategories, and question counts. " +
			"START HERE to discover what can be filtered on before calling drill_pick.",
	}, s.handleCategories)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "drill_pick",
		Description: "Draw a batch of drill questions. Already-completed and locally-pending questions are " +
			"excluded automatically. Filter with category/subcategory; set mode=balanced to spread the batch " +
			"evenly across categories (only meaningful when no single category is pinned; default is random). " +
			"Returns at most count questions — fewer when the remaining pool is smaller.",
	}, s.handlePick)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "drill_done",
		Description: "Mark questions as completed in the current session. Completions are staged locally " +
			"until drill_sync pushes them to the remote store. Rejects ids that are already completed " +
			"or already staged.",
	}, s.handleDone)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "drill_sync",
		Description: "Push locally staged completions to the remote store using a conditional write. " +
			"On a version conflict nothing is lost: the staged completions remain and the sync can " +
			"simply be called again.",
	}, s.handleSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "drill_status",
		Description: "Summarize progress: total questions, completed, staged (pending sync), and remaining, " +
			"with a per-category breakdown.",
	}, s.handleStatus)
}

func (s *Server) loadCatalog() (*catalog.Catalog, error) {
	path := s.store.Config.Catalog.Path
	if path == "" {
		return nil, fmt.Errorf("catalog.path is not configured — run 'drill config set catalog.path <file>'")
	}
	return catalog.Load(path)
}

func (s *Server) loadTracker(ctx context.Context) (*progress.Tracker, error) {
	t, err := progress.NewTrackerFromStore(s.store)
	if err != nil {
		return nil, err
	}
	if err := t.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading completion set: %w", err)
	}
	return t, nil
}

// CategoriesArgs defines the input for drill_categories.
type CategoriesArgs struct{}

// CategoryInfo describes one catalog category.
type CategoryInfo struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
	Questions     int      `json:"questions"`
}

// CategoriesResult is the output of drill_categories.
type CategoriesResult struct {
	Categories []CategoryInfo `json:"categories"`
	Total      int            `json:"total"`
}

func (s *Server) handleCategories(ctx context.Context, req *mcp.CallToolRequest, args CategoriesArgs) (*mcp.CallToolResult, any, error) {
	c, err := s.loadCatalog()
	if err != nil {
		return nil, nil, err
	}

	records := c.Flatten()
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Category]++
	}

	out := CategoriesResult{Total: len(records)}
	for _, name := range c.Categories() {
		out.Categories = append(out.Categories, CategoryInfo{
			Name:          name,
			Subcategories: c.Subcategories(name),
			Questions:     counts[name],
		})
	}
	return nil, out, nil
}

// PickArgs defines the input for drill_pick.
type PickArgs struct {
	Count       int    `json:"count,omitempty" jsonschema:"How many questions to draw (default: pick.default_count from config)"`
	Category    string `json:"category,omitempty" jsonschema:"Restrict the pool to one category (optional)"`
	Subcategory string `json:"subcategory,omitempty" jsonschema:"Restrict the pool to one subcategory (optional, requires category)"`
	Mode        string `json:"mode,omitempty" jsonschema:"Draw policy: random (default) or balanced (spread draws evenly across categories)"`
}

// PickedQuestion is one drawn question.
type PickedQuestion struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Label       string `json:"label"`
}

// PickResult is the output of drill_pick.
type PickResult struct {
	Questions []PickedQuestion `json:"questions"`
	Remaining int              `json:"remaining"`
	Message   string           `json:"message,omitempty"`
}

func (s *Server) handlePick(ctx context.Context, req *mcp.CallToolRequest, args PickArgs) (*mcp.CallToolResult, any, error) {
	mode, err := pickMode(args.Mode)
	if err != nil {
		return nil, nil, err
	}

	c, err := s.loadCatalog()
	if err != nil {
		return nil, nil, err
	}
	t, err := s.loadTracker(ctx)
	if err != nil {
		return nil, nil, err
	}
	pendingIDs, err := progress.LoadPending(s.store)
	if err != nil {
		return nil, nil, err
	}

	count := args.Count
	if count <= 0 {
		count = s.store.Config.Pick.DefaultCount
	}

	pool := buildPool(c, t, pendingIDs, args.Category, args.Subcategory)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	picked := picker.Pick(pool, count, mode, rng)

	out := PickResult{Remaining: len(pool) - len(picked)}
	for _, r := range picked {
		out.Questions = append(out.Questions, PickedQuestion{
			ID:          r.ID,
			Category:    r.Category,
			Subcategory: r.Subcategory,
			Label:       r.Label,
		})
	}
	if len(picked) == 0 {
		out.Message = "No questions left in the selected pool. Broaden the filter or sync and check drill_status."
	} else if len(picked) < count {
		out.Message = fmt.Sprintf("Only %d questions remain in the selected pool.", len(picked))
	}
	return nil, out, nil
}

// pickMode maps the tool's optional mode argument to a draw policy.
func pickMode(s string) (picker.Mode, error) {
	if s == "" {
		return picker.ModeRandom, nil
	}
	return picker.ParseMode(s)
}

// buildPool filters the catalog and drops completed and pending ids.
func buildPool(c *catalog.Catalog, t *progress.Tracker, pendingIDs []string, category, subcategory string) []catalog.QuestionRecord {
	pending := make(map[string]bool, len(pendingIDs))
	for _, id := range pendingIDs {
		pending[id] = true
	}

	var pool []catalog.QuestionRecord
	for _, r := range catalog.Filter(c.Flatten(), category, subcategory) {
		if t.Completed(r.ID) || pending[r.ID] {
			continue
		}
		pool = append(pool, r)
	}
	return pool
}

// DoneArgs defines the input for drill_done.
type DoneArgs struct {
	IDs []string `json:"ids" jsonschema:"Question ids to mark completed (e.g. Chem_P1_2020)"`
}

// DoneResult is the output of drill_done.
type DoneResult struct {
	Added   []string `json:"added"`
	Pending int      `json:"pending"`
	Message string   `json:"message,omitempty"`
}

func (s *Server) handleDone(ctx context.Context, req *mcp.CallToolRequest, args DoneArgs) (*mcp.CallToolResult, any, error) {
	if len(args.IDs) == 0 {
		return nil, nil, fmt.Errorf("at least one question id is required")
	}

	c, err := s.loadCatalog()
	if err != nil {
		return nil, nil, err
	}
	idx := catalog.Index(c.Flatten())
	for _, id := range args.IDs {
		if _, ok := idx[id]; !ok {
			return nil, nil, fmt.Errorf("unknown question id: %s", id)
		}
	}

	t, err := s.loadTracker(ctx)
	if err != nil {
		return nil, nil, err
	}

	added, err := progress.AddPending(s.store, t, args.IDs)
	if err != nil {
		return nil, nil, err
	}

	pending, err := progress.LoadPending(s.store)
	if err != nil {
		return nil, nil, err
	}
	return nil, DoneResult{
		Added:   added,
		Pending: len(pending),
		Message: "Staged locally. Call drill_sync to persist to the remote store.",
	}, nil
}

// SyncArgs defines the input for drill_sync.
type SyncArgs struct{}

// SyncResult is the output of drill_sync.
type SyncResult struct {
	Synced    int    `json:"synced"`
	Completed int    `json:"completed"`
	Message   string `json:"message,omitempty"`
}

func (s *Server) handleSync(ctx context.Context, req *mcp.CallToolRequest, args SyncArgs) (*mcp.CallToolResult, any, error) {
	t, err := s.loadTracker(ctx)
	if err != nil {
		return nil, nil, err
	}

	n, err := progress.SyncPending(ctx, s.store, t)
	if err != nil {
		return nil, nil, fmt.Errorf("sync failed (staged completions preserved, retry with drill_sync): %w", err)
	}

	out := SyncResult{Synced: n, Completed: t.Len()}
	if n == 0 {
		out.Message = "Nothing staged — already in sync."
	}
	return nil, out, nil
}

// StatusArgs defines the input for drill_status.
type StatusArgs struct {
	Category string `json:"category,omitempty" jsonschema:"Limit the breakdown to one category (optional)"`
}

// CategoryProgress is the per-category completion breakdown.
type CategoryProgress struct {
	Category  string `json:"category"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Pending   int    `json:"pending"`
	Remaining int    `json:"remaining"`
}

// StatusResult is the output of drill_status.
type StatusResult struct {
	Total      int                `json:"total"`
	Completed  int                `json:"completed"`
	Pending    int                `json:"pending"`
	Remaining  int                `json:"remaining"`
	Categories []CategoryProgress `json:"categories"`
}

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	c, err := s.loadCatalog()
	if err != nil {
		return nil, nil, err
	}
	t, err := s.loadTracker(ctx)
	if err != nil {
		return nil, nil, err
	}
	pendingIDs, err := progress.LoadPending(s.store)
	if err != nil {
		return nil, nil, err
	}
	pending := make(map[string]bool, len(pendingIDs))
	for _, id := range pendingIDs {
		pending[id] = true
	}

	records := catalog.Filter(c.Flatten(), args.Category, "")
	byCat := make(map[string]*CategoryProgress)
	var order []string
	out := StatusResult{}
	for _, r := range records {
		cp, ok := byCat[r.Category]
		if !ok {
			cp = &CategoryProgress{Category: r.Category}
			byCat[r.Category] = cp
			order = append(order, r.Category)
		}
		cp.Total++
		out.Total++
		switch {
		case t.Completed(r.ID):
			cp.Completed++
			out.Completed++
		case pending[r.ID]:
			cp.Pending++
			out.Pending++
		default:
			cp.Remaining++
			out.Remaining++
		}
	}
	for _, name := range order {
		out.Categories = append(out.Categories, *byCat[name])
	}
	return nil, out, nil
}
