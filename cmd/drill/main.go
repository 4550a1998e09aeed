package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/drill/internal/catalog"
	drillmcp "github.com/kokistudios/drill/internal/mcp"
	"github.com/kokistudios/drill/internal/picker"
	"github.com/kokistudios/drill/internal/progress"
	"github.com/kokistudios/drill/internal/store"
	"github.com/kokistudios/drill/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "drill",
		Short: "drill — exam question drilling from the terminal",
		Long:  "A CLI tool that picks batches of exam drill questions from a catalog, tracks which ones you have completed, and syncs completion state to a shared remote store.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor)
		},
		Run: func(cmd *cobra.Command, args []string) {
			ui.LogoWithTagline("exam question drilling from the terminal")
			_ = cmd.Help()
		},
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Command groups
	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "progress", Title: "Progress Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	initC := initCmd()
	initC.GroupID = "core"
	catalogC := catalogCmd()
	catalogC.GroupID = "core"
	pickC := pickCmd()
	pickC.GroupID = "core"
	doctorC := doctorCmd()
	doctorC.GroupID = "core"

	doneC := doneCmd()
	doneC.GroupID = "progress"
	syncC := syncCmd()
	syncC.GroupID = "progress"
	statusC := statusCmd()
	statusC.GroupID = "progress"
	resetC := resetCmd()
	resetC.GroupID = "progress"

	configC := configCmd()
	configC.GroupID = "config"

	rootCmd.AddCommand(initC)
	rootCmd.AddCommand(catalogC)
	rootCmd.AddCommand(pickC)
	rootCmd.AddCommand(doneC)
	rootCmd.AddCommand(syncC)
	rootCmd.AddCommand(statusC)
	rootCmd.AddCommand(resetC)
	rootCmd.AddCommand(configC)
	rootCmd.AddCommand(doctorC)
	rootCmd.AddCommand(mcpServeCmd())
	rootCmd.AddCommand(completionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize DRILL_HOME directory structure",
		Long:    "Create the DRILL_HOME directory (~/.drill by default) with a default config.yaml. Run this once before using any other drill commands.",
		Example: "  drill init\n  drill init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.Logo()
			ui.Success("drill initialized")
			ui.Detail("Home:", home)
			ui.Detail("Next:", "drill config set catalog.path <file> && drill config set remote.url <url>")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if DRILL_HOME already exists")
	return cmd
}

func loadStore() (*store.Store, error) {
	s, err := store.Load(store.Home())
	if err != nil {
		return nil, fmt.Errorf("drill not initialized — run 'drill init' first: %w", err)
	}
	return s, nil
}

func loadCatalog(s *store.Store) (*catalog.Catalog, error) {
	path := s.Config.Catalog.Path
	if path == "" {
		return nil, fmt.Errorf("catalog.path is not configured — run 'drill config set catalog.path <file>'")
	}
	return catalog.Load(path)
}

// loadTracker builds the completion tracker and fetches the remote set.
// A missing remote document is fine: it means nothing is completed yet.
func loadTracker(ctx context.Context, s *store.Store) (*progress.Tracker, error) {
	t, err := progress.NewTrackerFromStore(s)
	if err != nil {
		return nil, err
	}
	if err := t.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading completion set: %w", err)
	}
	if t.Version() == "" {
		ui.Logger.Info("no remote completion document yet, starting from an empty set",
			"file", s.Config.Remote.File)
	}
	return t, nil
}

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Show the question catalog",
		Long:  "List categories and subcategories from the configured catalog file, with question counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			c, err := loadCatalog(s)
			if err != nil {
				return err
			}

			records := c.Flatten()
			if len(records) == 0 {
				ui.EmptyState("Catalog is empty.")
				return nil
			}

			counts := make(map[string]int)
			for _, r := range records {
				counts[r.Category]++
			}

			var rows [][]string
			for _, name := range c.Categories() {
				rows = append(rows, []string{
					name,
					strings.Join(c.Subcategories(name), ", "),
					fmt.Sprintf("%d", counts[name]),
				})
			}
			ui.Table([]string{"CATEGORY", "SUBCATEGORIES", "QUESTIONS"}, rows)
			ui.Info(fmt.Sprintf("%d questions total", len(records)))
			return nil
		},
	}
}

func pickCmd() *cobra.Command {
	var (
		count       int
		category    string
		subcategory string
		balanced    bool
		seed        int64
		markdown    bool
	)
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Draw a batch of drill questions",
		Long: `Draw a batch of questions from the catalog, excluding everything already
completed (remote) or marked done but not yet synced (local).

By default questions are drawn uniformly at random. With --balanced the draw
rotates across categories so each contributes evenly; this only changes
anything when the pool spans more than one category.`,
		Example: `  drill pick
  drill pick --count 5 --category Chem
  drill pick --balanced
  drill pick --seed 7 --markdown`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			c, err := loadCatalog(s)
			if err != nil {
				return err
			}
			t, err := loadTracker(cmd.Context(), s)
			if err != nil {
				return err
			}
			pendingIDs, err := progress.LoadPending(s)
			if err != nil {
				return err
			}
			pending := make(map[string]bool, len(pendingIDs))
			for _, id := range pendingIDs {
				pending[id] = true
			}

			if count <= 0 {
				count = s.Config.Pick.DefaultCount
			}

			var pool []catalog.QuestionRecord
			for _, r := range catalog.Filter(c.Flatten(), category, subcategory) {
				if t.Completed(r.ID) || pending[r.ID] {
					continue
				}
				pool = append(pool, r)
			}
			if len(pool) == 0 {
				if category != "" {
					ui.EmptyState(fmt.Sprintf("No questions left in %s. Broaden the filter or check 'drill status'.", ui.Category(category)))
				} else {
					ui.EmptyState("No questions left in the pool. Check 'drill status'.")
				}
				return nil
			}

			mode := picker.ModeRandom
			if balanced || (s.Config.Pick.Balanced && !cmd.Flags().Changed("balanced")) {
				mode = picker.ModeBalanced
			}
			if category != "" && mode == picker.ModeBalanced {
				// Single pinned category: balanced degenerates to random.
				mode = picker.ModeRandom
			}

			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			rng := rand.New(rand.NewSource(seed))

			picked := picker.Pick(pool, count, mode, rng)

			if markdown {
				ui.RenderMarkdown(pickSheet(picked, mode))
			} else {
				var rows [][]string
				for i, r := range picked {
					rows = append(rows, []string{
						fmt.Sprintf("%d", i+1), r.ID, r.Category, r.Subcategory, r.Label,
					})
				}
				ui.Table([]string{"#", "ID", "CATEGORY", "SUBCATEGORY", "LABEL"}, rows)
			}

			if len(picked) < count {
				ui.Warning(fmt.Sprintf("Only %d questions remain in the selected pool.", len(picked)))
			}
			ui.Info("Mark finished questions with 'drill done <id>', then 'drill sync'.")
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of questions to draw (default from config)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Restrict to one category")
	cmd.Flags().StringVarP(&subcategory, "subcategory", "s", "", "Restrict to one subcategory")
	cmd.Flags().BoolVar(&balanced, "balanced", false, "Spread draws evenly across categories")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed the random draw for a reproducible batch")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Render the batch as a styled markdown sheet")
	return cmd
}

// pickSheet renders a picked batch as a markdown worksheet with one section
// per category. Balanced draws interleave categories, so records are grouped
// first; categories appear in draw order.
func pickSheet(picked []catalog.QuestionRecord, mode picker.Mode) string {
	groups := make(map[string][]catalog.QuestionRecord)
	var order []string
	for _, r := range picked {
		if _, ok := groups[r.Category]; !ok {
			order = append(order, r.Category)
		}
		groups[r.Category] = append(groups[r.Category], r)
	}

	var b strings.Builder
	b.WriteString("# Drill sheet\n\n")
	b.WriteString(fmt.Sprintf("%d questions · %s draw\n\n", len(picked), mode))

	for _, cat := range order {
		b.WriteString(fmt.Sprintf("## %s\n\n", cat))
		for _, r := range groups[cat] {
			b.WriteString(fmt.Sprintf("- [ ] **%s / %s** — `%s`\n", r.Subcategory, r.Label, r.ID))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>...",
		Short: "Mark questions as completed",
		Long: `Mark one or more questions as completed in the current session. Completions
are staged locally in DRILL_HOME until 'drill sync' pushes them to the remote
store. A question that is already completed cannot be marked again.`,
		Example: "  drill done Chem_P1_2020\n  drill done Chem_P1_2020 Bio_P1_2019",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			c, err := loadCatalog(s)
			if err != nil {
				return err
			}
			idx := catalog.Index(c.Flatten())
			for _, id := range args {
				if _, ok := idx[id]; !ok {
					return fmt.Errorf("unknown question id: %s (check 'drill catalog')", id)
				}
			}

			t, err := loadTracker(cmd.Context(), s)
			if err != nil {
				return err
			}

			added, err := progress.AddPending(s, t, args)
			if err != nil {
				return err
			}

			pendingIDs, err := progress.LoadPending(s)
			if err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Marked %d question(s) done", len(added)))
			ui.Detail("Staged:", fmt.Sprintf("%d pending sync — run 'drill sync' to persist", len(pendingIDs)))
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push staged completions to the remote store",
		Long: `Merge locally staged completions into the remote completion document using
a version-guarded conditional write. If the document changed under us the
write is rejected, nothing local is lost, and the sync can simply be re-run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			ui.Status("Syncing completion state with the remote store")
			t, err := loadTracker(cmd.Context(), s)
			if err != nil {
				return err
			}

			n, err := progress.SyncPending(cmd.Context(), s, t)
			if err != nil {
				return fmt.Errorf("sync failed (staged completions preserved, re-run 'drill sync' to retry): %w", err)
			}
			if n == 0 {
				ui.EmptyState("Nothing staged — already in sync.")
				return nil
			}
			ui.Success(fmt.Sprintf("Synced %d completion(s)", n))
			ui.Detail("Completed:", fmt.Sprintf("%d questions total", t.Len()))
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show drilling progress",
		Long:  "Show total, completed, staged, and remaining question counts, with a per-category breakdown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			c, err := loadCatalog(s)
			if err != nil {
				return err
			}
			t, err := loadTracker(cmd.Context(), s)
			if err != nil {
				return err
			}
			pendingIDs, err := progress.LoadPending(s)
			if err != nil {
				return err
			}
			pending := make(map[string]bool, len(pendingIDs))
			for _, id := range pendingIDs {
				pending[id] = true
			}

			records := catalog.Filter(c.Flatten(), category, "")
			if len(records) == 0 {
				ui.EmptyState("No questions match.")
				return nil
			}

			type tally struct{ total, completed, pending int }
			byCat := make(map[string]*tally)
			var order []string
			var overall tally
			for _, r := range records {
				tl, ok := byCat[r.Category]
				if !ok {
					tl = &tally{}
					byCat[r.Category] = tl
					order = append(order, r.Category)
				}
				tl.total++
				overall.total++
				if t.Completed(r.ID) {
					tl.completed++
					overall.completed++
				} else if pending[r.ID] {
					tl.pending++
					overall.pending++
				}
			}

			ui.SectionHeader("PROGRESS")
			var rows [][]string
			for _, name := range order {
				tl := byCat[name]
				rows = append(rows, []string{
					name,
					fmt.Sprintf("%d", tl.total),
					fmt.Sprintf("%d", tl.completed),
					fmt.Sprintf("%d", tl.pending),
					fmt.Sprintf("%d", tl.total-tl.completed-tl.pending),
				})
			}
			ui.Table([]string{"CATEGORY", "TOTAL", "DONE", "STAGED", "LEFT"}, rows)

			ui.KeyValue("Completed:", fmt.Sprintf("%d / %d", overall.completed, overall.total))
			if overall.pending > 0 {
				ui.Warning(fmt.Sprintf("%d completion(s) staged locally — run 'drill sync'", overall.pending))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Limit to one category")
	return cmd
}

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard staged completions",
		Long:  "Discard locally staged completions that have not been synced. The remote completion set is not touched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			pendingIDs, err := progress.LoadPending(s)
			if err != nil {
				return err
			}
			if len(pendingIDs) == 0 {
				ui.EmptyState("Nothing staged.")
				return nil
			}

			if !yes {
				proceed, err := ui.Confirm(fmt.Sprintf("Discard %d staged completion(s)?", len(pendingIDs)))
				if err != nil {
					return err
				}
				if !proceed {
					ui.Info("Cancelled.")
					return nil
				}
			}

			if err := progress.ClearPending(s); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Discarded %d staged completion(s)", len(pendingIDs)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit drill configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configGetCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func configGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Read a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			value, err := s.GetConfigValue(args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a drill configuration value. Valid keys: catalog.path, remote.url, remote.token, remote.file, remote.timeout_seconds, pick.default_count, pick.balanced.",
		Example: `  drill config set catalog.path ~/exams/catalog.yaml
  drill config set remote.url https://store.example.com/files
  drill config set pick.default_count 5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check health of the drill store",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()

			if _, err := store.Load(home); err != nil {
				return fmt.Errorf("drill not initialized — run 'drill init' first: %w", err)
			}

			if fix {
				ui.CommandBanner("DOCTOR", "repair mode")
				fixed := store.FixIssues(home)
				for _, f := range fixed {
					ui.Success(fmt.Sprintf("[FIXED] %s", f))
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			} else {
				ui.CommandBanner("DOCTOR", "health check")
			}

			issues := store.CheckHealth(home)
			if len(issues) == 0 {
				ui.Success("Everything looks good")
				return nil
			}

			hasError := false
			for _, issue := range issues {
				if issue.Severity == "error" {
					ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
					hasError = true
				} else {
					ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
				}
			}

			if hasError {
				os.Exit(2)
			}
			os.Exit(1)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Repair simple issues (recreate missing config)")
	return cmd
}

func mcpServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "mcp-serve",
		Short:  "Run drill as an MCP server",
		Long:   "Start drill as a Model Context Protocol (MCP) server over stdio, exposing pick/done/sync/status to MCP-compatible tools.",
		Hidden: true, // Not typically called directly by users
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}

			server := drillmcp.NewServer(s, version)
			ui.Logger.Info("drill MCP server listening on stdio", "version", buildVersion())
			return server.Run(context.Background())
		},
	}
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Long:      "Generate shell completion scripts for bash, zsh, or fish. Output the script to stdout for sourcing in your shell profile.",
		Example:   "  drill completion bash > ~/.bashrc.d/drill\n  drill completion zsh > ~/.zfunc/_drill\n  drill completion fish > ~/.config/fish/completions/drill.fish",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}
