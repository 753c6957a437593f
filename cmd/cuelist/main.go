package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/jfallow/cuelist/internal/adapter"
	"github.com/jfallow/cuelist/internal/adapter/source/applemusic"
	"github.com/jfallow/cuelist/internal/domain"
	"github.com/jfallow/cuelist/internal/membership"
	"github.com/jfallow/cuelist/internal/store"
)

const usage = `cuelist - playlist membership cache and sync

Usage:
  cuelist check <songID> [altID...]          membership verdicts across playlists
  cuelist apply <songID> [flags]             commit membership changes
      --add id[,id...]      playlists to add the song to
      --remove id[,id...]   playlists to remove the song from
  cuelist playlists [--filter term]          list editable playlists
  cuelist stats                              cache table summary
  cuelist clear                              drop the cache and staleness tracking
  cuelist settings [flags]                   show or change cache settings
      --enabled true|false  toggle caching
      --expiration minutes  freshness window (1-1440)
`

var (
	memberStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	nonMemberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	titleStyle     = lipgloss.NewStyle().Bold(true)
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		return nil
	}

	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	kv, err := store.New(cfg.Cache.Dir, cfg.Server.URL)
	if err != nil {
		return fmt.Errorf("failed to open cache store: %w", err)
	}
	defer kv.Close()

	client := applemusic.NewClient(cfg.Server.URL, cfg.Server.DeveloperToken, cfg.Server.UserToken, logger)
	svc := membership.NewService(client, kv, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "check":
		return runCheck(ctx, svc, os.Args[2:])
	case "apply":
		return runApply(ctx, svc, os.Args[2:])
	case "playlists":
		return runPlaylists(ctx, svc, os.Args[2:])
	case "stats":
		return runStats(svc)
	case "clear":
		return svc.ClearCache()
	case "settings":
		return runSettings(svc, os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

func runCheck(ctx context.Context, svc *membership.Service, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("check requires a song id")
	}
	song := domain.SongRef{ID: args[0], AlternateIDs: args[1:]}

	listing, err := svc.EditablePlaylists(ctx)
	if err != nil {
		return err
	}

	verdicts, err := svc.Reconcile(ctx, song, listing)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled pass is a no-op, not a failure
			return nil
		}
		return err
	}

	fromCache := 0
	for _, v := range verdicts {
		marker := nonMemberStyle.Render("-")
		if v.Member {
			marker = memberStyle.Render("*")
		}
		line := fmt.Sprintf("%s %s", marker, v.Name)
		if v.FromCache {
			fromCache++
			line += dimStyle.Render("  (cached)")
		}
		fmt.Println(line)
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d playlists, %d served from cache", len(verdicts), fromCache)))
	return nil
}

func runApply(ctx context.Context, svc *membership.Service, args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	addIDs := fs.String("add", "", "comma-separated playlist ids to add the song to")
	removeIDs := fs.String("remove", "", "comma-separated playlist ids to remove the song from")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("apply requires a song id")
	}
	song := domain.SongRef{ID: fs.Arg(0), AlternateIDs: fs.Args()[1:]}

	var changes []domain.Change
	for _, id := range splitIDs(*addIDs) {
		changes = append(changes, domain.Change{PlaylistID: id, Add: true})
	}
	for _, id := range splitIDs(*removeIDs) {
		changes = append(changes, domain.Change{PlaylistID: id, Add: false})
	}
	if len(changes) == 0 {
		return fmt.Errorf("nothing to apply: pass --add and/or --remove")
	}

	outcomes, err := svc.Apply(ctx, song, changes)
	for _, o := range outcomes {
		op := "removed from"
		if o.Added {
			op = "added to"
		}
		fmt.Println(memberStyle.Render("ok"), dimStyle.Render(op), o.PlaylistID)
	}
	if err != nil {
		return fmt.Errorf("applied %d of %d changes: %w", len(outcomes), len(changes), err)
	}
	return nil
}

func runPlaylists(ctx context.Context, svc *membership.Service, args []string) error {
	fs := flag.NewFlagSet("playlists", flag.ExitOnError)
	filter := fs.String("filter", "", "fuzzy name filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	listing, err := svc.EditablePlaylists(ctx)
	if err != nil {
		return err
	}
	listing = membership.FilterPlaylists(listing, *filter)

	for _, p := range listing {
		fmt.Printf("%s  %s\n", titleStyle.Render(p.Name), dimStyle.Render(p.ID))
	}
	return nil
}

func runStats(svc *membership.Service) error {
	stats := svc.Stats()

	fmt.Println(titleStyle.Render("Playlist cache"))
	fmt.Printf("  playlists cached:   %d\n", stats.TotalPlaylists)
	fmt.Printf("  expired:            %d\n", stats.ExpiredPlaylists)
	fmt.Printf("  marked modified:    %d\n", stats.ModifiedPlaylists)
	fmt.Printf("  approximate size:   %d bytes\n", stats.ApproximateBytes)
	if !stats.OldestCachedAt.IsZero() {
		fmt.Printf("  oldest entry:       %s\n", stats.OldestCachedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runSettings(svc *membership.Service, args []string) error {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	enabled := fs.String("enabled", "", "enable or disable caching (true/false)")
	expiration := fs.Int("expiration", 0, "expiration in minutes (1-1440)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var patch domain.SettingsPatch
	if *enabled != "" {
		v := strings.EqualFold(*enabled, "true")
		patch.Enabled = &v
	}
	if *expiration != 0 {
		if *expiration < 1 || *expiration > 1440 {
			return fmt.Errorf("expiration must be between 1 and 1440 minutes")
		}
		patch.ExpirationMinutes = expiration
	}
	if patch.Enabled != nil || patch.ExpirationMinutes != nil {
		if err := svc.SaveSettings(patch); err != nil {
			return err
		}
	}

	settings := svc.Settings()
	fmt.Println(titleStyle.Render("Cache settings"))
	fmt.Printf("  enabled:     %v\n", settings.Enabled)
	fmt.Printf("  expiration:  %d minutes\n", settings.ExpirationMinutes)
	return nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
