package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cratesync/cratesync/internal/config"
	"github.com/cratesync/cratesync/internal/crate"
	isync "github.com/cratesync/cratesync/internal/sync"
)

// Sync command flags.
var (
	flagMusicRoot    string
	flagSeratoRoot   string
	flagApply        bool
	flagOverwrite    bool
	flagClean        bool
	flagClearIndex   bool
	flagExtensions   string
	flagDelimiter    string
	flagPathMode     string
	flagBackend      string
	flagIncludeEmpty bool
	flagShowTracks   bool
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync folder structure to Serato crates",
		Long: `Scan the music root and mirror its folder structure into Serato crates.

By default this is a dry run that only prints the plan. Pass --apply to
write crates. Existing crates are never overwritten unless --overwrite (or
--clean) is set. A backup of the existing crate storage is created before
any write.`,
		RunE: runSync,
	}

	cmd.Flags().StringVarP(&flagMusicRoot, "music-root", "m", "", "root folder containing music (scanned recursively)")
	cmd.Flags().StringVarP(&flagSeratoRoot, "serato-root", "s", "", "Serato root folder (default ~/Music/_Serato_)")
	cmd.Flags().BoolVar(&flagApply, "apply", false, "actually write crates (default is dry-run)")
	cmd.Flags().BoolVar(&flagOverwrite, "overwrite", false, "overwrite existing crates with the same name")
	cmd.Flags().BoolVar(&flagClean, "clean", false, "delete ALL existing crates before syncing (backs up first)")
	cmd.Flags().BoolVar(&flagClearIndex, "clear-index", false, "delete the database V2 index after writing so Serato rebuilds it")
	cmd.Flags().StringVarP(&flagExtensions, "extensions", "e", "", "comma-separated audio extensions (default "+config.DefaultExtensions+")")
	cmd.Flags().StringVar(&flagDelimiter, "subcrate-delimiter", "", "delimiter for subcrate names (default %%)")
	cmd.Flags().StringVar(&flagPathMode, "path-mode", "", "track path storage: absolute, relative-to-music-root, relative-to-volume-root")
	cmd.Flags().StringVar(&flagBackend, "backend", "", "destination backend: file or database")
	cmd.Flags().BoolVar(&flagIncludeEmpty, "include-empty", false, "include crates for folders with no audio files")
	cmd.Flags().BoolVar(&flagShowTracks, "tracks", false, "show track names in the plan output")

	return cmd
}

// runSync builds the plan, prints it, and (with --apply) executes it.
func runSync(cmd *cobra.Command, _ []string) error {
	cfg := applySyncFlags(resolvedCfg)
	logger := buildLogger()

	musicRoot, err := resolveMusicRoot(cfg.MusicRoot)
	if err != nil {
		return err
	}

	pathMode, err := crate.ParsePathMode(cfg.PathMode)
	if err != nil {
		return err
	}

	backend, err := isync.ParseBackend(cfg.Backend)
	if err != nil {
		return err
	}

	logger.Info("scanning music folder", "path", musicRoot)

	plan := isync.CreatePlan(musicRoot, cfg.SeratoRoot, isync.PlanOptions{
		Extensions:   config.ParseExtensions(cfg.Extensions),
		IncludeEmpty: cfg.IncludeEmpty,
		Delimiter:    cfg.Delimiter,
	}, logger)

	printPlan(os.Stdout, plan, flagShowTracks)

	if !flagApply {
		statusf("Dry run, no changes made. Add --apply to write crates.\n")
		return nil
	}

	engine := isync.NewEngine(isync.NewSafety(logger), logger)

	opts := isync.Options{
		Overwrite:  flagOverwrite,
		Clean:      flagClean,
		ClearIndex: flagClearIndex,
		Delimiter:  cfg.Delimiter,
		PathMode:   pathMode,
		Backend:    backend,
		LibraryDir: config.SeratoLibraryDir(),
		Progress:   newProgressFunc(plan.TotalCrates),
	}

	res, err := engine.Execute(cmd.Context(), plan, opts)
	if err != nil {
		return err
	}

	statusf("\nSync complete: %d created, %d skipped\n", res.Created, res.Skipped)

	if res.BackupPath != "" {
		statusf("Backup created: %s\n", res.BackupPath)
	}

	return nil
}

// applySyncFlags layers explicitly set CLI flags over the resolved config.
// Returns a copy; the shared config is not mutated.
func applySyncFlags(base *config.Config) *config.Config {
	cfg := *base

	if flagMusicRoot != "" {
		cfg.MusicRoot = flagMusicRoot
	}

	if flagSeratoRoot != "" {
		cfg.SeratoRoot = flagSeratoRoot
	}

	if flagExtensions != "" {
		cfg.Extensions = flagExtensions
	}

	if flagDelimiter != "" {
		cfg.Delimiter = flagDelimiter
	}

	if flagPathMode != "" {
		cfg.PathMode = flagPathMode
	}

	if flagBackend != "" {
		cfg.Backend = flagBackend
	}

	if flagIncludeEmpty {
		cfg.IncludeEmpty = true
	}

	return &cfg
}

// resolveMusicRoot validates and canonicalizes the music root.
func resolveMusicRoot(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("music root is required (--music-root or config)")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving music root: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("music root does not exist: %s", abs)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("music root is not a directory: %s", abs)
	}

	return abs, nil
}

// newProgressFunc returns a per-crate progress callback backed by a
// terminal progress bar, or nil when stderr is not a TTY or quiet mode is
// set (log lines carry the same information).
func newProgressFunc(total int) func(string) {
	if flagQuiet || !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}

	bar := progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("writing crates"),
	)

	return func(string) {
		_ = bar.Add(1)
	}
}
