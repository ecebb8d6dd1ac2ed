// Package cmd wires the CLI surface: alias resolution, configuration
// loading and engine construction.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/olivertz/playlist-sync/config"
	"github.com/olivertz/playlist-sync/internal/downloader"
	"github.com/olivertz/playlist-sync/internal/sponsorblock"
	"github.com/olivertz/playlist-sync/internal/storage"
	"github.com/olivertz/playlist-sync/internal/syncer"
	"github.com/olivertz/playlist-sync/internal/tagger"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "playlist-sync [alias|url]",
	Short: "Keep a local media directory in sync with a remote playlist",
	Long: `playlist-sync mirrors a remote playlist into the current directory.

It downloads missing items, removes orphans, keeps filenames and tags
canonical, and re-downloads items whose third-party segment annotations
changed upstream. Sync state is committed atomically at the end of a
successful run, so an interrupted run never loses prior progress.

The argument is either a configured alias or a literal playlist URL.
Without an argument the current directory's name is looked up in the
configured directory aliases.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSync,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to the config file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command with the given signal-aware context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func runSync(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}

	url, err := resolveSource(cfg, workDir, args)
	if err != nil {
		return err
	}

	deps := syncer.Deps{
		Lister:    listerFor(cfg, workDir),
		Fetcher:   downloader.NewYtdlpFetcher(workDir, cfg.YtdlpConfig, cfg.FileExtension, cfg.Timeout()),
		Annotator: sponsorblock.NewClient("", cfg.SBDelay()),
		Tagger:    tagger.NewFFmpeg(nil),
		Mirror:    mirrorFor(cmd.Context(), cfg),
	}

	return syncer.New(workDir, cfg, deps).Run(cmd.Context(), url)
}

func resolveSource(cfg *config.Config, workDir string, args []string) (string, error) {
	if len(args) == 0 {
		dirname := filepath.Base(workDir)
		url, ok := cfg.ResolveDir(dirname)
		if !ok {
			return "", fmt.Errorf("no playlist alias configured for directory %q; pass an alias or URL", dirname)
		}
		slog.Info("auto-detected playlist from directory name", "dir", dirname)
		return url, nil
	}

	url, ok := cfg.Resolve(args[0])
	if !ok {
		return "", fmt.Errorf("unknown alias or URL: %s", args[0])
	}
	return url, nil
}

func listerFor(cfg *config.Config, workDir string) *downloader.YtdlpLister {
	lister := downloader.NewYtdlpLister(workDir)
	lister.Timeout = cfg.Timeout()
	return lister
}

// mirrorFor builds the optional archive mirror. A misconfigured mirror
// is reported and disabled rather than blocking the sync.
func mirrorFor(ctx context.Context, cfg *config.Config) storage.Storage {
	switch cfg.Storage.Type {
	case "", "none":
		return nil
	case "local":
		mirror, err := storage.NewLocalMirror(cfg.Storage.MirrorDir)
		if err != nil {
			slog.Warn("archive mirror disabled", "error", err)
			return nil
		}
		return mirror
	case "gcs":
		mirror, err := storage.NewGCSMirror(ctx, cfg.Storage.Bucket, cfg.Storage.Prefix, cfg.Storage.CredentialsFile)
		if err != nil {
			slog.Warn("archive mirror disabled", "error", err)
			return nil
		}
		return mirror
	default:
		slog.Warn("unknown storage type, archive mirror disabled", "type", cfg.Storage.Type)
		return nil
	}
}
