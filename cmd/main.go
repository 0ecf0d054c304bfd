package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/surrender/internal/adapters/espn"
	"github.com/okian/surrender/internal/adapters/http/api"
	"github.com/okian/surrender/internal/adapters/notify"
	"github.com/okian/surrender/internal/adapters/social"
	app "github.com/okian/surrender/internal/app"
	"github.com/okian/surrender/internal/config"
	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	err := newApp().Run(os.Args)
	_ = logger.Sync()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "surrender",
		Usage:          "score NFL punts by their Surrender Index",
		DefaultCommand: "run",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"SURRENDER_CONFIG"}},
			&cli.BoolFlag{Name: "debug", Usage: "log at debug level"},
		},
		// Logs go to ErrWriter so replay output on Writer stays clean.
		Before: func(c *cli.Context) error {
			if err := logger.InitWithWriter(c.App.ErrWriter); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			return nil
		},
		Commands: []*cli.Command{runCommand(), replayCommand()},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "poll live games and publish punts",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "disable-publishing", Usage: "log posts instead of publishing them"},
			&cli.BoolFlag{Name: "disable-notifications", Usage: "suppress operator notifications"},
			&cli.BoolFlag{Name: "disable-final-check", Usage: "keep polling games after they report final"},
			&cli.BoolFlag{Name: "disable-cancel", Usage: "skip the cancellation poll for notable punts"},
		},
		Action: run,
	}
}

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "score saved ESPN summary files without publishing",
		ArgsUsage: "SUMMARY.json...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "persist", Usage: "append replayed scores to the current season"},
		},
		Action: replay,
	}
}

// loadConfig layers the CLI flags over the loaded configuration.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.Context, c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if c.Bool("debug") {
		cfg.LogLevel = "debug"
	}
	if c.Bool("disable-publishing") {
		cfg.PublishingEnabled = false
	}
	if c.Bool("disable-notifications") {
		cfg.NotificationsEnabled = false
	}
	if c.Bool("disable-final-check") {
		cfg.FinalCheckEnabled = false
	}
	if c.Bool("disable-cancel") {
		cfg.CancelEnabled = false
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(c.Context, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := app.New(cfg, app.WithLogger(log))
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	mux := http.NewServeMux()
	api.NewServer(svc).Register(mux)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	runErr := svc.Run(ctx)
	log.Info(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "stopped")
	return runErr
}

func replay(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("replay needs at least one summary file")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.PublishingEnabled = false
	cfg.NotificationsEnabled = false
	cfg.CancelEnabled = false

	if !c.Bool("persist") {
		dir, err := os.MkdirTemp("", "surrender-replay-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		if err := scratchState(cfg, dir); err != nil {
			return err
		}
	}

	log := logger.Get()
	dry := social.NewDryRun(social.WithDryRunLogger(log.Named("replay")))
	svc := app.New(cfg,
		app.WithLogger(log),
		app.WithPublisher(dry),
		app.WithNotifySender(notify.NewLog(log)))
	if err := svc.Start(c.Context); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() { _ = svc.Stop(context.WithoutCancel(c.Context)) }()

	for _, path := range c.Args().Slice() {
		game, err := readSummary(path)
		if err != nil {
			return err
		}
		n := svc.Pipeline().Process(c.Context, game)
		log.Info(c.Context, "summary replayed", logger.String("file", path), logger.Int("published", n))
	}

	w := c.App.Writer
	for _, a := range dry.Actions() {
		fmt.Fprintf(w, "[%s %s]\n%s\n\n", a.Op, a.Feed, a.Text)
	}
	return nil
}

func readSummary(path string) (model.GameContext, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.GameContext{}, err
	}
	defer f.Close()
	game, err := espn.ParseSummary(f)
	if err != nil {
		return model.GameContext{}, fmt.Errorf("%s: %w", path, err)
	}
	return game, nil
}

// scratchState points the mutable state files into dir, seeding the season
// from the configured one so percentiles stay meaningful.
func scratchState(cfg *config.Config, dir string) error {
	current := cfg.CurrentFile
	if !filepath.IsAbs(current) {
		current = filepath.Join(cfg.DataDir, current)
	}
	scratch := filepath.Join(dir, "current.json")
	if err := copyFile(current, scratch); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("seed replay season: %w", err)
	}
	cfg.CurrentFile = scratch
	cfg.PublishedFile = filepath.Join(dir, "published.json")
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
