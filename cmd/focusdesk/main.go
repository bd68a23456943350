package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/smith3v/focusdesk/pkg/api"
	"github.com/smith3v/focusdesk/pkg/config"
	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/logger"
	"github.com/smith3v/focusdesk/pkg/notify"
	"github.com/smith3v/focusdesk/pkg/push"
	"github.com/smith3v/focusdesk/pkg/reminders"
	"github.com/smith3v/focusdesk/pkg/review"
	"github.com/smith3v/focusdesk/pkg/settings"
	"github.com/smith3v/focusdesk/pkg/tasks"
	"github.com/smith3v/focusdesk/pkg/telegram"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:               "focusdesk",
	Short:             "Weekly review gate and reminder delivery service",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and sweep due reminders in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Deliver due reminders once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSweep(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "Path to the JSON config file")
	rootCmd.AddCommand(serveCmd, sweepCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func loadSettings(*cobra.Command, []string) error {
	if err := config.LoadConfig(configPath); err != nil {
		return err
	}
	if err := logger.Configure(logger.Options{
		Level: config.AppConfig.Logging.Level,
		File:  config.AppConfig.Logging.File,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}
	return nil
}

type app struct {
	db       *gorm.DB
	settings *settings.Reader
	tasks    *tasks.Store
	reviews  *review.Store
	push     *push.Manager
	sweeper  *reminders.Sweeper
	bot      *bot.Bot
}

func newApp(cfg config.Config) (*app, error) {
	gdb, err := db.Open(cfg.Database, cfg.Logging.GormLevel)
	if err != nil {
		return nil, err
	}

	if !cfg.Push.Enabled() {
		logger.Warn("VAPID keys not configured, push deliveries will fail")
	}
	a := &app{
		db:       gdb,
		settings: settings.NewReader(gdb),
		tasks:    tasks.NewStore(gdb),
		reviews:  review.NewStore(gdb),
		push: push.NewManager(gdb,
			push.NewWebPushTransport(cfg.Push, nil),
			time.Duration(cfg.Push.TimeoutSeconds)*time.Second,
		),
	}

	channels := []reminders.Channel{a.push}
	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token)
		if err != nil {
			return nil, err
		}
		b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, telegram.HandleStart)
		a.bot = b
		channels = append(channels, telegram.NewChannel(telegram.BotSender{B: b}, a.settings))
		logger.Info("telegram delivery enabled")
	}
	a.sweeper = reminders.NewSweeper(gdb, nil, channels...)
	return a, nil
}

func (a *app) close() {
	sqlDB, err := a.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}

func runServe(ctx context.Context) error {
	cfg := config.AppConfig
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	server := api.NewServer(api.Deps{
		Gate:      review.NewGate(a.settings, a.reviews, nil),
		Reviews:   review.NewService(a.settings, a.reviews, nil),
		History:   a.reviews,
		Poller:    reminders.NewPoller(a.db, a.tasks, a.settings, nil),
		Push:      a.push,
		Generator: notify.NewGenerator(a.tasks),
		Settings:  a.settings,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.sweeper.Start(ctx, time.Duration(cfg.Sweep.IntervalSeconds)*time.Second)
	go db.StartRetention(ctx, a.db, db.RetentionInterval, cfg.Retention.CompletedReminderDays)
	if a.bot != nil {
		go a.bot.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "addr", cfg.HTTP.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down http server")
	return httpServer.Shutdown(shutdownCtx)
}

func runSweep(ctx context.Context) error {
	a, err := newApp(config.AppConfig)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.sweeper.RunOnce(ctx)
	if err != nil {
		return err
	}
	logger.Info("reminder sweep finished", "due", result.Due, "completed", result.Completed, "pending", result.Pending)
	return nil
}
