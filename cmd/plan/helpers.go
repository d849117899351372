package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/savings-plan/internal/cache"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/config"
	"github.com/Veraticus/savings-plan/internal/engine"
	"github.com/Veraticus/savings-plan/internal/events"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/pattern"
	"github.com/Veraticus/savings-plan/internal/storage"
)

// app bundles what a command needs: the store, the engine over it and the event publisher.
type app struct {
	store     *storage.SQLiteStorage
	engine    *engine.Engine
	publisher *events.AMQPPublisher
}

// initStorage opens the database and brings its schema up to date.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func openApp(ctx context.Context) (*app, error) {
	settings := config.LoadSettings(viper.GetViper())

	store, err := initStorage(ctx, settings.DatabasePath)
	if err != nil {
		return nil, err
	}
	a := &app{store: store}

	if err := seedConfiguration(ctx, store); err != nil {
		a.Close()
		return nil, err
	}

	opts := []engine.Option{engine.WithCache(cache.New(settings.CacheTTL, settings.CacheCleanup))}
	if settings.EventsEnabled() {
		pub, err := events.NewAMQPPublisher(settings.AMQPURL, settings.Exchange, settings.Queue)
		if err != nil {
			slog.Warn("Event publishing disabled", "error", err)
		} else {
			a.publisher = pub
			opts = append(opts, engine.WithPublisher(pub))
		}
	}

	a.engine = engine.New(store, store, opts...)
	return a, nil
}

// Close releases the publisher and the database.
func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			common.LogError(err, "Failed to close event publisher", nil)
		}
	}
	if err := a.store.Close(); err != nil {
		common.LogError(err, "Failed to close database", nil)
	}
}

// withApp runs fn against a freshly opened app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

// seedConfiguration stores the budget.* settings the first time the database is used.
func seedConfiguration(ctx context.Context, store *storage.SQLiteStorage) error {
	_, err := store.GetConfiguration(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrMissingConfig) {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if !viper.IsSet("budget") {
		return nil
	}

	cfg, err := config.FromViper(viper.GetViper(), config.Defaults())
	if err != nil {
		return common.NewUserError("The budget section of the config file is invalid", err)
	}
	for _, w := range config.Validate(cfg) {
		common.LogWarn("Configuration warning", common.Fields{"field": w.Field, "message": w.Message})
	}
	if err := store.SaveConfiguration(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	slog.Info("Seeded budget configuration from settings", "hash", cfg.Hash())
	return nil
}

// parsePeriod parses a YYYY-MM argument.
func parsePeriod(s string) (model.Period, error) {
	p, err := model.ParsePeriod(s)
	if err != nil {
		return model.Period{}, common.NewUserError(fmt.Sprintf("Invalid period %q, expected YYYY-MM", s), err)
	}
	return p, nil
}

// periodArg returns the period named by the first argument, or the current month.
func periodArg(args []string) (model.Period, error) {
	if len(args) == 0 || args[0] == "" {
		return model.PeriodOf(time.Now()), nil
	}
	return parsePeriod(args[0])
}

// periodRange reads --from and --to. Missing bounds default to the current month.
func periodRange(cmd *cobra.Command) ([]model.Period, error) {
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")

	from, err := periodArg([]string{fromFlag})
	if err != nil {
		return nil, err
	}
	to, err := periodArg([]string{toFlag})
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, common.NewUserError(fmt.Sprintf("%s is before %s", to, from), nil)
	}
	return model.PeriodRange(from, to), nil
}

// explain turns lookup errors into messages for the terminal.
func explain(err error, p model.Period) error {
	if common.IsNotFound(err) {
		return common.NewUserError("No data for "+p.Label(), err)
	}
	return err
}

// loadPatterns builds the subcategory detector. Patterns from the config file are checked
// before built-in ones of equal priority.
func loadPatterns() (*pattern.Detector, error) {
	var custom []pattern.Pattern
	if err := viper.UnmarshalKey("patterns", &custom); err != nil {
		return nil, common.NewUserError("The patterns section of the config file is invalid", err)
	}
	detector, err := pattern.NewDetector(append(custom, pattern.DefaultPatterns()...))
	if err != nil {
		return nil, common.NewUserError(err.Error(), err)
	}
	return detector, nil
}
