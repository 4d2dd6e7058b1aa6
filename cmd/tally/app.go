package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/ledger"
	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/Veraticus/tally/internal/synonym"
)

const dateLayout = "2006-01-02"

// app holds everything a command needs once the database is open.
type app struct {
	cfg    *config.Config
	logger logging.Logger
	store  *storage.SQLiteStorage
	seed   *synonym.Seed
	engine *engine.Engine
	ledger *ledger.Service
	user   string
}

// open initializes storage with auto-migration and wires the engine and
// ledger from the loaded configuration.
func (o *rootOptions) open(ctx context.Context) (*app, error) {
	store, err := storage.NewSQLiteStorage(o.cfg.Database.Path, storage.WithLogger(o.logger))
	if err != nil {
		return nil, common.NewUserError("cannot open database "+o.cfg.Database.Path, err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	seed, err := o.cfg.Seed()
	if err != nil {
		_ = store.Close()
		return nil, common.NewUserError("cannot load city seed", err)
	}

	ledgerSvc := ledger.NewService(store,
		ledger.WithLogger(o.logger),
		ledger.WithTokenizer(o.cfg.Tokenizer()),
		ledger.WithMatchMode(o.cfg.MatchMode()),
		ledger.WithCityRegistry(seed.CityRegistry()))

	eng, err := engine.New(store, ledgerSvc, engine.Config{
		Seed:      seed,
		MatchMode: o.cfg.MatchMode(),
		City:      o.cfg.CityOptions(),
	}, engine.WithLogger(o.logger))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return &app{
		cfg:    o.cfg,
		logger: o.logger,
		store:  store,
		seed:   seed,
		engine: eng,
		ledger: ledgerSvc,
		user:   o.cfg.User,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("failed to close database")
	}
}

// findCategory accepts a category name or numeric ID.
func (a *app) findCategory(ctx context.Context, ref string) (*model.Category, error) {
	cat, err := a.store.GetCategoryByName(ctx, a.user, ref)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		cat, err = a.store.GetCategoryByID(ctx, a.user, id)
		if err == nil {
			return cat, nil
		}
	}
	return nil, common.NewUserErrorWithHint(fmt.Sprintf("category %q not found", ref), fmt.Sprintf("tally categories add %q", ref), err)
}

// categoryNames maps category IDs to names for display.
func (a *app) categoryNames(ctx context.Context) (map[int64]string, error) {
	categories, err := a.store.GetCategories(ctx, a.user)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", value), err)
	}
	return t, nil
}

func parseDelimiter(value string) (rune, error) {
	switch value {
	case "", ",":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	runes := []rune(value)
	if len(runes) != 1 {
		return 0, common.NewUserError(fmt.Sprintf("delimiter must be a single character, got %q", value), nil)
	}
	return runes[0], nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
