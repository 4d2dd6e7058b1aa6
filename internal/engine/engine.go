// Package engine resolves expense descriptions against a user's keywords and
// synonyms and persists the outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/category"
	"github.com/Veraticus/tally/internal/city"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/ledger"
	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/synonym"
)

// ErrEmptyDescription is returned when an expense has no description.
var ErrEmptyDescription = errors.New("description cannot be empty")

// Config holds configuration options for the engine.
type Config struct {
	// Seed supplies the built-in cities and keyword aliases. Nil selects
	// synonym.DefaultSeed.
	Seed *synonym.Seed
	// Patterns builds the city pattern set for a user's registry. Nil
	// selects city.DefaultPatterns.
	Patterns  func(*synonym.Registry) []city.Pattern
	MatchMode category.MatchMode
	City      city.Options
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		City:      city.DefaultOptions(),
		MatchMode: category.MatchSubstring,
	}
}

// Engine orchestrates city and category resolution for stored expenses.
type Engine struct {
	storage      service.Storage
	ledger       *ledger.Service
	logger       logging.Logger
	seedCities   *synonym.Registry
	seedKeywords *synonym.Registry
	now          func() time.Time
	newID        func() string
	config       Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source used for expense timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides how expense IDs are generated.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// New creates an engine. Unresolved terms are recorded through ledgerSvc.
func New(storage service.Storage, ledgerSvc *ledger.Service, config Config, opts ...Option) (*Engine, error) {
	if storage == nil {
		return nil, errors.New("engine requires a storage")
	}
	if config.Seed == nil {
		seed, err := synonym.DefaultSeed()
		if err != nil {
			return nil, fmt.Errorf("failed to load default seed: %w", err)
		}
		config.Seed = seed
	}
	if config.Patterns == nil {
		config.Patterns = city.DefaultPatterns
	}
	if config.MatchMode == "" {
		config.MatchMode = category.MatchSubstring
	}

	e := &Engine{
		storage:      storage,
		ledger:       ledgerSvc,
		logger:       logging.NewNopLogger(),
		seedCities:   config.Seed.CityRegistry(),
		seedKeywords: config.Seed.KeywordRegistry(),
		now:          time.Now,
		newID:        func() string { return ulid.Make().String() },
		config:       config,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ledger == nil {
		e.ledger = ledger.NewService(storage, ledger.WithLogger(e.logger), ledger.WithMatchMode(config.MatchMode))
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Ledger returns the ledger service the engine records terms through.
func (e *Engine) Ledger() *ledger.Service {
	return e.ledger
}

// Resolution is the combined outcome for one description.
type Resolution struct {
	// CategoryText is the text the category resolver matched against.
	CategoryText string
	// Candidates lists every city pattern proposal, for explanation.
	Candidates []city.Candidate
	// Unrecognized lists the terms to record when no keyword matched.
	Unrecognized []string
	City         city.Result
	Category     category.Result
	Recognized   bool
}

// Resolve is a dry run: it resolves description for userID without
// persisting anything.
func (e *Engine) Resolve(ctx context.Context, userID, description string) (Resolution, error) {
	snap, err := e.Snapshot(ctx, userID)
	if err != nil {
		return Resolution{}, err
	}
	return e.resolve(snap, description), nil
}

func (e *Engine) resolve(snap *Snapshot, description string) Resolution {
	opts := e.config.City
	res := Resolution{
		City:       snap.Extractor.Extract(description, opts),
		Candidates: snap.Extractor.Candidates(description, opts),
	}
	res.Recognized = res.City.Recognized(opts.MinConfidence)

	// A trusted city is removed first so it does not reach the ledger, but a
	// keyword that only matches with the city present still counts. An
	// uncertain candidate is often the merchant or service word, so the
	// full description is used.
	text := description
	if res.cityTrusted() && res.City.Cleaned && strings.TrimSpace(res.City.CleanDescription) != "" {
		text = res.City.CleanDescription
	}
	res.CategoryText = text
	res.Category = category.Categorize(text, snap.Index)
	if !res.Category.AutoCategorized && text != description {
		if full := category.Categorize(description, snap.Index); full.AutoCategorized {
			res.Category = full
			res.CategoryText = description
		}
	}
	if !res.Category.AutoCategorized {
		res.Unrecognized = e.ledger.Candidates(text, snap.Index)
	}
	return res
}

// cityTrusted reports whether the city is recognized or known to the
// registry. Only a trusted city is stored or removed from the text.
func (r Resolution) cityTrusted() bool {
	return r.City.City != "" && (r.Recognized || r.City.KnownCity)
}

// ExpenseInput describes an expense to add.
type ExpenseInput struct {
	Date   time.Time
	Amount decimal.Decimal
	// ID is generated when empty. Imports pass the statement line ID so a
	// repeated import is skipped.
	ID          string
	UserID      string
	Description string
	Source      model.Source
}

// AddResult describes a stored expense.
type AddResult struct {
	Expense    *model.Expense
	Terms      []model.UnrecognizedTerm
	Resolution Resolution
}

// AddExpense resolves and stores one expense. When no keyword matched, the
// unresolved terms are recorded in the ledger.
func (e *Engine) AddExpense(ctx context.Context, in ExpenseInput) (*AddResult, error) {
	snap, err := e.Snapshot(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	return e.addExpense(ctx, snap, in)
}

func (e *Engine) addExpense(ctx context.Context, snap *Snapshot, in ExpenseInput) (*AddResult, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if in.ID == "" {
		in.ID = e.newID()
	}
	if in.Source == "" {
		in.Source = model.SourceManual
	}
	if in.Date.IsZero() {
		in.Date = e.now()
	}

	res := e.resolve(snap, description)
	expense := &model.Expense{
		ID:          in.ID,
		UserID:      in.UserID,
		Description: description,
		Amount:      in.Amount,
		Date:        in.Date,
		CreatedAt:   e.now(),
		Source:      in.Source,
		Status:      model.StatusUncategorized,
	}
	if res.cityTrusted() {
		expense.City = res.City.DisplayCity
		expense.CityConfidence = res.City.Confidence
		expense.CityRecognized = res.Recognized
	}
	if res.Category.AutoCategorized {
		expense.Categorize(res.Category.CategoryID, res.Category.MatchedKeywords, true)
	}

	if err := common.WithRetry(ctx, e.logger, func() error {
		return e.storage.SaveExpense(ctx, expense)
	}, common.DefaultRetryOptions()); err != nil {
		return nil, fmt.Errorf("failed to save expense: %w", err)
	}

	log := e.logger.WithFields(
		logging.F(logging.FieldUser, in.UserID),
		logging.F(logging.FieldExpenseID, expense.ID))
	log.Debug("stored expense",
		logging.F(logging.FieldCity, expense.City),
		logging.F(logging.FieldPattern, res.City.PatternID),
		logging.F(logging.FieldConfidence, res.City.Confidence),
		logging.F(logging.FieldCategoryID, expense.CategoryID))

	out := &AddResult{Expense: expense, Resolution: res}
	if len(res.Unrecognized) > 0 {
		terms, err := e.ledger.RecordTerms(ctx, in.UserID, res.Unrecognized, in.Source)
		if err != nil {
			return out, fmt.Errorf("expense %s saved but its terms were not recorded: %w", expense.ID, err)
		}
		out.Terms = terms
	}
	return out, nil
}

// ImportSummary counts the outcome of AddExpenses.
type ImportSummary struct {
	Added          int
	Skipped        int
	Categorized    int
	CityRecognized int
	Failed         int
}

// AddExpenses adds a batch against a single snapshot. Inputs whose ID is
// already stored are skipped. A failing input is logged and counted, and the
// batch carries on; onProgress, if set, is called after every input.
func (e *Engine) AddExpenses(ctx context.Context, userID string, inputs []ExpenseInput, onProgress func()) (ImportSummary, error) {
	var summary ImportSummary
	snap, err := e.Snapshot(ctx, userID)
	if err != nil {
		return summary, err
	}

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		in.UserID = userID
		e.addOne(ctx, snap, in, &summary)
		if onProgress != nil {
			onProgress()
		}
	}

	e.logger.Info("imported expenses",
		logging.F(logging.FieldUser, userID),
		logging.F(logging.FieldCount, summary.Added),
		logging.F("skipped", summary.Skipped),
		logging.F("failed", summary.Failed))
	return summary, nil
}

func (e *Engine) addOne(ctx context.Context, snap *Snapshot, in ExpenseInput, summary *ImportSummary) {
	if in.ID != "" {
		_, err := e.storage.GetExpense(ctx, in.UserID, in.ID)
		if err == nil {
			summary.Skipped++
			return
		}
		if !errors.Is(err, common.ErrNotFound) {
			e.logger.WithError(err).Warn("failed to check for existing expense",
				logging.F(logging.FieldExpenseID, in.ID))
			summary.Failed++
			return
		}
	}

	res, err := e.addExpense(ctx, snap, in)
	if res == nil {
		e.logger.WithError(err).Warn("failed to add expense",
			logging.F(logging.FieldExpenseID, in.ID))
		summary.Failed++
		return
	}
	if err != nil {
		e.logger.WithError(err).Warn("expense stored with unrecorded terms",
			logging.F(logging.FieldExpenseID, res.Expense.ID))
	}
	summary.Added++
	if res.Expense.Status == model.StatusCategorized {
		summary.Categorized++
	}
	if res.Expense.CityRecognized {
		summary.CityRecognized++
	}
}
