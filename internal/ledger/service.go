package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Veraticus/tally/internal/category"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/synonym"
	"github.com/Veraticus/tally/internal/textnorm"
)

// Clock returns the current time.
type Clock func() time.Time

// IDGenerator returns a new unique record ID.
type IDGenerator func() string

// Service manages the unrecognized-term ledger.
type Service struct {
	storage   service.Storage
	logger    logging.Logger
	tokenizer *textnorm.Tokenizer
	cities    *synonym.Registry
	now       Clock
	newID     IDGenerator
	locks     *keyedMutex
	mode      category.MatchMode
	retry     service.RetryOptions
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithIDGenerator overrides how term IDs are generated.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithTokenizer sets the tokenizer used by RecordUnrecognized.
func WithTokenizer(tok *textnorm.Tokenizer) Option {
	return func(s *Service) {
		if tok != nil {
			s.tokenizer = tok
		}
	}
}

// WithCityRegistry lets AssignCity store the canonical name of a known city.
func WithCityRegistry(reg *synonym.Registry) Option {
	return func(s *Service) {
		s.cities = reg
	}
}

// WithMatchMode sets how the sweep matches a term inside descriptions.
func WithMatchMode(mode category.MatchMode) Option {
	return func(s *Service) {
		if mode != "" {
			s.mode = mode
		}
	}
}

// WithRetryOptions sets the retry policy for storage steps.
func WithRetryOptions(opts service.RetryOptions) Option {
	return func(s *Service) {
		s.retry = opts
	}
}

// NewService creates a ledger service over storage.
func NewService(storage service.Storage, opts ...Option) *Service {
	s := &Service{
		storage:   storage,
		logger:    logging.NewNopLogger(),
		tokenizer: defaultTokenizer,
		now:       time.Now,
		newID:     func() string { return ulid.Make().String() },
		locks:     newKeyedMutex(),
		mode:      category.MatchSubstring,
		retry:     common.DefaultRetryOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tokenizer returns the tokenizer the service splits descriptions with.
func (s *Service) Tokenizer() *textnorm.Tokenizer {
	return s.tokenizer
}

// Candidates splits description with the service tokenizer and drops known
// keywords.
func (s *Service) Candidates(description string, known Vocabulary) []string {
	return candidates(s.tokenizer, description, known)
}

// RecordUnrecognized records every candidate term of description that is not
// one of the user's stored keywords.
func (s *Service) RecordUnrecognized(ctx context.Context, userID, description string, source model.Source) ([]model.UnrecognizedTerm, error) {
	keywords, err := s.storage.GetKeywords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load keywords: %w", err)
	}
	known := make([]string, len(keywords))
	for i, kw := range keywords {
		known[i] = kw.Keyword
	}
	return s.RecordTerms(ctx, userID, s.Candidates(description, NewKeywordSet(known...)), source)
}

// RecordTerms upserts terms into the ledger in a single transaction. A known
// term has its frequency incremented and its last-seen time refreshed; a new
// term starts at frequency 1.
func (s *Service) RecordTerms(ctx context.Context, userID string, terms []string, source model.Source) ([]model.UnrecognizedTerm, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if source == "" {
		source = model.SourceManual
	}

	var recorded []model.UnrecognizedTerm
	err := common.WithRetry(ctx, s.logger, func() error {
		recorded = recorded[:0]
		return s.recordTermsTx(ctx, userID, terms, source, &recorded)
	}, s.retry)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("recorded unrecognized terms",
		logging.F(logging.FieldUser, userID),
		logging.F(logging.FieldCount, len(recorded)))
	return recorded, nil
}

func (s *Service) recordTermsTx(ctx context.Context, userID string, terms []string, source model.Source, out *[]model.UnrecognizedTerm) (err error) {
	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now()
	for _, term := range terms {
		if textnorm.Fold(term) == "" {
			continue
		}
		rec := model.UnrecognizedTerm{
			ID:       s.newID(),
			UserID:   userID,
			Term:     term,
			Source:   source,
			LastSeen: now,
		}
		if err = tx.RecordTerm(ctx, &rec); err != nil {
			return fmt.Errorf("failed to record term %q: %w", term, err)
		}
		*out = append(*out, rec)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit terms: %w", err)
	}
	return nil
}

// List returns the user's ledger, most frequent first and then most recently
// seen.
func (s *Service) List(ctx context.Context, userID string) ([]model.UnrecognizedTerm, error) {
	return s.storage.GetTerms(ctx, userID)
}

// Discard removes term from the ledger without assigning it.
func (s *Service) Discard(ctx context.Context, userID, term string) error {
	folded := textnorm.Fold(term)
	if folded == "" {
		return ErrEmptyTerm
	}
	defer s.lock(userID, folded)()

	if err := s.storage.DeleteTerm(ctx, userID, folded); err != nil {
		return err
	}
	s.logger.Info("discarded term",
		logging.F(logging.FieldUser, userID),
		logging.F(logging.FieldTerm, folded))
	return nil
}

func (s *Service) lock(userID, folded string) func() {
	return s.locks.Lock(userID + "\x00" + folded)
}

// removeTerm deletes term from the ledger. A term that is not there is fine:
// the user may assign a word that was never recorded, or retry after the
// ledger step already succeeded.
func (s *Service) removeTerm(ctx context.Context, userID, folded string) error {
	return common.WithRetry(ctx, s.logger, func() error {
		err := s.storage.DeleteTerm(ctx, userID, folded)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}, s.retry)
}

func (s *Service) contains(description, folded string) bool {
	d := textnorm.Fold(description)
	if s.mode == category.MatchWord {
		return textnorm.ContainsWord(d, folded)
	}
	return strings.Contains(d, folded)
}
