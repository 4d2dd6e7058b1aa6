package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/textnorm"
)

// AssignResult describes a completed category assignment.
type AssignResult struct {
	Keyword string
	// KeywordCreated is false when an identical keyword already existed.
	KeywordCreated     bool
	RecategorizedCount int
}

// CityAssignResult describes a completed city assignment.
type CityAssignResult struct {
	Term         string
	City         string
	UpdatedCount int
}

// AssignCategory binds term to categoryID as a keyword, removes it from the
// ledger and reclassifies the user's uncategorized expenses that contain it.
// Failures are returned as *AssignError; after a sweep failure the result
// still counts the expenses recategorized before it.
func (s *Service) AssignCategory(ctx context.Context, userID, term string, categoryID int64) (AssignResult, error) {
	folded := textnorm.Fold(term)
	if folded == "" {
		return AssignResult{}, &AssignError{Term: term, Stage: StageKeyword, Err: ErrEmptyTerm}
	}
	defer s.lock(userID, folded)()

	created, err := s.ensureKeyword(ctx, userID, folded, categoryID)
	if err != nil {
		return AssignResult{}, &AssignError{Term: folded, Stage: StageKeyword, Err: err}
	}

	count, err := s.finishAssign(ctx, userID, folded, categoryID)
	result := AssignResult{Keyword: folded, KeywordCreated: created, RecategorizedCount: count}
	if err != nil {
		return result, err
	}

	s.logger.Info("assigned term to category",
		logging.F(logging.FieldUser, userID),
		logging.F(logging.FieldTerm, folded),
		logging.F(logging.FieldCategoryID, categoryID),
		logging.F(logging.FieldCount, count))
	return result, nil
}

// RetrySweep repeats the ledger and sweep steps of an assignment whose
// keyword already exists.
func (s *Service) RetrySweep(ctx context.Context, userID, term string, categoryID int64) (AssignResult, error) {
	folded := textnorm.Fold(term)
	if folded == "" {
		return AssignResult{}, &AssignError{Term: term, Stage: StageKeyword, Err: ErrEmptyTerm}
	}
	defer s.lock(userID, folded)()

	kw, err := s.storage.GetKeyword(ctx, userID, folded)
	if err != nil {
		return AssignResult{}, &AssignError{Term: folded, Stage: StageKeyword, Err: err}
	}
	if kw.CategoryID != categoryID {
		return AssignResult{}, &AssignError{
			Term:  folded,
			Stage: StageKeyword,
			Err:   fmt.Errorf("%w: bound to %d, not %d", ErrKeywordConflict, kw.CategoryID, categoryID),
		}
	}

	count, err := s.finishAssign(ctx, userID, folded, categoryID)
	return AssignResult{Keyword: folded, RecategorizedCount: count}, err
}

// ensureKeyword creates the keyword, accepting an identical existing one so
// a repeated assignment never duplicates it.
func (s *Service) ensureKeyword(ctx context.Context, userID, folded string, categoryID int64) (bool, error) {
	if _, err := s.storage.GetCategoryByID(ctx, userID, categoryID); err != nil {
		return false, err
	}

	kw := &model.CategoryKeyword{
		UserID:     userID,
		Keyword:    folded,
		CategoryID: categoryID,
		CreatedAt:  s.now(),
	}
	err := s.storage.CreateKeyword(ctx, kw)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, common.ErrDuplicateEntry) {
		return false, err
	}

	existing, getErr := s.storage.GetKeyword(ctx, userID, folded)
	if getErr != nil {
		return false, getErr
	}
	if existing.CategoryID != categoryID {
		return false, fmt.Errorf("%w: bound to %d", ErrKeywordConflict, existing.CategoryID)
	}
	return false, nil
}

func (s *Service) finishAssign(ctx context.Context, userID, folded string, categoryID int64) (int, error) {
	if err := s.removeTerm(ctx, userID, folded); err != nil {
		return 0, &AssignError{Term: folded, Stage: StageLedger, KeywordCreated: true, Err: err}
	}

	count, err := s.sweepCategory(ctx, userID, folded, categoryID)
	if err != nil {
		s.logger.WithError(err).Warn("sweep failed",
			logging.F(logging.FieldTerm, folded),
			logging.F(logging.FieldCount, count))
		return count, &AssignError{Term: folded, Stage: StageSweep, KeywordCreated: true, Updated: count, Err: err}
	}
	return count, nil
}

// sweepCategory categorizes every uncategorized expense that contains folded.
// Each row is a guarded update, so rows categorized concurrently are left
// alone and a retried sweep picks up where the last one stopped.
func (s *Service) sweepCategory(ctx context.Context, userID, folded string, categoryID int64) (int, error) {
	count := 0
	err := common.WithRetry(ctx, s.logger, func() error {
		expenses, err := s.storage.GetExpenses(ctx, service.ExpenseFilter{
			UserID: userID,
			Status: model.StatusUncategorized,
		})
		if err != nil {
			return fmt.Errorf("failed to load uncategorized expenses: %w", err)
		}
		for _, e := range expenses {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !s.contains(e.Description, folded) {
				continue
			}
			updated, err := s.storage.CategorizeExpense(ctx, userID, e.ID, categoryID, []string{folded})
			if err != nil {
				return fmt.Errorf("failed to categorize expense %s: %w", e.ID, err)
			}
			if updated {
				count++
			}
		}
		return nil
	}, s.retry)
	return count, err
}

// AssignCity registers term as an alias of city, removes it from the ledger
// and sets the city on stored expenses without a recognized city whose
// description contains the term. A city the registry knows is stored under
// its canonical name.
func (s *Service) AssignCity(ctx context.Context, userID, term, city string) (CityAssignResult, error) {
	folded := textnorm.Fold(term)
	if folded == "" {
		return CityAssignResult{}, &AssignError{Term: term, Stage: StageSynonym, Err: ErrEmptyTerm}
	}
	city = strings.Join(strings.Fields(city), " ")
	if city == "" {
		return CityAssignResult{}, &AssignError{Term: folded, Stage: StageSynonym, Err: ErrEmptyCity}
	}
	if s.cities != nil {
		if ent, ok := s.cities.Resolve(city); ok {
			city = ent.CanonicalID
		}
	}
	defer s.lock(userID, folded)()

	syn := &model.Synonym{
		UserID:      userID,
		Kind:        model.SynonymCity,
		Alias:       folded,
		CanonicalID: city,
		Source:      model.SourceManual,
		CreatedAt:   s.now(),
	}
	if err := s.storage.SaveSynonym(ctx, syn); err != nil {
		return CityAssignResult{}, &AssignError{Term: folded, Stage: StageSynonym, Err: err}
	}

	if err := s.removeTerm(ctx, userID, folded); err != nil {
		return CityAssignResult{}, &AssignError{Term: folded, Stage: StageLedger, KeywordCreated: true, Err: err}
	}

	count, err := s.sweepCity(ctx, userID, folded, city)
	if err != nil {
		return CityAssignResult{Term: folded, City: city, UpdatedCount: count},
			&AssignError{Term: folded, Stage: StageSweep, KeywordCreated: true, Updated: count, Err: err}
	}

	s.logger.Info("assigned term to city",
		logging.F(logging.FieldUser, userID),
		logging.F(logging.FieldTerm, folded),
		logging.F(logging.FieldCity, city),
		logging.F(logging.FieldCount, count))
	return CityAssignResult{Term: folded, City: city, UpdatedCount: count}, nil
}

func (s *Service) sweepCity(ctx context.Context, userID, folded, city string) (int, error) {
	count := 0
	err := common.WithRetry(ctx, s.logger, func() error {
		expenses, err := s.storage.GetExpenses(ctx, service.ExpenseFilter{
			UserID:      userID,
			WithoutCity: true,
		})
		if err != nil {
			return fmt.Errorf("failed to load expenses without city: %w", err)
		}
		for _, e := range expenses {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !s.contains(e.Description, folded) {
				continue
			}
			updated, err := s.storage.SetExpenseCity(ctx, userID, e.ID, city, 1)
			if err != nil {
				return fmt.Errorf("failed to set city on expense %s: %w", e.ID, err)
			}
			if updated {
				count++
			}
		}
		return nil
	}, s.retry)
	return count, err
}
