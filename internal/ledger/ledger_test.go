package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/synonym"
	"github.com/Veraticus/tally/internal/testutil"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func newTestService(t *testing.T, store service.Storage, opts ...Option) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: testutil.BaseTime}
	seq := 0
	var mu sync.Mutex
	base := []Option{
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("term-%03d", seq)
		}),
		WithRetryOptions(service.RetryOptions{MaxAttempts: 1, InitialDelay: time.Millisecond}),
	}
	return NewService(store, append(base, opts...)...), clock
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        []string
	}{
		{name: "payment boilerplate dropped", description: "Оплата услуг такси", want: []string{"такси"}},
		{name: "punctuation and case", description: "BY COFFEEBAR, MINSK", want: []string{"coffeebar", "minsk"}},
		{name: "numbers and short tokens", description: "POS 1234 ab Евроопт 15.05", want: []string{"евроопт"}},
		{name: "deduplicated in order", description: "taxi Taxi TAXI minsk", want: []string{"taxi", "minsk"}},
		{name: "empty", description: "  ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.description))
		})
	}
}

func TestCandidates(t *testing.T) {
	known := NewKeywordSet("Coffeebar")
	assert.Equal(t, []string{"minsk"}, Candidates("BY COFFEEBAR, MINSK", known))
	assert.Equal(t, []string{"coffeebar", "minsk"}, Candidates("BY COFFEEBAR, MINSK", nil))
	assert.Empty(t, Candidates("coffeebar", known))
}

func TestRecordUnrecognized_Idempotence(t *testing.T) {
	db := testutil.SetupTestDB(t, "Food")
	svc, _ := newTestService(t, db.Storage)
	ctx := context.Background()

	db.AddKeyword("coffeebar", "Food")

	var last time.Time
	for i := 0; i < 3; i++ {
		recorded, err := svc.RecordUnrecognized(ctx, db.UserID, "BY COFFEEBAR, MINSK", model.SourceImport)
		require.NoError(t, err)
		require.Len(t, recorded, 1)
		assert.Equal(t, "minsk", recorded[0].Term)
		last = recorded[0].LastSeen
	}

	terms, err := svc.List(ctx, db.UserID)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, 3, terms[0].Frequency)
	assert.Equal(t, "term-001", terms[0].ID)
	assert.True(t, terms[0].FirstSeen.Before(terms[0].LastSeen))
	assert.True(t, terms[0].LastSeen.Equal(last))
	assert.Equal(t, model.SourceImport, terms[0].Source)
}

func TestRecordTerms_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newTestService(t, db.Storage)

	recorded, err := svc.RecordTerms(context.Background(), db.UserID, nil, model.SourceManual)
	require.NoError(t, err)
	assert.Nil(t, recorded)
}

func TestAssignCategory_TaxiScenario(t *testing.T) {
	db := testutil.SetupTestDB(t, "Transport")
	svc, _ := newTestService(t, db.Storage)
	ctx := context.Background()

	expense := db.AddExpense("Оплата услуг такси")
	_, err := svc.RecordUnrecognized(ctx, db.UserID, expense.Description, model.SourceManual)
	require.NoError(t, err)

	terms, err := svc.List(ctx, db.UserID)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "такси", terms[0].Term)

	res, err := svc.AssignCategory(ctx, db.UserID, "Такси", db.MustCategory("Transport"))
	require.NoError(t, err)
	assert.True(t, res.KeywordCreated)
	assert.Equal(t, "такси", res.Keyword)
	assert.Equal(t, 1, res.RecategorizedCount)

	terms, err = svc.List(ctx, db.UserID)
	require.NoError(t, err)
	assert.Empty(t, terms)

	got := db.MustExpense(expense.ID)
	assert.Equal(t, model.StatusCategorized, got.Status)
	assert.Equal(t, db.MustCategory("Transport"), got.CategoryID)
	assert.True(t, got.AutoCategorized)
	assert.Equal(t, []string{"такси"}, got.MatchedKeywords)
}

func TestAssignCategory_SweepCompleteness(t *testing.T) {
	db := testutil.SetupTestDB(t, "Travel", "Food")
	svc, _ := newTestService(t, db.Storage)
	ctx := context.Background()

	hits := []model.Expense{
		db.AddExpense("COFFEE MINSK BY"),
		db.AddExpense("Taxi minsk-arena"),
		db.AddExpense("hotel MINSKY"),
	}
	miss := db.AddExpense("BREST market")

	categorized := db.AddExpense("Minsk lunch")
	updated, err := db.Storage.CategorizeExpense(ctx, db.UserID, categorized.ID, db.MustCategory("Food"), []string{"lunch"})
	require.NoError(t, err)
	require.True(t, updated)

	res, err := svc.AssignCategory(ctx, db.UserID, "minsk", db.MustCategory("Travel"))
	require.NoError(t, err)
	assert.Equal(t, len(hits), res.RecategorizedCount)

	for _, e := range hits {
		got := db.MustExpense(e.ID)
		assert.Equal(t, db.MustCategory("Travel"), got.CategoryID, e.Description)
		assert.Equal(t, []string{"minsk"}, got.MatchedKeywords)
	}
	assert.Equal(t, model.StatusUncategorized, db.MustExpense(miss.ID).Status)

	kept := db.MustExpense(categorized.ID)
	assert.Equal(t, db.MustCategory("Food"), kept.CategoryID)
	assert.Equal(t, []string{"lunch"}, kept.MatchedKeywords)

	remaining, err := db.Storage.GetExpenses(ctx, service.ExpenseFilter{UserID: db.UserID, Status: model.StatusUncategorized})
	require.NoError(t, err)
	for _, e := range remaining {
		assert.NotContains(t, e.Description, "minsk")
		assert.NotContains(t, e.Description, "MINSK")
	}
}

func TestAssignCategory_WordMode(t *testing.T) {
	db := testutil.SetupTestDB(t, "Travel")
	svc, _ := newTestService(t, db.Storage, WithMatchMode("word"))

	hit := db.AddExpense("COFFEE MINSK BY")
	miss := db.AddExpense("hotel MINSKY")

	res, err := svc.AssignCategory(context.Background(), db.UserID, "minsk", db.MustCategory("Travel"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.RecategorizedCount)
	assert.Equal(t, model.StatusCategorized, db.MustExpense(hit.ID).Status)
	assert.Equal(t, model.StatusUncategorized, db.MustExpense(miss.ID).Status)
}

func TestAssignCategory_RepeatIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t, "Transport", "Food")
	svc, _ := newTestService(t, db.Storage)
	ctx := context.Background()
	db.AddExpense("yandex taxi")

	first, err := svc.AssignCategory(ctx, db.UserID, "taxi", db.MustCategory("Transport"))
	require.NoError(t, err)
	assert.True(t, first.KeywordCreated)
	assert.Equal(t, 1, first.RecategorizedCount)

	second, err := svc.AssignCategory(ctx, db.UserID, "TAXI", db.MustCategory("Transport"))
	require.NoError(t, err)
	assert.False(t, second.KeywordCreated)
	assert.Zero(t, second.RecategorizedCount)

	keywords, err := db.Storage.GetKeywords(ctx, db.UserID)
	require.NoError(t, err)
	assert.Len(t, keywords, 1)

	_, err = svc.AssignCategory(ctx, db.UserID, "taxi", db.MustCategory("Food"))
	var assignErr *AssignError
	require.ErrorAs(t, err, &assignErr)
	assert.Equal(t, StageKeyword, assignErr.Stage)
	assert.False(t, assignErr.KeywordCreated)
	assert.False(t, assignErr.CanRetrySweep())
	assert.ErrorIs(t, err, ErrKeywordConflict)
}

func TestAssignCategory_KeywordStageFailures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newTestService(t, db.Storage)
	ctx := context.Background()

	_, err := svc.AssignCategory(ctx, db.UserID, "   ", 1)
	var assignErr *AssignError
	require.ErrorAs(t, err, &assignErr)
	assert.Equal(t, StageKeyword, assignErr.Stage)
	assert.ErrorIs(t, err, ErrEmptyTerm)

	_, err = svc.AssignCategory(ctx, db.UserID, "taxi", 42)
	require.ErrorAs(t, err, &assignErr)
	assert.Equal(t, StageKeyword, assignErr.Stage)
	assert.ErrorIs(t, err, common.ErrNotFound)

	keywords, err := db.Storage.GetKeywords(ctx, db.UserID)
	require.NoError(t, err)
	assert.Empty(t, keywords)
}

// failingSweepStorage fails every guarded categorize call.
type failingSweepStorage struct {
	service.Storage
}

var errSweep = errors.New("disk on fire")

func (f failingSweepStorage) CategorizeExpense(context.Context, string, string, int64, []string) (bool, error) {
	return false, errSweep
}

func TestAssignCategory_SweepFailureThenRetry(t *testing.T) {
	db := testutil.SetupTestDB(t, "Transport")
	ctx := context.Background()
	expense := db.AddExpense("uber ride")
	err := db.Storage.RecordTerm(ctx, &model.UnrecognizedTerm{
		ID: "t1", UserID: db.UserID, Term: "uber", LastSeen: testutil.BaseTime,
	})
	require.NoError(t, err)

	broken, _ := newTestService(t, failingSweepStorage{Storage: db.Storage})
	_, err = broken.AssignCategory(ctx, db.UserID, "uber", db.MustCategory("Transport"))
	var assignErr *AssignError
	require.ErrorAs(t, err, &assignErr)
	assert.Equal(t, StageSweep, assignErr.Stage)
	assert.True(t, assignErr.KeywordCreated)
	assert.True(t, assignErr.CanRetrySweep())
	assert.ErrorIs(t, err, errSweep)

	_, err = db.Storage.GetKeyword(ctx, db.UserID, "uber")
	require.NoError(t, err)
	_, err = db.Storage.GetTerm(ctx, db.UserID, "uber")
	assert.ErrorIs(t, err, common.ErrNotFound)

	svc, _ := newTestService(t, db.Storage)
	res, err := svc.RetrySweep(ctx, db.UserID, "uber", db.MustCategory("Transport"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.RecategorizedCount)
	assert.Equal(t, model.StatusCategorized, db.MustExpense(expense.ID).Status)

	_, err = svc.RetrySweep(ctx, db.UserID, "lyft", db.MustCategory("Transport"))
	require.ErrorAs(t, err, &assignErr)
	assert.Equal(t, StageKeyword, assignErr.Stage)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

// flakySweepStorage categorizes the first ok expenses and then fails.
type flakySweepStorage struct {
	service.Storage
	ok *int
}

func (f flakySweepStorage) CategorizeExpense(ctx context.Context, userID, id string, categoryID int64, matched []string) (bool, error) {
	if *f.ok == 0 {
		return false, errSweep
	}
	*f.ok--
	return f.Storage.CategorizeExpense(ctx, userID, id, categoryID, matched)
}

func TestAssignCategory_PartialSweepReportsProgress(t *testing.T) {
	db := testutil.SetupTestDB(t, "Transport")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		db.AddExpense(fmt.Sprintf("uber ride %d", i))
	}
	transport := db.MustCategory("Transport")

	ok := 2
	flaky, _ := newTestService(t, flakySweepStorage{Storage: db.Storage, ok: &ok})
	res, err := flaky.AssignCategory(ctx, db.UserID, "uber", transport)
	var assignErr *AssignError
	require.ErrorAs(t, err, &assignErr)
	assert.Equal(t, StageSweep, assignErr.Stage)
	assert.Equal(t, 2, assignErr.Updated)
	assert.Equal(t, 2, res.RecategorizedCount)
	assert.Equal(t, "uber", res.Keyword)
	assert.True(t, res.KeywordCreated)

	svc, _ := newTestService(t, db.Storage)
	res, err = svc.RetrySweep(ctx, db.UserID, "uber", transport)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RecategorizedCount)
}

func TestAssignCategory_ConcurrentSameTerm(t *testing.T) {
	db := testutil.SetupTestDB(t, "Transport")
	svc, _ := newTestService(t, db.Storage)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		db.AddExpense(fmt.Sprintf("taxi trip %d", i))
	}

	const workers = 4
	results := make([]AssignResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.AssignCategory(ctx, db.UserID, "taxi", db.MustCategory("Transport"))
		}(i)
	}
	wg.Wait()

	created, total := 0, 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if results[i].KeywordCreated {
			created++
		}
		total += results[i].RecategorizedCount
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 5, total)
	assert.Zero(t, svc.locks.size())
}

func TestAssignCity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seed, err := synonym.DefaultSeed()
	require.NoError(t, err)
	svc, _ := newTestService(t, db.Storage, WithCityRegistry(seed.CityRegistry()))
	ctx := context.Background()

	hit := db.AddExpense("COFFEE MENSK")
	miss := db.AddExpense("COFFEE BREST")
	known := db.AddExpense("dinner mensk")
	updated, err := db.Storage.SetExpenseCity(ctx, db.UserID, known.ID, "Гродно", 0.9)
	require.NoError(t, err)
	require.True(t, updated)

	res, err := svc.AssignCity(ctx, db.UserID, "Mensk", "minsk")
	require.NoError(t, err)
	assert.Equal(t, "Минск", res.City)
	assert.Equal(t, 1, res.UpdatedCount)

	got := db.MustExpense(hit.ID)
	assert.Equal(t, "Минск", got.City)
	assert.True(t, got.CityRecognized)
	assert.InDelta(t, 1.0, got.CityConfidence, 1e-9)
	assert.False(t, db.MustExpense(miss.ID).CityRecognized)
	assert.Equal(t, "Гродно", db.MustExpense(known.ID).City)

	synonyms, err := db.Storage.GetSynonyms(ctx, db.UserID, model.SynonymCity)
	require.NoError(t, err)
	require.Len(t, synonyms, 1)
	assert.Equal(t, "mensk", synonyms[0].Alias)
	assert.Equal(t, "Минск", synonyms[0].CanonicalID)

	_, err = svc.AssignCity(ctx, db.UserID, "mensk", " ")
	var assignErr *AssignError
	require.ErrorAs(t, err, &assignErr)
	assert.Equal(t, StageSynonym, assignErr.Stage)
	assert.ErrorIs(t, err, ErrEmptyCity)
}

func TestDiscard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newTestService(t, db.Storage)
	ctx := context.Background()

	_, err := svc.RecordUnrecognized(ctx, db.UserID, "evroopt groceries", model.SourceManual)
	require.NoError(t, err)

	require.NoError(t, svc.Discard(ctx, db.UserID, "EVROOPT"))
	assert.ErrorIs(t, svc.Discard(ctx, db.UserID, "evroopt"), common.ErrNotFound)
	assert.ErrorIs(t, svc.Discard(ctx, db.UserID, ""), ErrEmptyTerm)

	terms, err := svc.List(ctx, db.UserID)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "groceries", terms[0].Term)
}
