package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/model"
)

func TestWriteTerms(t *testing.T) {
	seen := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	terms := []model.UnrecognizedTerm{
		{Term: "такси", Frequency: 3, FirstSeen: seen, LastSeen: seen.Add(time.Hour), Source: model.SourceImport},
		{Term: "evroopt", Frequency: 1, FirstSeen: seen, LastSeen: seen, Source: model.SourceManual},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(0).WriteTerms(&buf, terms))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "term,frequency,first_seen,last_seen,source", lines[0])
	assert.Equal(t, "такси,3,2024-05-01T09:30:00Z,2024-05-01T10:30:00Z,import", lines[1])
	assert.Equal(t, "evroopt,1,2024-05-01T09:30:00Z,2024-05-01T09:30:00Z,manual", lines[2])
}

func TestWriteExpenses(t *testing.T) {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	expenses := []model.Expense{
		{
			ID:              "e1",
			Date:            date,
			Description:     "BY COFFEEBAR, MINSK",
			Amount:          decimal.RequireFromString("4.5"),
			City:            "Минск",
			CityConfidence:  0.9,
			CityRecognized:  true,
			CategoryID:      7,
			Status:          model.StatusCategorized,
			AutoCategorized: true,
			MatchedKeywords: []string{"coffee", "bar"},
			Source:          model.SourceImport,
		},
		{
			ID:          "e2",
			Date:        date,
			Description: "Оплата услуг такси",
			Amount:      decimal.NewFromInt(12),
			Status:      model.StatusUncategorized,
			Source:      model.SourceManual,
		},
		{
			ID:          "e3",
			Date:        date,
			Description: "gift",
			Amount:      decimal.NewFromInt(1),
			CategoryID:  99,
			Status:      model.StatusCategorized,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(';').WriteExpenses(&buf, expenses, map[int64]string{7: "Food"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id;date;description;amount;city;city_confidence;city_recognized;category;status;auto_categorized;matched_keywords;source", lines[0])
	assert.Equal(t, "e1;2024-05-01;BY COFFEEBAR, MINSK;4.50;Минск;0.90;true;Food;categorized;true;coffee|bar;import", lines[1])
	assert.Equal(t, "e2;2024-05-01;Оплата услуг такси;12.00;;;false;;uncategorized;false;;manual", lines[2])
	assert.Contains(t, lines[3], ";99;")
}
