// Package export writes the ledger and stored expenses as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/Veraticus/tally/internal/model"
)

// DateFormat is the layout of date columns.
const DateFormat = "2006-01-02"

// TermRow is one ledger term in CSV form.
type TermRow struct {
	Term      string `csv:"term"`
	Frequency int    `csv:"frequency"`
	FirstSeen string `csv:"first_seen"`
	LastSeen  string `csv:"last_seen"`
	Source    string `csv:"source"`
}

// ExpenseRow is one expense in CSV form.
type ExpenseRow struct {
	ID              string `csv:"id"`
	Date            string `csv:"date"`
	Description     string `csv:"description"`
	Amount          string `csv:"amount"`
	City            string `csv:"city"`
	CityConfidence  string `csv:"city_confidence"`
	CityRecognized  bool   `csv:"city_recognized"`
	Category        string `csv:"category"`
	Status          string `csv:"status"`
	AutoCategorized bool   `csv:"auto_categorized"`
	MatchedKeywords string `csv:"matched_keywords"`
	Source          string `csv:"source"`
}

// Writer writes CSV with a configurable delimiter.
type Writer struct {
	delimiter rune
}

// NewWriter creates a writer. A zero delimiter selects a comma.
func NewWriter(delimiter rune) *Writer {
	if delimiter == 0 {
		delimiter = ','
	}
	return &Writer{delimiter: delimiter}
}

// TermRows converts ledger terms to rows.
func TermRows(terms []model.UnrecognizedTerm) []TermRow {
	rows := make([]TermRow, len(terms))
	for i, t := range terms {
		rows[i] = TermRow{
			Term:      t.Term,
			Frequency: t.Frequency,
			FirstSeen: t.FirstSeen.UTC().Format(time.RFC3339),
			LastSeen:  t.LastSeen.UTC().Format(time.RFC3339),
			Source:    string(t.Source),
		}
	}
	return rows
}

// ExpenseRows converts expenses to rows, naming categories through
// categories. An unknown category ID is written as its number.
func ExpenseRows(expenses []model.Expense, categories map[int64]string) []ExpenseRow {
	rows := make([]ExpenseRow, len(expenses))
	for i, e := range expenses {
		row := ExpenseRow{
			ID:              e.ID,
			Date:            e.Date.Format(DateFormat),
			Description:     e.Description,
			Amount:          e.Amount.StringFixed(2),
			City:            e.City,
			CityRecognized:  e.CityRecognized,
			Status:          string(e.Status),
			AutoCategorized: e.AutoCategorized,
			MatchedKeywords: strings.Join(e.MatchedKeywords, "|"),
			Source:          string(e.Source),
		}
		if e.City != "" {
			row.CityConfidence = strconv.FormatFloat(e.CityConfidence, 'f', 2, 64)
		}
		if e.CategoryID != 0 {
			name, ok := categories[e.CategoryID]
			if !ok {
				name = strconv.FormatInt(e.CategoryID, 10)
			}
			row.Category = name
		}
		rows[i] = row
	}
	return rows
}

// WriteTerms writes ledger terms with a header row.
func (w *Writer) WriteTerms(out io.Writer, terms []model.UnrecognizedTerm) error {
	return w.marshal(out, TermRows(terms))
}

// WriteExpenses writes expenses with a header row.
func (w *Writer) WriteExpenses(out io.Writer, expenses []model.Expense, categories map[int64]string) error {
	return w.marshal(out, ExpenseRows(expenses, categories))
}

func (w *Writer) marshal(out io.Writer, rows any) error {
	csvWriter := csv.NewWriter(out)
	csvWriter.Comma = w.delimiter

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}
