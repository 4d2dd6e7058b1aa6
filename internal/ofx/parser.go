// Package ofx reads OFX/QFX bank statements into expense lines.
package ofx

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/logging"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at the end of a line that lost their closing bracket.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Line is one statement transaction.
type Line struct {
	Date time.Time
	// Amount is signed as in the statement: debits are negative.
	Amount decimal.Decimal
	// ID is unique per account and stable across re-imports.
	ID          string
	Account     string
	Description string
	Type        string
}

// IsDebit reports whether the line moves money out of the account.
func (l Line) IsDebit() bool {
	return l.Amount.IsNegative()
}

// Parser implements OFX/QFX file parsing.
type Parser struct {
	logger logging.Logger
}

// NewParser creates a new OFX parser. A nil logger discards output.
func NewParser(logger logging.Logger) *Parser {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Parser{logger: logger}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file and returns its bank and credit card
// statement lines in file order.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var lines []Line
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			lines = append(lines, p.convertList(stmt.BankTranList, string(stmt.BankAcctFrom.AcctID))...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			lines = append(lines, p.convertList(stmt.BankTranList, string(stmt.CCAcctFrom.AcctID))...)
		}
	}

	p.logger.Info("Parsed OFX file",
		logging.F(logging.FieldCount, len(lines)),
		logging.F("bank_statements", bankStmts),
		logging.F("cc_statements", ccStmts))

	return lines, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList, account string) []Line {
	if list == nil {
		return nil
	}
	lines := make([]Line, 0, len(list.Transactions))
	for _, tx := range list.Transactions {
		line, err := convertTransaction(tx, account)
		if err != nil {
			p.logger.WithError(err).Warn("Skipping statement line",
				logging.F("fitid", string(tx.FiTID)),
				logging.F("account", account))
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func convertTransaction(tx ofxgo.Transaction, account string) (Line, error) {
	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(2))
	if err != nil {
		return Line{}, fmt.Errorf("invalid amount: %w", err)
	}
	description := describe(tx)
	if description == "" {
		return Line{}, fmt.Errorf("transaction %s has no description", tx.FiTID)
	}

	id := string(tx.FiTID)
	if account != "" {
		id = account + ":" + id
	}
	return Line{
		ID:          id,
		Account:     account,
		Date:        tx.DtPosted.Time,
		Amount:      amount,
		Description: description,
		Type:        fmt.Sprintf("%v", tx.TrnType),
	}, nil
}

// describe builds the free-text description the resolvers read. Banks put
// the merchant in NAME (or PAYEE) and often the city and country in MEMO.
func describe(tx ofxgo.Transaction) string {
	name := strings.TrimSpace(string(tx.Name))
	if tx.Payee != nil && tx.Payee.Name != "" {
		name = strings.TrimSpace(string(tx.Payee.Name))
	}
	memo := strings.TrimSpace(string(tx.Memo))

	switch {
	case memo == "":
		return name
	case name == "" || isGenericDescription(name):
		return memo
	case strings.Contains(strings.ToUpper(name), strings.ToUpper(memo)):
		return name
	default:
		return name + " " + memo
	}
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}

	upperName := strings.ToUpper(name)
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}
