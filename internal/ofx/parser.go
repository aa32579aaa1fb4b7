// Package ofx imports expenses from OFX and QFX bank statements.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/pennywise/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
)

var (
	// Mixed-case SEVERITY values (should be INFO, WARN, or ERROR).
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags that are missing their closing bracket at end of line.
	unclosedTagRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	// Trim any leading whitespace or blank lines before the header
	content = strings.TrimLeft(content, " \t\r\n")

	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTagRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file and returns its debits as imported,
// uncategorized expenses. Credits are skipped.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.Expense, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	expenses := []model.Expense{}
	var bankStmts, ccStmts, skipped int

	// Process bank messages
	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			exps, n := p.convertTransactions(stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID))
			expenses = append(expenses, exps...)
			skipped += n
		}
	}

	// Process credit card messages
	for _, msg := range resp.CreditCard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			exps, n := p.convertTransactions(stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID))
			expenses = append(expenses, exps...)
			skipped += n
		}
	}

	slog.Info("Parsed OFX file",
		"expenses", len(expenses),
		"skipped_credits", skipped,
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return expenses, nil
}

func (p *Parser) parse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// convertTransactions keeps the debits of a statement and reports how many
// other entries were skipped.
func (p *Parser) convertTransactions(txns []ofxgo.Transaction, accountID string) ([]model.Expense, int) {
	var (
		expenses []model.Expense
		skipped  int
	)
	for _, ofxTx := range txns {
		exp, ok := p.convertTransaction(ofxTx, accountID)
		if !ok {
			skipped++
			continue
		}
		expenses = append(expenses, exp)
	}
	return expenses, skipped
}

// convertTransaction converts an OFX debit to an expense.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) (model.Expense, bool) {
	// OFX uses negative amounts for debits
	amount, _ := ofxTx.TrnAmt.Float64()
	if amount >= 0 {
		return model.Expense{}, false
	}

	title := p.extractMerchantName(ofxTx)
	if title == "" {
		title = strings.TrimSpace(string(ofxTx.Name))
	}

	exp := model.NewExpense(title, string(ofxTx.Memo), -amount, ofxTx.DtPosted.Time, model.OriginImported)
	exp.ID = ExpenseID(accountID, string(ofxTx.FiTID))
	return exp, true
}

// ExpenseID derives a stable expense ID from an account and OFX transaction
// ID, so importing the same statement twice yields the same IDs.
func ExpenseID(accountID, fitID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(accountID+":"+fitID)).String()
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	// Prefer PAYEE if available (cleaner merchant name)
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	// Fall back to NAME field
	name := string(tx.Name)

	// Use MEMO field if NAME is generic
	if tx.Memo != "" && isGenericDescription(name) {
		// Sometimes MEMO has better merchant info
		name = string(tx.Memo)
	}

	// Basic cleanup
	name = strings.TrimSpace(name)

	// Remove common prefixes
	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Clean up date patterns like "MM/DD" at the beginning
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
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

// GetAccounts extracts unique account IDs from the OFX file.
func (p *Parser) GetAccounts(_ context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	accountMap := make(map[string]bool)

	// Bank accounts
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			if stmt.BankAcctFrom.AcctID != "" {
				accountMap[string(stmt.BankAcctFrom.AcctID)] = true
			}
		}
	}

	// Credit card accounts
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			if stmt.CCAcctFrom.AcctID != "" {
				accountMap[string(stmt.CCAcctFrom.AcctID)] = true
			}
		}
	}

	accounts := make([]string, 0, len(accountMap))
	for acct := range accountMap {
		accounts = append(accounts, acct)
	}
	sort.Strings(accounts)

	return accounts, nil
}
