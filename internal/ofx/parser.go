// Package ofx reads OFX/QFX bank and credit-card statements into transactions.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// opening tags at the end of a line with no closing bracket
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
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

// ParseFile parses an OFX/QFX file and returns its transactions in statement order.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.Transaction, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var transactions []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		bankStmts++
		accountID := string(stmt.BankAcctFrom.AcctID)
		for _, ofxTx := range stmt.BankTranList.Transactions {
			transactions = append(transactions, p.convertTransaction(ofxTx, accountID, model.InstrumentDebit))
		}
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		ccStmts++
		accountID := string(stmt.CCAcctFrom.AcctID)
		for _, ofxTx := range stmt.BankTranList.Transactions {
			transactions = append(transactions, p.convertTransaction(ofxTx, accountID, model.InstrumentCredit))
		}
	}

	slog.InfoContext(ctx, "Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

// convertTransaction converts an OFX transaction to our model. Amounts keep the OFX sign:
// negative is money leaving the account.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string, instrument model.Instrument) model.Transaction {
	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(4))
	if err != nil {
		amount = decimal.Zero
	}

	posted := ofxTx.DtPosted.Time
	tx := model.Transaction{
		ID:          string(ofxTx.FiTID),
		Date:        time.Date(posted.Year(), posted.Month(), posted.Day(), 0, 0, 0, 0, time.UTC),
		Description: p.extractMerchantName(ofxTx),
		Amount:      amount,
		AccountID:   accountID,
		Instrument:  instrument,
	}
	if ofxTx.Memo != "" {
		tx.Notes = string(ofxTx.Memo)
	}
	if ofxTx.CheckNum != "" {
		tx.Notes = strings.TrimSpace(tx.Notes + " check " + string(ofxTx.CheckNum))
	}

	categorize(&tx, ofxTx)
	tx.Hash = tx.GenerateHash()

	return tx
}

// categorize assigns the category from the OFX transaction type and direction.
func categorize(tx *model.Transaction, ofxTx ofxgo.Transaction) {
	outflow := tx.Amount.IsNegative()

	switch ofxTx.TrnType {
	case ofxgo.TrnTypeATM, ofxgo.TrnTypeCash:
		tx.Category = model.CategoryCashMovement
		tx.MovementType = model.MovementWithdrawal
		if !outflow {
			tx.MovementType = model.MovementDeposit
		}
		return
	case ofxgo.TrnTypeXfer:
		tx.Category = model.CategoryCashMovement
		tx.MovementType = model.MovementTransfer
		return
	case ofxgo.TrnTypeDep:
		tx.Category = model.CategoryCashMovement
		tx.MovementType = model.MovementDeposit
		return
	case ofxgo.TrnTypeFee, ofxgo.TrnTypeSrvChg, ofxgo.TrnTypeInt:
		if outflow {
			tx.Category = model.CategoryFinancialCharge
			tx.Settlement = model.SettlementSettled
			return
		}
	case ofxgo.TrnTypePayment:
		// paying off the card moves money between our own accounts
		if tx.Instrument == model.InstrumentCredit && !outflow {
			tx.Category = model.CategoryCashMovement
			tx.MovementType = model.MovementTransfer
			return
		}
	}

	if outflow {
		tx.Category = model.CategoryExpense
		return
	}
	tx.Category = model.CategoryIncome
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)

	// MEMO sometimes has better merchant info
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}

	name = strings.TrimSpace(name)

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

	// "MM/DD " date stamps at the beginning
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// GetAccounts extracts unique account IDs from the OFX file.
func (p *Parser) GetAccounts(_ context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var accounts []string
	add := func(id ofxgo.String) {
		if id != "" && !seen[string(id)] {
			seen[string(id)] = true
			accounts = append(accounts, string(id))
		}
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(stmt.BankAcctFrom.AcctID)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(stmt.CCAcctFrom.AcctID)
		}
	}

	return accounts, nil
}
