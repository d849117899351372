package model

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the primary classification of a transaction.
type Category string

// Primary categories.
const (
	CategoryExpense         Category = "expense"
	CategoryCashMovement    Category = "cash_movement"
	CategoryFinancialCharge Category = "financial_charge"
	CategoryIncome          Category = "income"
)

// Valid reports whether c is one of the known primary categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryExpense, CategoryCashMovement, CategoryFinancialCharge, CategoryIncome:
		return true
	}
	return false
}

// UserCategory is the optional category assigned by the user on top of the primary one.
type UserCategory string

// User categories. UserCategoryNone is the zero value.
const (
	UserCategoryNone          UserCategory = ""
	UserCategoryRecurring     UserCategory = "recurring_operation"
	UserCategoryIncome        UserCategory = "income"
	UserCategoryNotApplicable UserCategory = "not_applicable"
)

// IsUnset reports whether the user category is absent or explicitly not applicable.
func (u UserCategory) IsUnset() bool {
	return u == UserCategoryNone || u == UserCategoryNotApplicable
}

// Instrument is the payment instrument used.
type Instrument string

// Payment instruments.
const (
	InstrumentDebit  Instrument = "debit"
	InstrumentCredit Instrument = "credit"
)

// Tier is the size classification of an expense.
type Tier string

// Expense tiers. Automatic is pre-assigned; the others are derived.
const (
	TierNone        Tier = ""
	TierAutomatic   Tier = "automatic"
	TierTrivial     Tier = "trivial"
	TierModerate    Tier = "moderate"
	TierExceptional Tier = "exceptional"
)

// MovementType is the subtype of a cash movement.
type MovementType string

// Cash movement subtypes.
const (
	MovementTransfer   MovementType = "transfer"
	MovementWithdrawal MovementType = "withdrawal"
	MovementDeposit    MovementType = "deposit"
	MovementOther      MovementType = "other"
)

// Settlement is the payment state of charges and recurring operations.
type Settlement string

// Settlement states. SettlementAll is only meaningful as a filter value.
const (
	SettlementNone    Settlement = ""
	SettlementSettled Settlement = "settled"
	SettlementPending Settlement = "pending"
	SettlementAll     Settlement = "all"
)

// Transaction invariant violations.
var (
	ErrMissingID            = errors.New("transaction has no id")
	ErrUnknownCategory      = errors.New("unknown category")
	ErrExpenseOnlyField     = errors.New("subcategory and tier are only valid for expenses")
	ErrCashMovementOnly     = errors.New("movement type is only valid for cash movements")
	ErrOverdueWithoutOrigin = errors.New("overdue transaction has no origin period")
)

// Transaction is a single financial operation. Values are replaced whole; callers never
// mutate a stored Transaction in place.
type Transaction struct {
	Date         time.Time
	DueDate      time.Time // maximum payment date, only set while pending
	ID           string
	AccountID    string
	Description  string
	Category     Category
	UserCategory UserCategory
	Subcategory  string
	Instrument   Instrument
	Tier         Tier
	MovementType MovementType
	Settlement   Settlement
	ScheduleID   string
	OriginPeriod string
	Notes        string
	Hash         string
	Tags         []string
	Amount       decimal.Decimal
	Linked       bool
	Overdue      bool
}

// EffectiveDate is the due date for pending transactions that carry one, otherwise the
// occurrence date.
func (t *Transaction) EffectiveDate() time.Time {
	if t.Settlement == SettlementPending && !t.DueDate.IsZero() {
		return t.DueDate
	}
	return t.Date
}

// IsInflow reports whether the amount is strictly positive.
func (t *Transaction) IsInflow() bool {
	return t.Amount.IsPositive()
}

// IsOutflow reports whether the amount is strictly negative.
func (t *Transaction) IsOutflow() bool {
	return t.Amount.IsNegative()
}

// Validate checks the structural invariants of a transaction.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return ErrMissingID
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, t.Category)
	}
	if t.Category != CategoryExpense && (t.Subcategory != "" || t.Tier != TierNone) {
		return fmt.Errorf("%w: transaction %s", ErrExpenseOnlyField, t.ID)
	}
	if t.Category != CategoryCashMovement && t.MovementType != "" {
		return fmt.Errorf("%w: transaction %s", ErrCashMovementOnly, t.ID)
	}
	if t.Overdue && t.OriginPeriod == "" {
		return fmt.Errorf("%w: transaction %s", ErrOverdueWithoutOrigin, t.ID)
	}
	return nil
}

// Clone returns a copy that shares no slices with t.
func (t Transaction) Clone() Transaction {
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	return t
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.Description,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
