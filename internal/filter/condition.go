package filter

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/model"
)

// Operator is the comparison applied by a Condition.
type Operator string

// Condition operators.
const (
	OpEquals         Operator = "="
	OpNotEquals      Operator = "!="
	OpGreater        Operator = ">"
	OpLess           Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpContains       Operator = "contains"
	OpIn             Operator = "in"
	OpNotIn          Operator = "not_in"
)

// Condition is the generic field/operator/value predicate. Unknown fields, unknown
// operators and values that cannot be compared with the field never match.
type Condition struct {
	Value any
	Field string
	Op    Operator
}

type valueKind int

const (
	kindString valueKind = iota + 1
	kindNumber
	kindBool
	kindTime
)

type fieldValue struct {
	t    time.Time
	str  string
	num  decimal.Decimal
	kind valueKind
	b    bool
}

// Fields lists the field names a Condition understands.
var Fields = []string{
	"id", "account_id", "description", "category", "user_category", "subcategory",
	"instrument", "tier", "movement_type", "settlement", "schedule_id", "origin_period",
	"notes", "amount", "abs_amount", "linked", "overdue", "date", "due_date", "effective_date",
}

func lookupField(txn *model.Transaction, field string) (fieldValue, bool) {
	str := func(s string) (fieldValue, bool) { return fieldValue{kind: kindString, str: s}, true }

	switch strings.ToLower(field) {
	case "id":
		return str(txn.ID)
	case "account_id":
		return str(txn.AccountID)
	case "description":
		return str(txn.Description)
	case "category":
		return str(string(txn.Category))
	case "user_category":
		return str(string(txn.UserCategory))
	case "subcategory":
		return str(txn.Subcategory)
	case "instrument":
		return str(string(txn.Instrument))
	case "tier":
		return str(string(txn.Tier))
	case "movement_type":
		return str(string(txn.MovementType))
	case "settlement":
		return str(string(txn.Settlement))
	case "schedule_id":
		return str(txn.ScheduleID)
	case "origin_period":
		return str(txn.OriginPeriod)
	case "notes":
		return str(txn.Notes)
	case "amount":
		return fieldValue{kind: kindNumber, num: txn.Amount}, true
	case "abs_amount":
		return fieldValue{kind: kindNumber, num: txn.Amount.Abs()}, true
	case "linked":
		return fieldValue{kind: kindBool, b: txn.Linked}, true
	case "overdue":
		return fieldValue{kind: kindBool, b: txn.Overdue}, true
	case "date":
		return fieldValue{kind: kindTime, t: txn.Date}, true
	case "due_date":
		return fieldValue{kind: kindTime, t: txn.DueDate}, true
	case "effective_date":
		return fieldValue{kind: kindTime, t: txn.EffectiveDate()}, true
	}
	return fieldValue{}, false
}

func (c Condition) Match(txn *model.Transaction) bool {
	fv, ok := lookupField(txn, c.Field)
	if !ok {
		return false
	}

	switch c.Op {
	case OpIn, OpNotIn:
		items, ok := listOf(c.Value)
		if !ok {
			return false
		}
		found := false
		for _, item := range items {
			v, ok := coerce(fv.kind, item)
			if !ok {
				continue
			}
			if cmp, ok := compare(fv, v); ok && cmp == 0 {
				found = true
				break
			}
		}
		return found == (c.Op == OpIn)

	case OpContains:
		if fv.kind != kindString {
			return false
		}
		v, ok := coerce(kindString, c.Value)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(fv.str), strings.ToLower(v.str))
	}

	v, ok := coerce(fv.kind, c.Value)
	if !ok {
		return false
	}
	cmp, ok := compare(fv, v)
	if !ok {
		return false
	}

	switch c.Op {
	case OpEquals:
		return cmp == 0
	case OpNotEquals:
		return cmp != 0
	case OpGreater:
		return fv.kind != kindBool && cmp > 0
	case OpLess:
		return fv.kind != kindBool && cmp < 0
	case OpGreaterOrEqual:
		return fv.kind != kindBool && cmp >= 0
	case OpLessOrEqual:
		return fv.kind != kindBool && cmp <= 0
	}
	return false
}

func (c Condition) Key() string {
	return fmt.Sprintf("%s%s%v", strings.ToLower(c.Field), c.Op, c.Value)
}

func compare(a, b fieldValue) (int, bool) {
	if a.kind != b.kind {
		return 0, false
	}
	switch a.kind {
	case kindString:
		return strings.Compare(a.str, b.str), true
	case kindNumber:
		return a.num.Cmp(b.num), true
	case kindBool:
		if a.b == b.b {
			return 0, true
		}
		return 1, true
	case kindTime:
		return a.t.Compare(b.t), true
	}
	return 0, false
}

func coerce(kind valueKind, v any) (fieldValue, bool) {
	switch kind {
	case kindString:
		switch x := v.(type) {
		case string:
			return fieldValue{kind: kindString, str: x}, true
		case fmt.Stringer:
			return fieldValue{kind: kindString, str: x.String()}, true
		}
		rv := reflect.ValueOf(v)
		if rv.IsValid() && rv.Kind() == reflect.String {
			return fieldValue{kind: kindString, str: rv.String()}, true
		}

	case kindNumber:
		var d decimal.Decimal
		switch x := v.(type) {
		case decimal.Decimal:
			d = x
		case int:
			d = decimal.NewFromInt(int64(x))
		case int32:
			d = decimal.NewFromInt32(x)
		case int64:
			d = decimal.NewFromInt(x)
		case float32:
			d = decimal.NewFromFloat32(x)
		case float64:
			d = decimal.NewFromFloat(x)
		case string:
			parsed, err := decimal.NewFromString(strings.TrimSpace(x))
			if err != nil {
				return fieldValue{}, false
			}
			d = parsed
		default:
			return fieldValue{}, false
		}
		return fieldValue{kind: kindNumber, num: d}, true

	case kindBool:
		switch x := v.(type) {
		case bool:
			return fieldValue{kind: kindBool, b: x}, true
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return fieldValue{}, false
			}
			return fieldValue{kind: kindBool, b: b}, true
		}

	case kindTime:
		switch x := v.(type) {
		case time.Time:
			return fieldValue{kind: kindTime, t: x}, true
		case string:
			for _, layout := range []string{time.RFC3339, "2006-01-02"} {
				if t, err := time.Parse(layout, x); err == nil {
					return fieldValue{kind: kindTime, t: t}, true
				}
			}
		}
	}
	return fieldValue{}, false
}

func listOf(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// ErrInvalidCondition is returned by ParseCondition for malformed expressions.
var ErrInvalidCondition = errors.New("invalid condition")

// ParseCondition parses "field op value", e.g. "amount < -50" or "tier in trivial,moderate".
// The value of in and not_in is a comma separated list.
func ParseCondition(expr string) (Condition, error) {
	parts := strings.Fields(expr)
	if len(parts) < 3 {
		return Condition{}, fmt.Errorf("%w: %q, expected \"field op value\"", ErrInvalidCondition, expr)
	}

	field, op := parts[0], Operator(parts[1])
	if !slices.Contains(Fields, field) {
		return Condition{}, fmt.Errorf("%w: unknown field %q", ErrInvalidCondition, field)
	}
	value := strings.Join(parts[2:], " ")

	switch op {
	case OpIn, OpNotIn:
		items := strings.Split(value, ",")
		for i := range items {
			items[i] = strings.TrimSpace(items[i])
		}
		return Condition{Field: field, Op: op, Value: items}, nil
	case OpEquals, OpNotEquals, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual, OpContains:
		return Condition{Field: field, Op: op, Value: value}, nil
	}
	return Condition{}, fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, op)
}
