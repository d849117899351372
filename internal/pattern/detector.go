// Package pattern assigns expense subcategories from transaction descriptions.
package pattern

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/savings-plan/internal/model"
)

// Pattern maps descriptions matching Regex to Subcategory. Matching is case-insensitive.
type Pattern struct {
	Name        string `mapstructure:"name"`
	Subcategory string `mapstructure:"subcategory"`
	Regex       string `mapstructure:"regex"`
	Priority    int    `mapstructure:"priority"` // higher priority patterns are checked first
}

type compiledPattern struct {
	re *regexp.Regexp
	Pattern
}

// Detector matches descriptions against a priority-ordered pattern list. It is safe for
// concurrent use.
type Detector struct {
	patterns []compiledPattern
	mu       sync.RWMutex
}

// NewDetector compiles patterns.
func NewDetector(patterns []Pattern) (*Detector, error) {
	d := &Detector{}
	if err := d.UpdatePatterns(patterns); err != nil {
		return nil, err
	}
	return d, nil
}

func compile(patterns []Pattern) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p.Subcategory) == "" {
			return nil, fmt.Errorf("pattern %s has no subcategory", p.Name)
		}
		expr := p.Regex
		if !strings.HasPrefix(expr, "(?i)") {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %s: %w", p.Name, err)
		}
		compiled = append(compiled, compiledPattern{Pattern: p, re: re})
	}

	// stable, so equal priorities keep their configured order
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority > compiled[j].Priority
	})
	return compiled, nil
}

// UpdatePatterns replaces the pattern list. On error the previous list is kept.
func (d *Detector) UpdatePatterns(patterns []Pattern) error {
	compiled, err := compile(patterns)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.patterns = compiled
	d.mu.Unlock()
	return nil
}

// Match returns the highest-priority pattern matching the description, if any.
func (d *Detector) Match(description string) (Pattern, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, p := range d.patterns {
		if p.re.MatchString(description) {
			return p.Pattern, true
		}
	}
	return Pattern{}, false
}

// Apply returns txns with a subcategory assigned to every expense that has none and whose
// description matches. Other transactions are returned unchanged. The second result counts
// the assignments.
func (d *Detector) Apply(txns []model.Transaction) ([]model.Transaction, int) {
	out := make([]model.Transaction, len(txns))
	assigned := 0
	for i, txn := range txns {
		out[i] = txn
		if txn.Category != model.CategoryExpense || txn.Subcategory != "" {
			continue
		}
		if p, ok := d.Match(txn.Description); ok {
			out[i].Subcategory = p.Subcategory
			assigned++
		}
	}
	return out, assigned
}

// Count returns the number of loaded patterns.
func (d *Detector) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.patterns)
}
