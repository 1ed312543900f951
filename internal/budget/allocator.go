package budget

import (
	"fmt"
	"math"
)

// DefaultWarningMargin is added to the suggested ceiling in budget warnings.
const DefaultWarningMargin = 5000

// Entry records how one category's budget was allocated and spent.
type Entry struct {
	Category       Category `json:"category" yaml:"category"`
	Base           int      `json:"base" yaml:"base"`
	Effective      int      `json:"effective" yaml:"effective"`
	Used           int      `json:"used" yaml:"used"`
	SpilloverAfter int      `json:"spillover_after" yaml:"spillover_after"`
	Skipped        bool     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Allocator divides a token ceiling across categories and carries unused
// budget forward in priority order.
//
// Categories must be processed in priority order, each with Begin followed
// by Finish, or with Skip when the category is absent. An Allocator belongs
// to one bundling run and is not safe for concurrent use.
type Allocator struct {
	ceiling   int
	available int
	margin    int
	base      map[Category]int
	spillover int

	open    Category
	bonus   int
	entries []Entry
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithWarningMargin sets the margin added to suggested ceilings.
func WithWarningMargin(margin int) Option {
	return func(a *Allocator) {
		if margin >= 0 {
			a.margin = margin
		}
	}
}

// NewAllocator computes base budgets for every category.
//
// The available budget is ceiling minus conversationTokens, floored at zero.
// Each category's base is floor(available × weight). A nil weights map uses
// DefaultWeights.
func NewAllocator(ceiling, conversationTokens int, weights Weights, opts ...Option) (*Allocator, error) {
	if ceiling < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCeiling, ceiling)
	}
	if weights == nil {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	available := ceiling - max(0, conversationTokens)
	if available < 0 {
		available = 0
	}

	a := &Allocator{
		ceiling:   ceiling,
		available: available,
		margin:    DefaultWarningMargin,
		base:      make(map[Category]int, len(Categories)),
	}
	for _, c := range Categories {
		// The epsilon stops exact products from flooring one below.
		a.base[c] = int(math.Floor(float64(available)*weights[c] + 1e-9))
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Ceiling returns the configured token ceiling.
func (a *Allocator) Ceiling() int { return a.ceiling }

// Available returns the ceiling minus conversation tokens.
func (a *Allocator) Available() int { return a.available }

// Base returns the base budget of c.
func (a *Allocator) Base(c Category) int { return a.base[c] }

// Spillover returns the currently accumulated unused budget.
func (a *Allocator) Spillover() int { return a.spillover }

// Begin opens category c and returns its effective budget: the base plus
// half the accumulated spillover, or all of it for the final category.
func (a *Allocator) Begin(c Category) int {
	bonus := a.spillover / 2
	if c == Categories[len(Categories)-1] {
		bonus = a.spillover
	}
	a.open = c
	a.bonus = bonus
	return a.base[c] + bonus
}

// Finish closes category c after it consumed used tokens and updates the
// spillover pool.
//
// Unused base budget joins the pool. The category's bonus is charged to the
// pool only for the portion actually drawn, that is used beyond base.
func (a *Allocator) Finish(c Category, used int) {
	bonus := 0
	if a.open == c {
		bonus = a.bonus
	}
	used = max(0, used)
	base := a.base[c]

	unused := max(0, base-used)
	drawn := min(bonus, max(0, used-base))
	a.spillover = unused + (a.spillover - drawn)

	a.entries = append(a.entries, Entry{
		Category:       c,
		Base:           base,
		Effective:      base + bonus,
		Used:           used,
		SpilloverAfter: a.spillover,
	})
	a.open = ""
	a.bonus = 0
}

// Skip runs Begin and Finish with zero usage for an absent category so its
// whole base budget flows forward.
func (a *Allocator) Skip(c Category) {
	a.Begin(c)
	a.Finish(c, 0)
	a.entries[len(a.entries)-1].Skipped = true
}

// Ledger returns the allocation record of every finished category, in the
// order they were processed.
func (a *Allocator) Ledger() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Used returns the total tokens consumed by finished categories.
func (a *Allocator) Used() int {
	total := 0
	for _, e := range a.entries {
		total += e.Used
	}
	return total
}
