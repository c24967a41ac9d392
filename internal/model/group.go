package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Split validation errors.
var (
	ErrInvalidSplit  = errors.New("invalid split")
	ErrUnknownMember = errors.New("member does not belong to group")
)

// Group is a set of users who share expenses.
type Group struct {
	ID      string
	Name    string
	Members []string
}

// HasMember reports whether owner belongs to the group.
func (g *Group) HasMember(owner string) bool {
	for _, m := range g.Members {
		if m == owner {
			return true
		}
	}
	return false
}

// splitTolerance absorbs rounding when percentages are entered as decimals
// (e.g. three-way 33.33/33.33/33.34 entered as 33.33 each).
var splitTolerance = decimal.NewFromFloat(0.01)

// SplitShare is one member's percentage slice of a shared transaction.
type SplitShare struct {
	Member  string
	Percent decimal.Decimal
}

// ShareOf returns the member's portion of the given amount, rounded to cents.
func (s SplitShare) ShareOf(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.Percent).Div(decimal.NewFromInt(100)).Round(2)
}

// Split allocates one transaction's cost among the members of its group.
type Split struct {
	TransactionID string
	Shares        []SplitShare
}

// Validate checks that percentages sum to 100 within tolerance and that every
// share belongs to a member of the group. Runs at write time; the core never
// sees an invalid split.
func (s *Split) Validate(group *Group) error {
	if len(s.Shares) == 0 {
		return fmt.Errorf("%w: no shares", ErrInvalidSplit)
	}
	total := decimal.Zero
	for _, share := range s.Shares {
		if share.Percent.IsNegative() {
			return fmt.Errorf("%w: negative percentage for %s", ErrInvalidSplit, share.Member)
		}
		if group != nil && !group.HasMember(share.Member) {
			return fmt.Errorf("%w: %s not in group %s", ErrUnknownMember, share.Member, group.ID)
		}
		total = total.Add(share.Percent)
	}
	hundred := decimal.NewFromInt(100)
	if total.Sub(hundred).Abs().GreaterThan(splitTolerance) {
		return fmt.Errorf("%w: percentages sum to %s, want 100", ErrInvalidSplit, total)
	}
	return nil
}
