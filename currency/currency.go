// Package currency holds the currency-code and currency-pair value types
// shared by the relation and engine packages.
package currency

import (
	"fmt"
	"strings"
)

// Code is an uppercase textual currency symbol, e.g. "BTC" or "EUR".
type Code string

// New case-normalizes and validates s.
func New(s string) (Code, error) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	if c == "" {
		return "", fmt.Errorf("currency: empty code")
	}
	return c, nil
}

// String implements fmt.Stringer.
func (c Code) String() string {
	return string(c)
}

// Pair is an ordered (base, quote) currency pair: one unit of Base is
// worth Rate units of Quote.
type Pair struct {
	Base  Code
	Quote Code
}

// NewPair builds a Pair, case-normalizing both sides.
func NewPair(base, quote Code) Pair {
	return Pair{Base: Code(strings.ToUpper(string(base))), Quote: Code(strings.ToUpper(string(quote)))}
}

// Reverse swaps the two components.
func (p Pair) Reverse() Pair {
	return Pair{Base: p.Quote, Quote: p.Base}
}

// String renders "BASE/QUOTE".
func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.Base, p.Quote)
}
