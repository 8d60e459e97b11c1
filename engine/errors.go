package engine

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sklarsa/crypto-gains-engine/trade"
)

// Sentinel errors a handler wraps so toEngineError can classify a failure
// into the right Kind.
var (
	ErrInsufficient = errors.New("engine: amount exceeds held balance")
	ErrCorruption   = errors.New("engine: internal consistency check failed")
)

// Kind classifies why the engine rejected a trade or detected corruption.
type Kind string

const (
	// KindInputOrder: trade.Time precedes the engine's last-seen time.
	KindInputOrder Kind = "input_order"
	// KindInputShape: a structurally invalid trade (negative amount, both
	// sides negative, fee currency not buy/sell, deposit/withdraw of base).
	KindInputShape Kind = "input_shape"
	// KindInsufficient: a withdrawal or disposal exceeds held funds.
	KindInsufficient Kind = "insufficient"
	// KindNoRoute: the currency relation has no recipe for a pair.
	KindNoRoute Kind = "no_route"
	// KindNoRate: a rate source had no sample at the requested time.
	KindNoRate Kind = "no_rate"
	// KindCorruption: an internal consistency check failed; not
	// recoverable by snapshot-and-resume.
	KindCorruption Kind = "corruption"
	// KindWarning: a non-fatal anomaly (e.g. deposit exceeds in-transit
	// balance); logged, processing continues.
	KindWarning Kind = "warning"
)

// Fatal reports whether an error of this Kind halts processing.
func (k Kind) Fatal() bool {
	return k != KindWarning
}

// Snapshots reports whether an error of this Kind should trigger a
// diagnostic snapshot before being reported (spec: corruption errors are
// non-recoverable and do not snapshot).
func (k Kind) Snapshots() bool {
	return k.Fatal() && k != KindCorruption
}

// Error names the offending trade and field alongside its Kind, per the
// requirement that every fatal error carries a message identifying both.
type Error struct {
	Kind    Kind
	Trade   trade.Trade
	Field   string
	Wrapped error
}

func (e *Error) Error() string {
	return fmt.Sprintf("engine: %s: trade at %s (exchange=%s, kind=%s), field %q: %v",
		e.Kind, e.Trade.Time, e.Trade.Exchange, e.Trade.Kind, e.Field, e.Wrapped)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

func newError(kind Kind, t trade.Trade, field string, wrapped error) *Error {
	return &Error{Kind: kind, Trade: t, Field: field, Wrapped: wrapped}
}
