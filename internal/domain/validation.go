package domain

// ErrorKind reason a quantity failed validation.
type ErrorKind string

const (
	NoFunds             ErrorKind = "no_funds"
	NonPositiveQuantity ErrorKind = "non_positive_quantity"
	ExceedsCap          ErrorKind = "exceeds_cap"
	NothingOwned        ErrorKind = "nothing_owned"
	ExceedsHoldings     ErrorKind = "exceeds_holdings"
	UnknownSide         ErrorKind = "unknown_side"
)

// Message returns the inline text shown next to the trade controls.
func (k ErrorKind) Message() string {
	switch k {
	case NoFunds:
		return "Insufficient balance to buy even one unit."
	case NonPositiveQuantity:
		return "Quantity must be at least 1."
	case ExceedsCap:
		return "Quantity exceeds what your balance can buy."
	case NothingOwned:
		return "You do not own any units of this asset."
	case ExceedsHoldings:
		return "Quantity exceeds the units you own."
	case UnknownSide:
		return "Choose buy or sell."
	default:
		return string(k)
	}
}

// ValidationResult outcome of a pre-submission check.
type ValidationResult struct {
	OK     bool
	Reason ErrorKind
}

// Err returns nil for a passing result and a *ValidationError otherwise.
func (r ValidationResult) Err() error {
	if r.OK {
		return nil
	}
	return &ValidationError{Kind: r.Reason}
}

// Pass is a passing validation result.
func Pass() ValidationResult {
	return ValidationResult{OK: true}
}

// Reject builds a failing validation result.
func Reject(kind ErrorKind) ValidationResult {
	return ValidationResult{Reason: kind}
}
