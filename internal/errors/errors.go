package errors

import "fmt"

type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Field + ": " + e.Message
}

// ErrNotFound indicates an entity is missing from durable storage.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// ErrInvalidSymbol indicates an empty or malformed ticker symbol.
type ErrInvalidSymbol struct {
	Symbol string
}

func (e *ErrInvalidSymbol) Error() string {
	if e.Symbol == "" {
		return "invalid symbol: empty"
	}
	return "invalid symbol: " + e.Symbol
}

// ErrPriceNotFound indicates price resolution exhausted its backtracking
// depth without finding a close price for the ticker.
type ErrPriceNotFound struct {
	Ticker string
}

func (e *ErrPriceNotFound) Error() string {
	return "no price found for " + e.Ticker
}

// ErrRateLimited indicates the remote provider rejected a request with a
// rate-limit response. Transient: callers back off and retry, and must never
// record the day as a holiday.
type ErrRateLimited struct {
	Symbol string
}

func (e *ErrRateLimited) Error() string {
	return "rate limited by price provider for " + e.Symbol
}
