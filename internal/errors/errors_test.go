package errors

import "testing"

func TestErrValidationError(t *testing.T) {
	err := &ErrValidation{Field: "amount", Message: "must be positive"}
	if got, want := err.Error(), "amount: must be positive"; got != want {
		t.Fatalf("unexpected error string: got %q want %q", got, want)
	}
}

func TestErrNotFoundError(t *testing.T) {
	err := &ErrNotFound{Entity: "portfolio", ID: "abc"}
	if got, want := err.Error(), "portfolio not found: abc"; got != want {
		t.Fatalf("unexpected error string: got %q want %q", got, want)
	}
}

func TestErrInvalidSymbolEmpty(t *testing.T) {
	err := &ErrInvalidSymbol{}
	if got, want := err.Error(), "invalid symbol: empty"; got != want {
		t.Fatalf("unexpected error string: got %q want %q", got, want)
	}
}

func TestErrPriceNotFoundError(t *testing.T) {
	err := &ErrPriceNotFound{Ticker: "ACME"}
	if got, want := err.Error(), "no price found for ACME"; got != want {
		t.Fatalf("unexpected error string: got %q want %q", got, want)
	}
}
