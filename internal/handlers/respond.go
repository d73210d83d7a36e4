package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/haptickrill/krill/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	var notFound *apperrors.ErrNotFound
	var priceNotFound *apperrors.ErrPriceNotFound
	var validation *apperrors.ErrValidation
	var invalidSymbol *apperrors.ErrInvalidSymbol

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &notFound), errors.As(err, &priceNotFound):
		status = http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &invalidSymbol):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
