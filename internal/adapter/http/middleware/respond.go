package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iho/cashledger/internal/adapter/http/dto"
)

// writeError answers in the same JSON shape the handlers use.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: message, Message: details})
}
