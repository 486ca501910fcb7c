package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "relaygate/pkg/domain-errors"
)

// errorMapping is the HTTP rendering of one domain code.
type errorMapping struct {
	status int
	wire   string
}

var errorMappings = map[dErrors.Code]errorMapping{
	dErrors.CodeNotFound:           {http.StatusNotFound, "not_found"},
	dErrors.CodeBadRequest:         {http.StatusBadRequest, "bad_request"},
	dErrors.CodeInvalidInput:       {http.StatusBadRequest, "bad_request"},
	dErrors.CodeInvariantViolation: {http.StatusBadRequest, "validation_error"},
	dErrors.CodeConflict:           {http.StatusConflict, "conflict"},
	dErrors.CodeUnauthorized:       {http.StatusUnauthorized, "unauthorized"},
	dErrors.CodeRateLimited:        {http.StatusTooManyRequests, "rate_limited"},
	dErrors.CodeUnavailable:        {http.StatusServiceUnavailable, "backend_unavailable"},
	dErrors.CodeTimeout:            {http.StatusGatewayTimeout, "timeout"},
}

var internalError = errorMapping{http.StatusInternalServerError, "internal_error"}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status is already sent; an encode failure has nowhere to go
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError renders err as {"error", "error_description"}. Errors without a
// domain code become a bare 500 so causes never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code, ok := dErrors.CodeOf(err)
	if !ok {
		WriteJSON(w, internalError.status, map[string]string{"error": internalError.wire})
		return
	}
	mapping := lookup(code)
	response := map[string]string{"error": mapping.wire}
	if msg := err.Error(); msg != "" && msg != string(code) {
		response["error_description"] = msg
	}
	WriteJSON(w, mapping.status, response)
}

func lookup(code dErrors.Code) errorMapping {
	if m, ok := errorMappings[code]; ok {
		return m
	}
	return internalError
}

// DomainCodeToHTTPStatus translates a domain code to an HTTP status.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	return lookup(code).status
}

// DomainCodeToHTTPCode translates a domain code to the JSON error string.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	return lookup(code).wire
}
