package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/target/user-auth-api/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// WriteAppError maps an application error code onto an HTTP status and writes
// the standard error body. Unknown errors surface as a generic 500 so internal
// detail never leaks to callers.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status, ok := statusForCode(code)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: string(apperrors.ErrCodeInternal),
			Err:     apperrors.Internal("An internal error occurred."),
		})
		return
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: string(code), Err: err})
}

func statusForCode(code apperrors.ErrorCode) (int, bool) {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, true
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, true
	case apperrors.ErrCodeConflict:
		return http.StatusConflict, true
	case apperrors.ErrCodeInvalidCredentials, apperrors.ErrCodeInvalidToken:
		return http.StatusUnauthorized, true
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, true
	case apperrors.ErrCodeCanceled:
		return http.StatusServiceUnavailable, true
	default:
		return 0, false
	}
}
