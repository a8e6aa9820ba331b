package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

const genericErrorMessage = "An error occurred"

var (
	// ErrUnauthorized is reachable from the APIError returned for a 401 response.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNetwork is reachable from the APIError returned once a transport failure exhausts its retries.
	ErrNetwork = errors.New("network error")
)

// APIError is the normalized failure every request surfaces.
type APIError struct {
	Message string          `json:"message"`
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
	err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	return e.err
}

// AsAPIError returns the APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an APIError.
func StatusOf(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err came from a 401 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || StatusOf(err) == http.StatusUnauthorized
}

// errorEnvelope is the backend failure body: {success: false, message}.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// newResponseError normalizes a non-2xx response.
func newResponseError(status int, body []byte) *APIError {
	apiErr := &APIError{
		Status:  status,
		Message: fmt.Sprintf("request failed with status code %d", status),
		Data:    rawPayload(body),
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		apiErr.Message = envelope.Message
	}
	if status == http.StatusUnauthorized {
		apiErr.err = ErrUnauthorized
	}
	return apiErr
}

// newTransportError normalizes a failure where no response arrived.
func newTransportError(err error) *APIError {
	message := genericErrorMessage
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return &APIError{
		Status:  http.StatusInternalServerError,
		Message: message,
		err:     errors.Wrap(ErrNetwork, message),
	}
}

// rawPayload keeps a JSON body as-is and encodes anything else as a JSON string.
func rawPayload(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	encoded, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return encoded
}
