package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"ms-events/internal/logger"
)

type DataResponse struct {
	Data interface{} `json:"data"`
}

type ErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeJSON reads the request body into dst. An empty body leaves dst
// untouched so validation reports the missing fields. A value of the wrong
// JSON type for a named field is a validation failure, anything else that
// does not parse is a bad request.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return ValidationFailed(typeErr.Field, typeMessage(typeErr))
	}
	return fmt.Errorf("invalid JSON body: %v: %w", err, ErrBadRequest)
}

func typeMessage(e *json.UnmarshalTypeError) string {
	attr := strings.ReplaceAll(e.Field, "_", " ")
	kind := reflect.Invalid
	if e.Type != nil {
		kind = e.Type.Kind()
	}
	switch kind {
	case reflect.String:
		return fmt.Sprintf("The %s field must be a string.", attr)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("The %s field must be an integer.", attr)
	case reflect.Bool:
		return fmt.Sprintf("The %s field must be true or false.", attr)
	default:
		return fmt.Sprintf("The %s field is invalid.", attr)
	}
}

// WriteData wraps a single resource as {"data": ...}.
func WriteData(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, DataResponse{Data: data})
}

// StatusFor maps an error from the service layer to its HTTP status.
func StatusFor(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var defaultMessages = map[int]string{
	http.StatusUnauthorized:    "Unauthenticated.",
	http.StatusForbidden:       "This action is unauthorized.",
	http.StatusNotFound:        "Resource not found.",
	http.StatusConflict:        "The resource already exists.",
	http.StatusTooManyRequests: "Too Many Attempts.",
	http.StatusBadRequest:      "Malformed request body.",
}

// WriteError renders err as the JSON error body. Server errors are logged and
// replaced by a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	status := StatusFor(err)
	body := ErrorResponse{Message: defaultMessages[status]}

	var verr *ValidationError
	var cerr *ClientError
	switch {
	case errors.As(err, &verr):
		body.Message = verr.Error()
		body.Errors = verr.Fields
	case status == http.StatusInternalServerError:
		body.Message = "Server Error"
		if log != nil {
			log.Error("API", r.Method+" "+r.URL.Path+": "+err.Error())
		}
	case errors.As(err, &cerr):
		body.Message = cerr.Message
	}

	WriteJSON(w, status, body)
}
