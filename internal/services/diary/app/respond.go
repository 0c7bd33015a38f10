package app

import (
	"encoding/json"
	stderrors "errors"
	"log"
	"net/http"

	"github.com/clinarc/ediary/internal/platform/errors"
	"github.com/clinarc/ediary/internal/services/diary/storage"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// writeError maps domain errors to a JSON error body. Messages from unknown
// errors are not echoed to clients.
func writeError(w http.ResponseWriter, err error) {
	code := errors.CodeUnknown
	message := "internal error"
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		code = errors.CodeNotFound
		message = "record not found"
	case stderrors.Is(err, storage.ErrAlreadyExists):
		code = errors.CodeAlreadyExists
		message = "record already exists"
	default:
		var domainErr *errors.Error
		if stderrors.As(err, &domainErr) {
			code = domainErr.Code
			message = domainErr.Message
		}
	}
	if code == errors.CodeUnknown {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, code.HTTPStatus(), errorBody{Error: errorDetail{
		Code:    string(code),
		Message: message,
	}})
}

func writeInvalid(w http.ResponseWriter, message string) {
	writeError(w, errors.New(errors.CodeInvalidArgument, message))
}

func decodeJSON(r *http.Request, into any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return errors.Wrap(errors.CodeInvalidArgument, "invalid request body", err)
	}
	return nil
}
