// Package httputil renders the JSON envelope every endpoint answers with:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": {"code": "...", "message": "..."}}
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "evidex/pkg/domain-errors"
)

// maxBodyBytes caps request bodies; collection uploads carry content inline.
const maxBodyBytes = 64 << 20

// Envelope is the response body shape.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a success envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Success: true, Data: data})
}

// WriteError translates err into a status and an error envelope. Internal
// errors never expose their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := &ErrorBody{Code: string(code)}
	if code != dErrors.CodeInternal {
		body.Message = dErrors.MessageOf(err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(code))
	_ = json.NewEncoder(w).Encode(Envelope{Success: false, Error: body})
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeInvalidTransition, dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodePrivilegedDocument:
		return http.StatusUnprocessableEntity
	case dErrors.CodePartialBatchFailure:
		return http.StatusMultiStatus
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes a size-limited request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

// Validatable is implemented by request bodies that normalize and check
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the body into a T and runs its Validate method.
// On failure it writes the error envelope and returns false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	if err := DecodeJSON(r, req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "failed to decode request",
				"error", err,
				"request_id", requestID,
			)
		}
		WriteError(w, err)
		return nil, false
	}
	if err := PT(req).Validate(); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "invalid request",
				"error", err,
				"request_id", requestID,
			)
		}
		WriteError(w, err)
		return nil, false
	}
	return req, true
}

// WriteCSV sets the CSV headers, names the download and lets render write the
// body. Errors after the first byte can only be logged.
func WriteCSV(w http.ResponseWriter, filename string, render func(io.Writer) error) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	return render(w)
}

// DecodeOptionalAndPrepare is DecodeAndPrepare for endpoints whose body may be
// omitted; an empty body validates the zero value.
func DecodeOptionalAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		req := new(T)
		if err := PT(req).Validate(); err != nil {
			WriteError(w, err)
			return nil, false
		}
		return req, true
	}
	return DecodeAndPrepare[T, PT](w, r, logger, ctx, requestID)
}
