package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/producthunt/apiserver/internal/auth"
	"github.com/producthunt/apiserver/internal/payment"
	"github.com/producthunt/apiserver/internal/services"
	"github.com/producthunt/apiserver/internal/storage"
	"github.com/producthunt/apiserver/internal/store"
	"go.uber.org/zap"
)

const (
	defaultPage    = 1
	defaultLimit   = 10
	maxLimit       = 100
	maxJSONBytes   = 1 << 20
	maxImageBytes  = 5 << 20
	formFieldImage = "image"
)

const (
	kindUnauthenticated   = "unauthenticated"
	kindInvalidCredential = "invalid_credential"
	kindForbidden         = "forbidden"
	kindNotFound          = "not_found"
	kindInvalidInput      = "invalid_input"
	kindInvalidStatus     = "invalid_status"
	kindAlreadyVoted      = "already_voted"
	kindNotVoted          = "not_voted"
	kindDuplicate         = "duplicate"
	kindUpstream          = "upstream_error"
	kindUnavailable       = "unavailable"
	kindStorage           = "storage_error"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorResponse is the failure payload: a machine-readable kind plus a message.
type ErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Kind: kind, Error: message})
}

// classify maps an error from any layer to its response status and kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, kindUnauthenticated
	case errors.Is(err, auth.ErrInvalidCredential):
		return http.StatusUnauthorized, kindInvalidCredential
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, kindForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusBadRequest, kindInvalidInput
	case errors.Is(err, services.ErrInvalidStatus):
		return http.StatusBadRequest, kindInvalidStatus
	case errors.Is(err, store.ErrAlreadyVoted):
		return http.StatusConflict, kindAlreadyVoted
	case errors.Is(err, store.ErrNotVoted):
		return http.StatusConflict, kindNotVoted
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, kindDuplicate
	case errors.Is(err, payment.ErrUpstream):
		return http.StatusBadGateway, kindUpstream
	default:
		return http.StatusInternalServerError, kindStorage
	}
}

// writeServiceError logs err at the request boundary and writes the mapped
// response. Server-side failures never leak their message to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status, kind := classify(err)
	fields := []zap.Field{
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("kind", kind),
		zap.Error(err),
	}

	message := err.Error()
	switch {
	case status == http.StatusBadGateway:
		logger.Error("upstream failure", fields...)
		message = "payment provider error"
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", fields...)
		message = "internal storage error"
	default:
		logger.Debug("request rejected", fields...)
	}
	writeError(w, status, kind, message)
}

// decodeJSON reads a size-limited JSON body into dst and validates its struct tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return invalidRequest("request body is required")
		}
		return invalidRequest("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return invalidRequest(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request"
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "url", "http_url":
		return field + " must be a valid URL"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	default:
		return field + " is invalid"
	}
}

type requestError struct {
	message string
}

func (e requestError) Error() string { return e.message }

func (e requestError) Unwrap() error { return services.ErrInvalidInput }

func invalidRequest(message string) error {
	return requestError{message: message}
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, invalidRequest("invalid page")
		}
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		rawLimit = strings.TrimSpace(r.URL.Query().Get("size"))
	}
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return 0, 0, 0, invalidRequest("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, invalidRequest("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, invalidRequest("uploaded file too large")
	}
	return data, nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
