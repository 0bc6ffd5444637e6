package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mroshb/word_game/internal/middleware"
	"github.com/mroshb/word_game/internal/security"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/mroshb/word_game/pkg/logger"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps an AppError code to its HTTP status. Anything without a
// code is logged and reported as an internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	status := statusFor(code)

	message := "internal server error"
	var appErr *errors.AppError
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		message = appErr.Message
	}
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		code = errors.ErrCodeInternalError
	}

	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func statusFor(code string) int {
	switch code {
	case errors.ErrCodeValidation, errors.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden, errors.ErrCodeNotHost:
		return http.StatusForbidden
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeRoomFull, errors.ErrCodeNotAllReady, errors.ErrCodePreconditionFailed,
		errors.ErrCodeMissionState, errors.ErrCodeAlreadyExists, errors.ErrCodeInsufficientFunds:
		return http.StatusConflict
	case errors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case errors.ErrCodeGraderTimeout, errors.ErrCodeGraderFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || err == io.EOF {
		return nil
	}
	return errors.Wrap(err, errors.ErrCodeValidation, "malformed request body")
}

func identity(r *http.Request) security.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}

func pathRoomID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}
