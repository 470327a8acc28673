package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"gomosbridge/bridge"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const maxBodySize = 1 << 20

func responseJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func responseOK(w http.ResponseWriter, result interface{}) {
	responseJSON(w, &APIResultResponse{Status: "ok", Result: result}, http.StatusOK)
}

// errorStatus maps bridge errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, bridge.ErrUnauthorizedCaller), errors.Is(err, bridge.ErrOperationPaused):
		return http.StatusForbidden
	case errors.Is(err, bridge.ErrDuplicateEvent),
		errors.Is(err, bridge.ErrAlreadyInitialized),
		errors.Is(err, bridge.ErrTokenKindConflict),
		errors.Is(err, bridge.ErrOperationNotPaused):
		return http.StatusConflict
	case bridge.IsRejection(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) responseError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorStatus(err)
	fields := logrus.Fields{"path": r.URL.Path, "caller": CallerFrom(r.Context()), "error": err.Error()}
	msg := err.Error()
	if code == http.StatusInternalServerError {
		a.Logger.WithFields(fields).Error("request failed")
		msg = "internal error"
	} else {
		a.Logger.WithFields(fields).Info("request rejected")
	}
	responseJSON(w, &APIResponse{Status: "error", Message: msg}, code)
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		a.Logger.WithField("error", err.Error()).Warn("error reading request body")
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		a.Logger.WithField("error", err.Error()).Info("error unmarshalling request body")
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot unmarshal input JSON",
		}, http.StatusBadRequest)
		return false
	}
	return true
}

func badField(w http.ResponseWriter, field, msg string) {
	responseJSON(w, &APIResponse{Status: "error", Field: field, Message: msg}, http.StatusBadRequest)
}
