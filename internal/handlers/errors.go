package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/i18n"
	"github.com/diewo77/go-crm/internal/platform/logger"
	"github.com/diewo77/go-crm/internal/store"
	"github.com/diewo77/go-crm/validation"
)

// writeError maps store and decoding errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var vErr *store.ValidationError
	var refErr *store.ReferenceError
	switch {
	case errors.As(err, &vErr):
		httpx.JSONErrorMessage(w, http.StatusBadRequest, "validation_failed", violationMessage(r, vErr.Violations), vErr.Violations)
	case errors.As(err, &refErr):
		httpx.JSONErrorMessage(w, http.StatusUnprocessableEntity, "reference_error", refErr.Error(),
			map[string]any{"kind": refErr.Kind, "id": refErr.ID})
	case errors.Is(err, store.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, store.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, "conflict", nil)
	case errors.Is(err, httpx.ErrInvalidJSON):
		httpx.JSONErrorMessage(w, http.StatusBadRequest, "invalid_json", err.Error(), nil)
	default:
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// pathID reads a positive integer path parameter. It answers 400 itself on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || n == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", map[string]string{name: r.PathValue(name)})
		return 0, false
	}
	return uint(n), true
}

// violationMessage renders violations as "field: message" in the caller's language.
func violationMessage(r *http.Request, v validation.Violations) string {
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	parts := make([]string, 0, len(v))
	for _, f := range v.Fields() {
		parts = append(parts, f+": "+i18n.T(lang, v[f]))
	}
	return i18n.T(lang, "validation_failed") + " (" + strings.Join(parts, ", ") + ")"
}
