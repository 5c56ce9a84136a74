package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"orgcms.dev/cms/internal/auth"
	"orgcms.dev/cms/internal/obs"
	"orgcms.dev/cms/pkg/access"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	payload := map[string]any{
		"error": msg,
		"code":  code,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, status, payload)
}

func writeKindError(w http.ResponseWriter, r *http.Request, kind access.ErrorKind) {
	writeError(w, r, kind.HTTPStatus(), string(kind), kind.Message())
}

// handleAuthError maps service errors to responses. Validation errors carry
// their detail; auth failures stay generic.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	kind := auth.KindOf(err)
	switch kind {
	case access.KindValidation:
		writeError(w, r, kind.HTTPStatus(), string(kind), err.Error())
	case access.KindPersistence:
		obs.Logger().WithError(err).WithField("request_id", RequestIDFromContext(r.Context())).Error("request failed")
		writeKindError(w, r, kind)
	default:
		writeKindError(w, r, kind)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, string(access.KindValidation), "request body too large")
		return
	}
	writeError(w, r, http.StatusBadRequest, string(access.KindValidation), err.Error())
}
