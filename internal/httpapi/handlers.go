package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"osmadmin.org/internal/audit"
	"osmadmin.org/internal/auth"
	"osmadmin.org/internal/directory"
	"osmadmin.org/internal/history"
	"osmadmin.org/internal/obs"
	"osmadmin.org/internal/refdata"
	"osmadmin.org/internal/showroom"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body; details go to the log only.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, directory.ErrNotFound),
		errors.Is(err, refdata.ErrNotFound),
		errors.Is(err, showroom.ErrNotFound),
		errors.Is(err, history.ErrNotFound),
		errors.Is(err, audit.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, directory.ErrConflict),
		errors.Is(err, refdata.ErrConflict),
		errors.Is(err, showroom.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, directory.ErrInvalidInput),
		errors.Is(err, refdata.ErrInvalidInput),
		errors.Is(err, showroom.ErrInvalidInput),
		errors.Is(err, refdata.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, directory.ErrInvalidState),
		errors.Is(err, showroom.ErrInvalidState):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		obs.LogEvent(map[string]any{
			"level": "error",
			"msg":   "request failed",
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// pageEnvelope is the pagination wrapper every list endpoint returns. The
// page number is 0-based.
type pageEnvelope struct {
	Content          any  `json:"content"`
	TotalElements    int  `json:"totalElements"`
	TotalPages       int  `json:"totalPages"`
	Size             int  `json:"size"`
	Number           int  `json:"number"`
	NumberOfElements int  `json:"numberOfElements"`
	First            bool `json:"first"`
	Last             bool `json:"last"`
	Empty            bool `json:"empty"`
}

func envelope(content any, total, number, size, count int) pageEnvelope {
	if size < 1 {
		size = 1
	}
	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		// an empty result still counts as one page
		totalPages = 1
	}
	return pageEnvelope{
		Content:          content,
		TotalElements:    total,
		TotalPages:       totalPages,
		Size:             size,
		Number:           number,
		NumberOfElements: count,
		First:            number == 0,
		Last:             number >= totalPages-1,
		Empty:            count == 0,
	}
}

func pageFromQuery(r *http.Request) directory.Page {
	page := directory.Page{}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		page.Number = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil {
		page.Size = v
	}
	return page.Normalize()
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.pinger != nil {
		if err := a.pinger.Ping(r.Context()); err != nil {
			obs.SetReady(false)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "osm-admin-api",
		"version": a.version,
	})
}
