package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"osmadmin.org/internal/analytics"
	"osmadmin.org/internal/audit"
	"osmadmin.org/internal/history"
)

func historyFilterFromQuery(r *http.Request) (history.Filter, bool) {
	filter := history.Filter{Model: r.URL.Query().Get("modelo")}
	if v := r.URL.Query().Get("dataInicio"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			return history.Filter{}, false
		}
		filter.Start = &t
	}
	if v := r.URL.Query().Get("dataFim"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			return history.Filter{}, false
		}
		// The end date is inclusive on the wire; the interval stays
		// half-open internally.
		end := t.AddDate(0, 0, 1)
		filter.End = &end
	}
	return filter, true
}

func (a *API) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	filter, ok := historyFilterFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	}
	page := history.Page{}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		page.Number = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil {
		page.Size = v
	}
	rows, total, err := a.history.List(r.Context(), filter, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if rows == nil {
		rows = []history.Row{}
	}
	size := page.Size
	if size <= 0 {
		size = 20
	}
	number := page.Number
	if number < 0 {
		number = 0
	}
	writeJSON(w, http.StatusOK, envelope(rows, total, number, size, len(rows)))
}

func (a *API) handleHistoryChart(w http.ResponseWriter, r *http.Request) {
	filter, ok := historyFilterFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	}
	points, err := a.history.Chart(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if points == nil {
		points = []history.Point{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (a *API) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	row, err := a.history.GetByKey(r.Context(), r.PathValue("key"))
	if err != nil {
		if _, _, _, parseErr := history.ParseKey(r.PathValue("key")); parseErr != nil {
			writeError(w, http.StatusBadRequest, parseErr.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (a *API) handleAnalyticsIngest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Events []analytics.Event `json:"events"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	accepted, err := a.analytics.Ingest(r.Context(), body.Events)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": accepted})
}

func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	filter := audit.Filter{
		EntityType: r.URL.Query().Get("entityType"),
		ActorID:    r.URL.Query().Get("actorId"),
		Action:     r.URL.Query().Get("action"),
	}
	page := pageFromQuery(r)
	entries, total, err := a.auditLog.List(r.Context(), filter, page.Offset(), page.Size)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, envelope(entries, total, page.Number, page.Size, len(entries)))
}

func (a *API) handleAuditGet(w http.ResponseWriter, r *http.Request) {
	entry, err := a.auditLog.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
