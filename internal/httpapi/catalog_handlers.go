package httpapi

import (
	"net/http"
	"strconv"

	"osmadmin.org/internal/refdata"
	"osmadmin.org/internal/showroom"
)

func (a *API) handleEntityList(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if v := r.URL.Query().Get("includeInactive"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "includeInactive must be a boolean")
			return
		}
		includeInactive = parsed
	}
	rows, err := a.refdata.List(r.Context(), refdata.Kind(r.PathValue("kind")), includeInactive)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleEntityGet(w http.ResponseWriter, r *http.Request) {
	row, err := a.refdata.Get(r.Context(), refdata.Kind(r.PathValue("kind")), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (a *API) handleEntityCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Description string  `json:"description"`
		Color       *string `json:"color"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	row, err := a.refdata.Create(r.Context(), refdata.Kind(r.PathValue("kind")), body.Description, body.Color)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (a *API) handleEntityUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Description *string `json:"description"`
		IsActive    *bool   `json:"isActive"`
		Color       *string `json:"color"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	row, err := a.refdata.Update(r.Context(), refdata.Kind(r.PathValue("kind")), r.PathValue("id"), refdata.Update{
		Description: body.Description,
		IsActive:    body.IsActive,
		Color:       body.Color,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (a *API) handleShowroomView(w http.ResponseWriter, r *http.Request) {
	view, err := a.showroom.View(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleShowroomFeature(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ModelID string `json:"modelId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	entry, err := a.showroom.Feature(r.Context(), body.ModelID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) handleShowroomUnfeature(w http.ResponseWriter, r *http.Request) {
	if err := a.showroom.Unfeature(r.Context(), r.PathValue("modelId")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleShowroomReorder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EntryIDs []string `json:"entryIds"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := a.showroom.Reorder(r.Context(), body.EntryIDs); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleShowroomConfigGet(w http.ResponseWriter, r *http.Request) {
	config, err := a.showroom.GetConfig(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, config)
}

func (a *API) handleShowroomConfigPut(w http.ResponseWriter, r *http.Request) {
	var body showroom.Config
	if !decodeJSON(w, r, &body) {
		return
	}
	config, err := a.showroom.UpdateConfig(r.Context(), body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, config)
}
