package httpapi

import (
	"net/http"

	"osmadmin.org/internal/directory"
)

func (a *API) handleRoleList(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	roles, total, err := a.directory.ListRoles(r.Context(), r.URL.Query().Get("search"), page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if roles == nil {
		roles = []directory.RoleWithStats{}
	}
	writeJSON(w, http.StatusOK, envelope(roles, total, page.Number, page.Size, len(roles)))
}

func (a *API) handleRoleGet(w http.ResponseWriter, r *http.Request) {
	role, err := a.directory.GetRole(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleRoleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name          string   `json:"name"`
		Description   string   `json:"description"`
		PermissionIDs []string `json:"permissionIds"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	role, err := a.directory.CreateRole(r.Context(), directory.CreateRoleInput{
		Name:          body.Name,
		Description:   body.Description,
		PermissionIDs: body.PermissionIDs,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleRoleUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name          *string  `json:"name"`
		Description   *string  `json:"description"`
		IsActive      *bool    `json:"isActive"`
		PermissionIDs []string `json:"permissionIds"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	role, err := a.directory.UpdateRole(r.Context(), r.PathValue("id"), directory.UpdateRoleInput{
		Name:          body.Name,
		Description:   body.Description,
		IsActive:      body.IsActive,
		PermissionIDs: body.PermissionIDs,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleRoleDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.directory.DeleteRole(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRoleClone(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	role, err := a.directory.CloneRole(r.Context(), r.PathValue("id"), body.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleRoleUsers(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	users, total, err := a.directory.ListRoleUsers(r.Context(), r.PathValue("id"), page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if users == nil {
		users = []directory.User{}
	}
	writeJSON(w, http.StatusOK, envelope(users, total, page.Number, page.Size, len(users)))
}

func (a *API) handlePermissionList(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	permissions, total, err := a.directory.ListPermissions(r.Context(), r.URL.Query().Get("search"), page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if permissions == nil {
		permissions = []directory.PermissionWithStats{}
	}
	writeJSON(w, http.StatusOK, envelope(permissions, total, page.Number, page.Size, len(permissions)))
}

func (a *API) handlePermissionGet(w http.ResponseWriter, r *http.Request) {
	permission, err := a.directory.GetPermission(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, permission)
}

func (a *API) handlePermissionCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	permission, err := a.directory.CreatePermission(r.Context(), directory.CreatePermissionInput{
		Code:        body.Code,
		Description: body.Description,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, permission)
}

func (a *API) handlePermissionUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Description *string `json:"description"`
		IsActive    *bool   `json:"isActive"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	permission, err := a.directory.UpdatePermission(r.Context(), r.PathValue("id"), directory.PermissionUpdate{
		Description: body.Description,
		IsActive:    body.IsActive,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, permission)
}

func (a *API) handlePermissionDeprecate(w http.ResponseWriter, r *http.Request) {
	permission, err := a.directory.DeprecatePermission(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, permission)
}
