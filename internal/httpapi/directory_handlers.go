package httpapi

import (
	"net/http"
	"strconv"

	"osmadmin.org/internal/auth"
	"osmadmin.org/internal/directory"
	"osmadmin.org/internal/refdata"
)

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	profile, err := a.directory.ProfileOf(r.Context(), identity.SubjectID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.directory.AdminStats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	entities, err := a.refdata.Counts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		directory.Stats
		Entities map[refdata.Kind]int `json:"entities"`
	}{Stats: stats, Entities: entities})
}

func (a *API) handleUserList(w http.ResponseWriter, r *http.Request) {
	filter := directory.UserFilter{
		Search: r.URL.Query().Get("search"),
		RoleID: r.URL.Query().Get("roleId"),
	}
	if v := r.URL.Query().Get("isActive"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "isActive must be a boolean")
			return
		}
		filter.IsActive = &active
	}
	page := pageFromQuery(r)
	users, total, err := a.directory.ListUsers(r.Context(), filter, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if users == nil {
		users = []directory.User{}
	}
	writeJSON(w, http.StatusOK, envelope(users, total, page.Number, page.Size, len(users)))
}

func (a *API) handleUserGet(w http.ResponseWriter, r *http.Request) {
	user, err := a.directory.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FullName *string `json:"fullName"`
		IsActive *bool   `json:"isActive"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	user, err := a.directory.UpdateUser(r.Context(), r.PathValue("id"), directory.UserUpdate{
		FullName: body.FullName,
		IsActive: body.IsActive,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsActive bool   `json:"isActive"`
		Reason   string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	user, err := a.directory.SetUserActive(r.Context(), r.PathValue("id"), body.IsActive, body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUserRoles(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoleIDs []string `json:"roleIds"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	user, err := a.directory.AssignUserRoles(r.Context(), r.PathValue("id"), body.RoleIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleInvitationList(w http.ResponseWriter, r *http.Request) {
	filter := directory.InvitationFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}
	page := pageFromQuery(r)
	invitations, total, err := a.directory.ListInvitations(r.Context(), filter, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if invitations == nil {
		invitations = []directory.Invitation{}
	}
	writeJSON(w, http.StatusOK, envelope(invitations, total, page.Number, page.Size, len(invitations)))
}

func (a *API) handleInvitationCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email         string   `json:"email"`
		RoleIDs       []string `json:"roleIds"`
		Message       string   `json:"message"`
		ExpiresInDays int      `json:"expiresInDays"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	invitation, err := a.directory.CreateInvitation(r.Context(), directory.CreateInvitationInput{
		Email:         body.Email,
		RoleIDs:       body.RoleIDs,
		Message:       body.Message,
		ExpiresInDays: body.ExpiresInDays,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, invitation)
}

func (a *API) handleInvitationGet(w http.ResponseWriter, r *http.Request) {
	invitation, err := a.directory.GetInvitation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invitation)
}

func (a *API) handleInvitationCancel(w http.ResponseWriter, r *http.Request) {
	invitation, err := a.directory.CancelInvitation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invitation)
}

func (a *API) handleInvitationResend(w http.ResponseWriter, r *http.Request) {
	invitation, err := a.directory.ResendInvitation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invitation)
}

func (a *API) handleInvitationValidate(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	check, err := a.directory.ValidateInvitation(r.Context(), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (a *API) handleInvitationAccept(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token      string `json:"token"`
		ExternalID string `json:"externalId"`
		FullName   string `json:"fullName"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	user, err := a.directory.AcceptInvitation(r.Context(), body.Token, body.ExternalID, body.FullName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
