package auth

// Permission codes are "resource:action" strings. "resource:*" grants every
// action on the resource; PermSuperAdmin grants everything.
const (
	PermSuperAdmin  = "admin:super"
	PermAdminAccess = "admin:access"

	PermModelsList = "models:list"

	PermHistoricoList = "historico:list"

	PermShowroomView = "showroom:view"
)
