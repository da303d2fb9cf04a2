package auth

import "github.com/Dan9191/adboard/internal/models"

// RoleResolver decides the role assigned at registration
type RoleResolver interface {
	Resolve(username, password string) models.Role
}

// CredentialRoleResolver grants admin when the registration credentials
// exactly match the bootstrap pair. It is inert while either value is empty.
type CredentialRoleResolver struct {
	AdminUsername string
	AdminPassword string
}

func (r CredentialRoleResolver) Resolve(username, password string) models.Role {
	if r.AdminUsername == "" || r.AdminPassword == "" {
		return models.RoleEmployee
	}
	if username == r.AdminUsername && password == r.AdminPassword {
		return models.RoleAdmin
	}
	return models.RoleEmployee
}

// StaticRoleResolver always returns Role
type StaticRoleResolver struct {
	Role models.Role
}

func (r StaticRoleResolver) Resolve(string, string) models.Role {
	return r.Role
}
