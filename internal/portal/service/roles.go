package service

import (
	"strings"

	"github.com/pointerhq/portal/internal/portal/domain"
)

// Realm role names as registered in the identity provider.
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// RoleResolver maps a user's org placement and declared profile onto realm
// roles. Org attributes win over the declared profile: someone placed in a
// privileged sector or holding the admin job title gets admin regardless of
// what the request said.
type RoleResolver struct {
	PrivilegedSectors []string
	AdminJobTitle     string
}

func (r RoleResolver) Resolve(sector, jobTitle, profile string) []string {
	if r.isPrivilegedSector(sector) || r.isAdminTitle(jobTitle) {
		return []string{RoleUser, RoleAdmin}
	}

	switch strings.ToUpper(profile) {
	case domain.ProfileAdmin:
		return []string{RoleUser, RoleAdmin}
	case domain.ProfileManager, "GESTOR":
		return []string{RoleUser, RoleManager}
	default:
		return []string{RoleUser}
	}
}

func (r RoleResolver) isPrivilegedSector(sector string) bool {
	for _, s := range r.PrivilegedSectors {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(sector)) {
			return true
		}
	}
	return false
}

func (r RoleResolver) isAdminTitle(jobTitle string) bool {
	return r.AdminJobTitle != "" && strings.EqualFold(strings.TrimSpace(jobTitle), r.AdminJobTitle)
}
