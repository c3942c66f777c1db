package rbac

import (
	"slices"
	"strings"
)

// Role represents an account access tier.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Capability represents a discrete action which can be checked in handlers and templates.
type Capability string

const (
	CapPostsList   Capability = "posts.list"
	CapPostsShow   Capability = "posts.show"
	CapPostsCreate Capability = "posts.create"
	CapPostsEdit   Capability = "posts.edit"
	CapPostsDelete Capability = "posts.delete"
	CapMetricsView Capability = "metrics.view"
)

// DefaultRoles are granted to accounts created through self-service registration.
var DefaultRoles = []string{string(RoleEditor)}

var capabilityRoles = map[Capability]Roles{
	CapPostsList:   {RoleEditor, RoleViewer},
	CapPostsShow:   {RoleEditor, RoleViewer},
	CapPostsCreate: {RoleEditor},
	CapPostsEdit:   {RoleEditor},
	CapPostsDelete: {RoleEditor},
	CapMetricsView: {RoleAdmin},
}

// Roles captures a list of roles and exposes intersection checks used for RBAC evaluation.
type Roles []Role

// Has returns true if the provided role exists in the set.
func (rs Roles) Has(role Role) bool {
	return slices.Contains(rs, role)
}

// Intersects returns true if any role in the candidate slice is also present in the set.
func (rs Roles) Intersects(candidate Roles) bool {
	return slices.ContainsFunc(candidate, rs.Has)
}

// NormaliseRoles converts raw role strings into canonical Role values.
func NormaliseRoles(raw []string) Roles {
	if len(raw) == 0 {
		return nil
	}
	roles := make(Roles, 0, len(raw))
	for _, val := range raw {
		role := Role(strings.ToLower(strings.TrimSpace(val)))
		if role == "" || roles.Has(role) {
			continue
		}
		roles = append(roles, role)
	}
	return roles
}

// HasCapability reports whether the provided roles grant access to the capability.
// Admin users implicitly possess every defined capability.
func HasCapability(userRoles []string, capability Capability) bool {
	if capability == "" {
		return true
	}
	allowed, ok := capabilityRoles[capability]
	if !ok {
		return false
	}
	roles := NormaliseRoles(userRoles)
	if roles.Has(RoleAdmin) {
		return true
	}
	return allowed.Intersects(roles)
}

// CapabilitiesForRoles enumerates the capabilities accessible to the provided user roles.
func CapabilitiesForRoles(userRoles []string) map[Capability]bool {
	caps := make(map[Capability]bool, len(capabilityRoles))
	for capability := range capabilityRoles {
		if HasCapability(userRoles, capability) {
			caps[capability] = true
		}
	}
	return caps
}
