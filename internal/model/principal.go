package model

import "github.com/google/uuid"

// Tier is the effective permission level derived from role membership.
// It is resolved once per request so call sites branch on the tier
// instead of re-scanning role collections.
type Tier int

const (
	TierUser Tier = iota
	TierManager
	TierAdmin
)

func (t Tier) String() string {
	switch t {
	case TierAdmin:
		return RoleAdmin
	case TierManager:
		return RoleManager
	default:
		return RoleUser
	}
}

// TierFromRoles resolves the highest tier granted by a set of roles.
func TierFromRoles(roles []Role) Tier {
	tier := TierUser
	for _, r := range roles {
		switch r.Name {
		case RoleAdmin:
			return TierAdmin
		case RoleManager:
			tier = TierManager
		}
	}
	return tier
}

// Principal is the authenticated actor performing an operation, with its
// permission tier and group memberships already resolved.
type Principal struct {
	UserID     uuid.UUID
	Name       string
	Email      string
	Tier       Tier
	GroupIDs   []uuid.UUID
	ApproverID *uuid.UUID
}

// IsAdmin reports whether the principal holds the admin tier.
func (p Principal) IsAdmin() bool { return p.Tier == TierAdmin }

// CanApprove reports whether the principal may enter the approval flow at
// all (admin or manager). Group-level checks happen per approval.
func (p Principal) CanApprove() bool { return p.Tier >= TierManager }

// InGroup reports whether the principal is a member of the given group.
func (p Principal) InGroup(groupID uuid.UUID) bool {
	for _, id := range p.GroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}
