// internal/domain/models/roster.go
package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roster errors. Callers map these to API error kinds.
var (
	ErrSoleAdmin           = errors.New("a family group must keep at least one active admin")
	ErrAlreadyActiveMember = errors.New("user is already an active member of this family group")
	ErrMemberNotFound      = errors.New("member not found in this family group")
	ErrBadFamilyRole       = errors.New(`role must be "admin" or "member"`)
)

// NewFamilyGroup builds a group whose only member is the creator, as admin.
func NewFamilyGroup(name, description string, creator primitive.ObjectID, settings FamilySettings, inviteCode string, now time.Time) FamilyGroup {
	return FamilyGroup{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: description,
		AdminID:     creator,
		Members: []FamilyMember{{
			UserID:   creator,
			Role:     FamilyRoleAdmin,
			Status:   MemberActive,
			JoinedAt: now,
		}},
		InviteCode: inviteCode,
		Settings:   settings,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// indexOf returns the roster position of userID, or -1.
func (g *FamilyGroup) indexOf(userID primitive.ObjectID) int {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return i
		}
	}
	return -1
}

// Member returns the roster entry for userID, active or not.
func (g *FamilyGroup) Member(userID primitive.ObjectID) (FamilyMember, bool) {
	i := g.indexOf(userID)
	if i < 0 {
		return FamilyMember{}, false
	}
	return g.Members[i], true
}

// IsActiveMember reports whether userID currently belongs to the group.
func (g *FamilyGroup) IsActiveMember(userID primitive.ObjectID) bool {
	m, ok := g.Member(userID)
	return ok && m.IsActive()
}

// IsActiveAdmin reports whether userID is a current admin of the group.
func (g *FamilyGroup) IsActiveAdmin(userID primitive.ObjectID) bool {
	m, ok := g.Member(userID)
	return ok && m.IsActiveAdmin()
}

// ActiveMemberCount counts current members.
func (g *FamilyGroup) ActiveMemberCount() int {
	n := 0
	for _, m := range g.Members {
		if m.IsActive() {
			n++
		}
	}
	return n
}

// ActiveAdminCount counts current admins.
func (g *FamilyGroup) ActiveAdminCount() int {
	return countActiveAdmins(g.Members)
}

// CheckInvariants verifies the roster holds at least one active admin.
func (g *FamilyGroup) CheckInvariants() error {
	if countActiveAdmins(g.Members) < 1 {
		return ErrSoleAdmin
	}
	return nil
}

// Admit adds userID as an active member. A previously inactive entry is
// reactivated in place (role reset to member, joinedAt reset) so the roster
// never holds two entries for one user.
func (g *FamilyGroup) Admit(userID primitive.ObjectID, now time.Time) error {
	next := g.cloneMembers()
	if i := g.indexOf(userID); i >= 0 {
		if next[i].IsActive() {
			return ErrAlreadyActiveMember
		}
		next[i].Role = FamilyRoleMember
		next[i].Status = MemberActive
		next[i].JoinedAt = now
	} else {
		next = append(next, FamilyMember{
			UserID:   userID,
			Role:     FamilyRoleMember,
			Status:   MemberActive,
			JoinedAt: now,
		})
	}
	return g.commit(next, now)
}

// MemberUpdate is a partial change to one roster entry.
type MemberUpdate struct {
	Role     *FamilyRole
	IsActive *bool
}

// UpdateMember applies u to the entry for userID. Reactivating resets
// joinedAt. Any change that would leave no active admin is rejected.
func (g *FamilyGroup) UpdateMember(userID primitive.ObjectID, u MemberUpdate, now time.Time) error {
	i := g.indexOf(userID)
	if i < 0 {
		return ErrMemberNotFound
	}
	next := g.cloneMembers()
	if u.Role != nil {
		if !u.Role.Valid() {
			return ErrBadFamilyRole
		}
		next[i].Role = *u.Role
	}
	if u.IsActive != nil {
		switch {
		case *u.IsActive && !next[i].IsActive():
			next[i].Status = MemberActive
			next[i].JoinedAt = now
		case !*u.IsActive && next[i].IsActive():
			next[i].Status = MemberRemoved
		}
	}
	return g.commit(next, now)
}

// Deactivate soft-removes userID with the given status (removed or left).
// Deactivating an entry that is already inactive is a no-op.
func (g *FamilyGroup) Deactivate(userID primitive.ObjectID, status MemberStatus, now time.Time) error {
	i := g.indexOf(userID)
	if i < 0 {
		return ErrMemberNotFound
	}
	if !g.Members[i].IsActive() {
		return nil
	}
	next := g.cloneMembers()
	next[i].Status = status
	return g.commit(next, now)
}

// commit installs next as the roster if it keeps an active admin.
func (g *FamilyGroup) commit(next []FamilyMember, now time.Time) error {
	if countActiveAdmins(next) < 1 {
		return ErrSoleAdmin
	}
	g.Members = next
	g.UpdatedAt = now
	return nil
}

func (g *FamilyGroup) cloneMembers() []FamilyMember {
	out := make([]FamilyMember, len(g.Members))
	copy(out, g.Members)
	return out
}

func countActiveAdmins(members []FamilyMember) int {
	n := 0
	for _, m := range members {
		if m.IsActiveAdmin() {
			n++
		}
	}
	return n
}
