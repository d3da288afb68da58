// internal/domain/models/familygroup.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FamilyRole is a member's role inside a family group.
type FamilyRole string

const (
	FamilyRoleAdmin  FamilyRole = "admin"
	FamilyRoleMember FamilyRole = "member"
)

// Valid reports whether r is a known role.
func (r FamilyRole) Valid() bool {
	return r == FamilyRoleAdmin || r == FamilyRoleMember
}

// MemberStatus tags a roster entry. Entries are never deleted; a member who
// is removed or leaves keeps their entry with a non-active status.
type MemberStatus string

const (
	MemberActive  MemberStatus = "active"
	MemberRemoved MemberStatus = "removed"
	MemberLeft    MemberStatus = "left"
)

// FamilyMember is one roster entry embedded in a FamilyGroup.
type FamilyMember struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"userId"`
	Role     FamilyRole         `bson:"role" json:"role"`
	Status   MemberStatus       `bson:"status" json:"status"`
	JoinedAt time.Time          `bson:"joined_at" json:"joinedAt"`
}

// IsActive reports whether the entry counts as a current member.
func (m FamilyMember) IsActive() bool { return m.Status == MemberActive }

// IsActiveAdmin reports whether the entry is a current admin.
func (m FamilyMember) IsActiveAdmin() bool {
	return m.Status == MemberActive && m.Role == FamilyRoleAdmin
}

// FamilySettings holds the group's sharing and approval policy.
type FamilySettings struct {
	AllowMemberInvites        bool `bson:"allow_member_invites" json:"allowMemberInvites"`
	RequireApprovalForRecipes bool `bson:"require_approval_for_recipes" json:"requireApprovalForRecipes"`
	SharedPantry              bool `bson:"shared_pantry" json:"sharedPantry"`
	SharedMealPlans           bool `bson:"shared_meal_plans" json:"sharedMealPlans"`
	SharedShoppingLists       bool `bson:"shared_shopping_lists" json:"sharedShoppingLists"`
}

// DefaultFamilySettings returns the settings a new group starts with.
func DefaultFamilySettings() FamilySettings {
	return FamilySettings{
		AllowMemberInvites:        true,
		RequireApprovalForRecipes: false,
		SharedPantry:              true,
		SharedMealPlans:           true,
		SharedShoppingLists:       true,
	}
}

// FamilySettingsPatch is a partial settings overlay. Nil fields are left
// unchanged.
type FamilySettingsPatch struct {
	AllowMemberInvites        *bool `json:"allowMemberInvites,omitempty"`
	RequireApprovalForRecipes *bool `json:"requireApprovalForRecipes,omitempty"`
	SharedPantry              *bool `json:"sharedPantry,omitempty"`
	SharedMealPlans           *bool `json:"sharedMealPlans,omitempty"`
	SharedShoppingLists       *bool `json:"sharedShoppingLists,omitempty"`
}

// Apply returns s with every non-nil field of p copied over it.
func (s FamilySettings) Apply(p *FamilySettingsPatch) FamilySettings {
	if p == nil {
		return s
	}
	if p.AllowMemberInvites != nil {
		s.AllowMemberInvites = *p.AllowMemberInvites
	}
	if p.RequireApprovalForRecipes != nil {
		s.RequireApprovalForRecipes = *p.RequireApprovalForRecipes
	}
	if p.SharedPantry != nil {
		s.SharedPantry = *p.SharedPantry
	}
	if p.SharedMealPlans != nil {
		s.SharedMealPlans = *p.SharedMealPlans
	}
	if p.SharedShoppingLists != nil {
		s.SharedShoppingLists = *p.SharedShoppingLists
	}
	return s
}

// SharingArea names a kind of data that a family group may share.
type SharingArea string

const (
	ShareRecipes       SharingArea = "recipes"
	SharePantry        SharingArea = "pantry"
	ShareMealPlans     SharingArea = "meal_plans"
	ShareShoppingLists SharingArea = "shopping_lists"
)

// Shares reports whether the settings allow sharing the given area.
// Recipes are always shareable with the family.
func (s FamilySettings) Shares(area SharingArea) bool {
	switch area {
	case ShareRecipes:
		return true
	case SharePantry:
		return s.SharedPantry
	case ShareMealPlans:
		return s.SharedMealPlans
	case ShareShoppingLists:
		return s.SharedShoppingLists
	}
	return false
}

// FamilyGroup is the family aggregate: the group document together with
// its embedded roster. Roster changes go through the methods in roster.go.
//
// AdminID records the creator. It is used to enforce "one administered
// group per user" and is not updated when roles change; permission checks
// use the roster's effective roles instead.
type FamilyGroup struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	AdminID     primitive.ObjectID `bson:"admin_id" json:"adminId"`
	Members     []FamilyMember     `bson:"members" json:"members"`
	InviteCode  string             `bson:"invite_code" json:"inviteCode"`
	Settings    FamilySettings     `bson:"settings" json:"settings"`

	// Version is bumped on every write and guards read-modify-write cycles.
	Version int64 `bson:"version" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
