// internal/app/features/family/types.go
package family

import (
	"context"
	"time"

	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

/*─────────────────────────────── requests ───────────────────────────────*/

type createRequest struct {
	Name        string                      `json:"name" validate:"required,notblank" label:"Name"`
	Description string                      `json:"description"`
	Settings    *models.FamilySettingsPatch `json:"settings"`
}

type updateRequest struct {
	Name        *string                     `json:"name" validate:"omitempty,notblank" label:"Name"`
	Description *string                     `json:"description"`
	Settings    *models.FamilySettingsPatch `json:"settings"`
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,emailaddr" label:"Email"`
}

type joinRequest struct {
	InviteCode string `json:"inviteCode" validate:"required,notblank" label:"Invite code"`
}

type updateMemberRequest struct {
	Role     *models.FamilyRole `json:"role" validate:"omitempty,oneof=admin member" label:"Role"`
	IsActive *bool              `json:"isActive"`
}

/*─────────────────────────────── views ───────────────────────────────*/

// MemberView is one roster entry with the user's display fields filled in.
type MemberView struct {
	UserID   primitive.ObjectID  `json:"userId"`
	Name     string              `json:"name"`
	Email    string              `json:"email"`
	Role     models.FamilyRole   `json:"role"`
	Status   models.MemberStatus `json:"status"`
	IsActive bool                `json:"isActive"`
	JoinedAt time.Time           `json:"joinedAt"`
}

// GroupView is a group as seen by one actor.
type GroupView struct {
	ID          primitive.ObjectID    `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	AdminID     primitive.ObjectID    `json:"adminId"`
	InviteCode  string                `json:"inviteCode"`
	Settings    models.FamilySettings `json:"settings"`
	Members     []MemberView          `json:"members"`
	MemberCount int                   `json:"memberCount"`
	UserRole    models.FamilyRole     `json:"userRole,omitempty"`
	IsAdmin     bool                  `json:"isAdmin"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

func (s *Service) directory(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apierr.Internal(err, "load member names")
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func toMemberView(m models.FamilyMember, u models.User) MemberView {
	return MemberView{
		UserID:   m.UserID,
		Name:     u.FullName,
		Email:    u.Email,
		Role:     m.Role,
		Status:   m.Status,
		IsActive: m.IsActive(),
		JoinedAt: m.JoinedAt,
	}
}

func toGroupView(actor authz.Actor, g models.FamilyGroup, dir map[primitive.ObjectID]models.User) GroupView {
	v := GroupView{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		AdminID:     g.AdminID,
		InviteCode:  g.InviteCode,
		Settings:    g.Settings,
		Members:     make([]MemberView, 0, len(g.Members)),
		MemberCount: g.ActiveMemberCount(),
		IsAdmin:     g.IsActiveAdmin(actor.ID),
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
	if m, ok := g.Member(actor.ID); ok && m.IsActive() {
		v.UserRole = m.Role
	}
	for _, m := range g.Members {
		v.Members = append(v.Members, toMemberView(m, dir[m.UserID]))
	}
	return v
}

func (s *Service) view(ctx context.Context, actor authz.Actor, g models.FamilyGroup) (GroupView, error) {
	views, err := s.views(ctx, actor, []models.FamilyGroup{g})
	if err != nil {
		return GroupView{}, err
	}
	return views[0], nil
}

// views resolves member names for all groups with one directory lookup.
func (s *Service) views(ctx context.Context, actor authz.Actor, groups []models.FamilyGroup) ([]GroupView, error) {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, g := range groups {
		for _, m := range g.Members {
			if !seen[m.UserID] {
				seen[m.UserID] = true
				ids = append(ids, m.UserID)
			}
		}
	}
	dir := map[primitive.ObjectID]models.User{}
	if len(ids) > 0 {
		var err error
		if dir, err = s.directory(ctx, ids); err != nil {
			return nil, err
		}
	}
	out := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupView(actor, g, dir))
	}
	return out, nil
}

func (s *Service) memberView(ctx context.Context, m models.FamilyMember) (MemberView, error) {
	dir, err := s.directory(ctx, []primitive.ObjectID{m.UserID})
	if err != nil {
		return MemberView{}, err
	}
	return toMemberView(m, dir[m.UserID]), nil
}
