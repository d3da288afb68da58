// internal/app/features/family/service.go
package family

import (
	"context"
	"errors"
	"strings"
	"time"

	familystore "github.com/dalemusser/recipehub/internal/app/store/families"
	userstore "github.com/dalemusser/recipehub/internal/app/store/users"
	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/app/system/auditlog"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/recipehub/internal/app/system/inputval"
	"github.com/dalemusser/recipehub/internal/app/system/invitecode"
	"github.com/dalemusser/recipehub/internal/app/system/metrics"
	"github.com/dalemusser/recipehub/internal/app/system/normalize"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GroupRepository is the persistence the service needs. *familystore.Store
// satisfies it.
type GroupRepository interface {
	Create(ctx context.Context, g models.FamilyGroup) (models.FamilyGroup, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.FamilyGroup, error)
	GetByInviteCode(ctx context.Context, code string) (models.FamilyGroup, error)
	ExistsForAdmin(ctx context.Context, userID primitive.ObjectID) (bool, error)
	ListForMember(ctx context.Context, userID primitive.ObjectID) ([]models.FamilyGroup, error)
	Save(ctx context.Context, g *models.FamilyGroup) error
}

// UserDirectory is the identity-store lookup the service needs.
// *userstore.Store satisfies it.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

// CodeGenerator hands out unused invite codes.
type CodeGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// InviteNotifier tells a user they were added to a group.
type InviteNotifier interface {
	NotifyInvite(ctx context.Context, invitee models.User, inviter authz.Actor, g models.FamilyGroup) error
}

// Options carries the optional collaborators and tuning knobs.
type Options struct {
	Notifier InviteNotifier
	Activity ActivityReader
	Audit    *auditlog.Logger
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	// MaxRetries bounds reload-and-reapply cycles after a version conflict.
	MaxRetries int
	// CreateAttempts bounds inserts retried after an invite-code collision.
	CreateAttempts int

	Now func() time.Time
}

// Defaults for Options.
const (
	DefaultMaxRetries     = 5
	DefaultCreateAttempts = 3
)

// Service implements the family group operations. Every roster change is a
// read-modify-write on one aggregate guarded by its version.
type Service struct {
	groups GroupRepository
	users  UserDirectory
	codes  CodeGenerator

	notify   InviteNotifier
	activity ActivityReader
	audit    *auditlog.Logger
	metrics  *metrics.Metrics
	log      *zap.Logger

	maxRetries     int
	createAttempts int
	now            func() time.Time
}

// NewService wires a Service. Zero-valued options fall back to defaults.
func NewService(groups GroupRepository, users UserDirectory, codes CodeGenerator, opts Options) *Service {
	s := &Service{
		groups:         groups,
		users:          users,
		codes:          codes,
		notify:         opts.Notifier,
		activity:       opts.Activity,
		audit:          opts.Audit,
		metrics:        opts.Metrics,
		log:            opts.Logger,
		maxRetries:     opts.MaxRetries,
		createAttempts: opts.CreateAttempts,
		now:            opts.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.maxRetries <= 0 {
		s.maxRetries = DefaultMaxRetries
	}
	if s.createAttempts <= 0 {
		s.createAttempts = DefaultCreateAttempts
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Mongo stores milliseconds; truncating keeps returned and stored values equal.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

/*─────────────────────────────── inputs ───────────────────────────────*/

// CreateInput is the data for a new group.
type CreateInput struct {
	Name        string
	Description string
	Settings    *models.FamilySettingsPatch
}

// UpdateInput is a partial group update. Nil fields are unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	Settings    *models.FamilySettingsPatch
}

// groupFields is validated after normalization so limits apply to the
// trimmed text.
type groupFields struct {
	Name        string `validate:"required,notblank,max=50" label:"Name"`
	Description string `validate:"max=200" label:"Description"`
}

// groupDescription trims a group description and rejects markup. The result is
// exactly what gets stored and length-checked.
func groupDescription(raw string) (string, error) {
	d, err := htmlsanitize.Text(raw)
	if err != nil {
		return "", apierr.Validation("Description must be plain text.")
	}
	return d, nil
}

func validateGroupFields(name, description string) error {
	if res := inputval.Validate(groupFields{Name: name, Description: description}); res.HasErrors() {
		return apierr.Validation("%s", res.First())
	}
	return nil
}

/*─────────────────────────────── errors ───────────────────────────────*/

var (
	errGroupNotFound = apierr.NotFound("Family group not found.")
	errNotMember     = apierr.Forbidden("You are not a member of this family group.")
	errAdminOnly     = apierr.Forbidden("Only a family admin can do that.")
)

// errUnchanged tells mutate the closure made no change worth saving.
var errUnchanged = errors.New("unchanged")

// rosterErr maps aggregate errors to API errors.
func rosterErr(err error) error {
	switch {
	case errors.Is(err, models.ErrSoleAdmin):
		return apierr.Validation("A family group must keep at least one active admin. Promote another member first.")
	case errors.Is(err, models.ErrAlreadyActiveMember):
		return apierr.Conflict("That user is already a member of this family group.")
	case errors.Is(err, models.ErrMemberNotFound):
		return apierr.NotFound("Member not found in this family group.")
	case errors.Is(err, models.ErrBadFamilyRole):
		return apierr.Validation(`Role must be "admin" or "member".`)
	}
	return err
}

/*─────────────────────────────── core loop ───────────────────────────────*/

// mutate loads the group, applies fn and saves with the loaded version. On
// a version conflict the group is reloaded and fn re-applied, at most
// maxRetries times. fn may be called more than once and must only touch g
// and its own captured state.
func (s *Service) mutate(ctx context.Context, op string, id primitive.ObjectID, fn func(g *models.FamilyGroup) error) (models.FamilyGroup, error) {
	for attempt := 0; ; attempt++ {
		g, err := s.groups.GetByID(ctx, id)
		if errors.Is(err, familystore.ErrNotFound) {
			return models.FamilyGroup{}, errGroupNotFound
		}
		if err != nil {
			return models.FamilyGroup{}, apierr.Internal(err, "load family group")
		}

		if err := fn(&g); err != nil {
			if errors.Is(err, errUnchanged) {
				return g, nil
			}
			return models.FamilyGroup{}, rosterErr(err)
		}

		err = s.groups.Save(ctx, &g)
		switch {
		case err == nil:
			return g, nil
		case errors.Is(err, familystore.ErrVersionConflict):
			s.metrics.VersionConflict(op)
			s.log.Debug("family group version conflict",
				zap.String("op", op), zap.String("family_id", id.Hex()), zap.Int("attempt", attempt+1))
			if attempt >= s.maxRetries {
				return models.FamilyGroup{}, apierr.Conflict("The family group is being changed by someone else. Please try again.")
			}
		case errors.Is(err, familystore.ErrNotFound):
			return models.FamilyGroup{}, errGroupNotFound
		default:
			return models.FamilyGroup{}, apierr.Internal(err, "save family group")
		}
	}
}

/*─────────────────────────────── operations ───────────────────────────────*/

// Create makes a new group with the actor as its sole active admin.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateInput) (view GroupView, err error) {
	defer func() { s.metrics.FamilyOp("create", err) }()

	name := normalize.Name(in.Name)
	desc, err := groupDescription(in.Description)
	if err != nil {
		return GroupView{}, err
	}
	if err := validateGroupFields(name, desc); err != nil {
		return GroupView{}, err
	}

	taken, err := s.groups.ExistsForAdmin(ctx, actor.ID)
	if err != nil {
		return GroupView{}, apierr.Internal(err, "check existing admin group")
	}
	if taken {
		return GroupView{}, apierr.Conflict("You already administer a family group.")
	}

	settings := models.DefaultFamilySettings().Apply(in.Settings)
	for attempt := 1; ; attempt++ {
		code, err := s.codes.Generate(ctx)
		if err != nil {
			return GroupView{}, apierr.Internal(err, "generate invite code")
		}

		g := models.NewFamilyGroup(name, desc, actor.ID, settings, code, s.clock())
		created, err := s.groups.Create(ctx, g)
		switch {
		case err == nil:
			s.audit.FamilyCreated(ctx, actor.ID, created.ID, created.Name)
			return s.view(ctx, actor, created)
		case errors.Is(err, familystore.ErrDuplicateInviteCode):
			s.metrics.InviteCodeCollision()
			s.log.Warn("invite code collided on insert", zap.Int("attempt", attempt))
			if attempt >= s.createAttempts {
				return GroupView{}, apierr.Internal(err, "create family group")
			}
		case errors.Is(err, familystore.ErrAdminHasGroup):
			return GroupView{}, apierr.Conflict("You already administer a family group.")
		default:
			return GroupView{}, apierr.Internal(err, "create family group")
		}
	}
}

// ListMine returns the groups the actor is an active member of.
func (s *Service) ListMine(ctx context.Context, actor authz.Actor) (views []GroupView, err error) {
	defer func() { s.metrics.FamilyOp("list", err) }()

	groups, err := s.groups.ListForMember(ctx, actor.ID)
	if err != nil {
		return nil, apierr.Internal(err, "list family groups")
	}
	return s.views(ctx, actor, groups)
}

// Get returns one group. Only active members may see it.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id primitive.ObjectID) (view GroupView, err error) {
	defer func() { s.metrics.FamilyOp("get", err) }()

	g, err := s.load(ctx, id)
	if err != nil {
		return GroupView{}, err
	}
	if !g.IsActiveMember(actor.ID) {
		return GroupView{}, errNotMember
	}
	return s.view(ctx, actor, g)
}

func (s *Service) load(ctx context.Context, id primitive.ObjectID) (models.FamilyGroup, error) {
	g, err := s.groups.GetByID(ctx, id)
	if errors.Is(err, familystore.ErrNotFound) {
		return models.FamilyGroup{}, errGroupNotFound
	}
	if err != nil {
		return models.FamilyGroup{}, apierr.Internal(err, "load family group")
	}
	return g, nil
}

// requireAdmin checks the actor holds the admin role right now. Any active
// admin qualifies, not only the creator.
func requireAdmin(g *models.FamilyGroup, actor primitive.ObjectID) error {
	if !g.IsActiveMember(actor) {
		return errNotMember
	}
	if !g.IsActiveAdmin(actor) {
		return errAdminOnly
	}
	return nil
}

// Update changes name, description or settings. Admins only.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id primitive.ObjectID, in UpdateInput) (view GroupView, err error) {
	defer func() { s.metrics.FamilyOp("update", err) }()

	var changed []string
	g, err := s.mutate(ctx, "update", id, func(g *models.FamilyGroup) error {
		if err := requireAdmin(g, actor.ID); err != nil {
			return err
		}
		changed = changed[:0]
		name, desc := g.Name, g.Description
		if in.Name != nil {
			name = normalize.Name(*in.Name)
			changed = append(changed, "name")
		}
		if in.Description != nil {
			d, err := groupDescription(*in.Description)
			if err != nil {
				return err
			}
			desc = d
			changed = append(changed, "description")
		}
		if err := validateGroupFields(name, desc); err != nil {
			return err
		}
		if in.Settings != nil {
			g.Settings = g.Settings.Apply(in.Settings)
			changed = append(changed, "settings")
		}
		if len(changed) == 0 {
			return errUnchanged
		}
		g.Name, g.Description = name, desc
		g.UpdatedAt = s.clock()
		return nil
	})
	if err != nil {
		return GroupView{}, err
	}
	if len(changed) > 0 {
		s.audit.FamilyUpdated(ctx, actor.ID, g.ID, strings.Join(changed, ","))
	}
	return s.view(ctx, actor, g)
}

// Invite adds the user with email to the group, or reactivates their old
// entry. Admins may always invite; members only when the group allows it.
func (s *Service) Invite(ctx context.Context, actor authz.Actor, id primitive.ObjectID, email string) (view GroupView, err error) {
	defer func() { s.metrics.FamilyOp("invite", err) }()

	email = normalize.Email(email)
	var target *models.User
	var reactivated bool
	g, err := s.mutate(ctx, "invite", id, func(g *models.FamilyGroup) error {
		if !g.IsActiveMember(actor.ID) {
			return errNotMember
		}
		if !g.IsActiveAdmin(actor.ID) && !g.Settings.AllowMemberInvites {
			return apierr.Forbidden("Only admins can invite members to this family group.")
		}
		if target == nil {
			u, err := s.users.GetByEmail(ctx, email)
			if errors.Is(err, userstore.ErrNotFound) {
				return apierr.NotFound("No user is registered with that email address.")
			}
			if err != nil {
				return apierr.Internal(err, "look up invitee")
			}
			target = u
		}
		_, reactivated = g.Member(target.ID)
		return g.Admit(target.ID, s.clock())
	})
	if err != nil {
		return GroupView{}, err
	}

	s.audit.MemberInvited(ctx, actor.ID, g.ID, target.ID, reactivated)
	if s.notify != nil {
		if nerr := s.notify.NotifyInvite(ctx, *target, actor, g); nerr != nil {
			s.log.Warn("invite notification failed",
				zap.String("family_id", g.ID.Hex()),
				zap.String("user_id", target.ID.Hex()),
				zap.Error(nerr))
		}
	}
	return s.view(ctx, actor, g)
}

// Join adds the actor to the group holding code. The code is the only
// permission needed.
func (s *Service) Join(ctx context.Context, actor authz.Actor, code string) (view GroupView, err error) {
	defer func() { s.metrics.FamilyOp("join", err) }()

	code = invitecode.Normalize(code)
	errBadCode := apierr.NotFound("No family group has that invite code.")
	if !invitecode.Valid(code) {
		return GroupView{}, errBadCode
	}
	found, err := s.groups.GetByInviteCode(ctx, code)
	if errors.Is(err, familystore.ErrNotFound) {
		return GroupView{}, errBadCode
	}
	if err != nil {
		return GroupView{}, apierr.Internal(err, "look up invite code")
	}

	var reactivated bool
	g, err := s.mutate(ctx, "join", found.ID, func(g *models.FamilyGroup) error {
		_, reactivated = g.Member(actor.ID)
		return g.Admit(actor.ID, s.clock())
	})
	if err != nil {
		return GroupView{}, err
	}
	s.audit.MemberJoined(ctx, actor.ID, g.ID, reactivated)
	return s.view(ctx, actor, g)
}

// MemberUpdateInput is a partial roster entry change.
type MemberUpdateInput struct {
	Role     *models.FamilyRole
	IsActive *bool
}

// UpdateMember changes a member's role or activity. Admins only.
func (s *Service) UpdateMember(ctx context.Context, actor authz.Actor, id, memberID primitive.ObjectID, in MemberUpdateInput) (view MemberView, err error) {
	defer func() { s.metrics.FamilyOp("update_member", err) }()

	if in.Role == nil && in.IsActive == nil {
		return MemberView{}, apierr.Validation("Provide role or isActive.")
	}

	g, err := s.mutate(ctx, "update_member", id, func(g *models.FamilyGroup) error {
		if err := requireAdmin(g, actor.ID); err != nil {
			return err
		}
		return g.UpdateMember(memberID, models.MemberUpdate{Role: in.Role, IsActive: in.IsActive}, s.clock())
	})
	if err != nil {
		return MemberView{}, err
	}

	m, _ := g.Member(memberID)
	s.audit.MemberUpdated(ctx, actor.ID, g.ID, memberID, string(m.Role), m.IsActive())
	return s.memberView(ctx, m)
}

// RemoveMember soft-removes a member. Admins may remove anyone; members
// may only remove themselves.
func (s *Service) RemoveMember(ctx context.Context, actor authz.Actor, id, memberID primitive.ObjectID) (view MemberView, err error) {
	defer func() { s.metrics.FamilyOp("remove_member", err) }()

	var removed bool
	g, err := s.mutate(ctx, "remove_member", id, func(g *models.FamilyGroup) error {
		if memberID != actor.ID && !g.IsActiveAdmin(actor.ID) {
			if !g.IsActiveMember(actor.ID) {
				return errNotMember
			}
			return apierr.Forbidden("You can only remove yourself from this family group.")
		}
		m, ok := g.Member(memberID)
		if !ok {
			return models.ErrMemberNotFound
		}
		if !m.IsActive() {
			removed = false
			return errUnchanged
		}
		removed = true
		return g.Deactivate(memberID, models.MemberRemoved, s.clock())
	})
	if err != nil {
		return MemberView{}, err
	}

	if removed {
		s.audit.MemberRemoved(ctx, actor.ID, g.ID, memberID)
	}
	m, _ := g.Member(memberID)
	return s.memberView(ctx, m)
}

// Leave deactivates the actor's own membership.
func (s *Service) Leave(ctx context.Context, actor authz.Actor, id primitive.ObjectID) (view MemberView, err error) {
	defer func() { s.metrics.FamilyOp("leave", err) }()

	g, err := s.mutate(ctx, "leave", id, func(g *models.FamilyGroup) error {
		if !g.IsActiveMember(actor.ID) {
			return apierr.NotFound("You are not an active member of this family group.")
		}
		return g.Deactivate(actor.ID, models.MemberLeft, s.clock())
	})
	if err != nil {
		return MemberView{}, err
	}

	s.audit.MemberLeft(ctx, actor.ID, g.ID)
	m, _ := g.Member(actor.ID)
	return s.memberView(ctx, m)
}

/*─────────────────────────────── sharing ───────────────────────────────*/

// SharedGroupIDs returns the groups where userID is an active member and
// whose settings share area.
func (s *Service) SharedGroupIDs(ctx context.Context, userID primitive.ObjectID, area models.SharingArea) ([]primitive.ObjectID, error) {
	groups, err := s.groups.ListForMember(ctx, userID)
	if err != nil {
		return nil, apierr.Internal(err, "list family groups")
	}
	var ids []primitive.ObjectID
	for _, g := range groups {
		if g.Settings.Shares(area) {
			ids = append(ids, g.ID)
		}
	}
	return ids, nil
}

// RequireSharing checks userID may read and write area data of familyID.
func (s *Service) RequireSharing(ctx context.Context, userID, familyID primitive.ObjectID, area models.SharingArea) error {
	g, err := s.load(ctx, familyID)
	if err != nil {
		return err
	}
	if !g.IsActiveMember(userID) {
		return errNotMember
	}
	if !g.Settings.Shares(area) {
		return apierr.Forbidden("This family group does not share %s.", strings.ReplaceAll(string(area), "_", " "))
	}
	return nil
}

// IsFamilyAdmin reports whether userID is an active admin of familyID.
// An unknown group yields false.
func (s *Service) IsFamilyAdmin(ctx context.Context, userID, familyID primitive.ObjectID) (bool, error) {
	g, err := s.groups.GetByID(ctx, familyID)
	if errors.Is(err, familystore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apierr.Internal(err, "load family group")
	}
	return g.IsActiveAdmin(userID), nil
}
