package family

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/recipehub/internal/app/store/audit"
	familystore "github.com/dalemusser/recipehub/internal/app/store/families"
	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func requireKind(t *testing.T, err error, want apierr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, apierr.KindOf(err), "error: %v", err)
}

func ptr[T any](v T) *T { return &v }

func adminRole() *models.FamilyRole  { return ptr(models.FamilyRoleAdmin) }
func memberRole() *models.FamilyRole { return ptr(models.FamilyRoleMember) }

func memberOf(t *testing.T, v GroupView, id primitive.ObjectID) MemberView {
	t.Helper()
	for _, m := range v.Members {
		if m.UserID == id {
			return m
		}
	}
	t.Fatalf("user %s not in roster", id.Hex())
	return MemberView{}
}

func assertOneActiveAdmin(t *testing.T, g models.FamilyGroup) {
	t.Helper()
	assert.GreaterOrEqual(t, g.ActiveAdminCount(), 1, "group %s has no active admin", g.Name)
}

// smithFamily creates "Smith Family" as alice and invites bob.
func (h *harness) smithFamily(t *testing.T) GroupView {
	t.Helper()
	ctx := context.Background()
	g, err := h.svc.Create(ctx, actorOf(h.alice), CreateInput{Name: "Smith Family"})
	require.NoError(t, err)
	g, err = h.svc.Invite(ctx, actorOf(h.alice), g.ID, h.bob.Email)
	require.NoError(t, err)
	return g
}

func TestCreate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	g, err := h.svc.Create(ctx, actorOf(h.alice), CreateInput{
		Name:        "  Smith   Family ",
		Description: "  Pasta & pizza night, \"Mom's\" <3 recipes ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Smith Family", g.Name)
	assert.Equal(t, `Pasta & pizza night, "Mom's" <3 recipes`, g.Description)
	assert.Equal(t, g.Description, h.groups.stored(g.ID).Description)
	assert.Equal(t, h.alice.ID, g.AdminID)
	assert.Equal(t, "K3J9QZ7M", g.InviteCode)
	assert.Equal(t, models.DefaultFamilySettings(), g.Settings)
	assert.Equal(t, 1, g.MemberCount)
	assert.True(t, g.IsAdmin)
	assert.Equal(t, models.FamilyRoleAdmin, g.UserRole)

	require.Len(t, g.Members, 1)
	m := g.Members[0]
	assert.Equal(t, h.alice.ID, m.UserID)
	assert.Equal(t, "Alice Smith", m.Name)
	assert.Equal(t, models.FamilyRoleAdmin, m.Role)
	assert.True(t, m.IsActive)
	assert.Equal(t, testNow, m.JoinedAt)
}

func TestCreate_SettingsOverlay(t *testing.T) {
	h := newHarness()

	g, err := h.svc.Create(context.Background(), actorOf(h.alice), CreateInput{
		Name:     "Smiths",
		Settings: &models.FamilySettingsPatch{SharedPantry: ptr(false), AllowMemberInvites: ptr(false)},
	})
	require.NoError(t, err)

	want := models.DefaultFamilySettings()
	want.SharedPantry = false
	want.AllowMemberInvites = false
	assert.Equal(t, want, g.Settings)
}

func TestCreate_SecondGroupConflicts(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.svc.Create(ctx, actorOf(h.alice), CreateInput{Name: "First"})
	require.NoError(t, err)

	_, err = h.svc.Create(ctx, actorOf(h.alice), CreateInput{Name: "Second"})
	requireKind(t, err, apierr.KindConflict)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   CreateInput
	}{
		{"blank name", CreateInput{Name: "   "}},
		{"name too long", CreateInput{Name: strings.Repeat("a", 51)}},
		{"description too long", CreateInput{Name: "Smiths", Description: strings.Repeat("d", 201)}},
		{"description of ampersands too long", CreateInput{Name: "Smiths", Description: strings.Repeat("&", 201)}},
		{"description with markup", CreateInput{Name: "Smiths", Description: "Weeknight <b>dinners</b>"}},
		{"description with script", CreateInput{Name: "Smiths", Description: "<script>alert(1)</script>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			_, err := h.svc.Create(context.Background(), actorOf(h.alice), tt.in)
			requireKind(t, err, apierr.KindValidation)
		})
	}
}

func TestCreate_NameAtLimits(t *testing.T) {
	h := newHarness()
	g, err := h.svc.Create(context.Background(), actorOf(h.alice), CreateInput{
		Name:        strings.Repeat("a", 50),
		Description: strings.Repeat("d", 200),
	})
	require.NoError(t, err)
	assert.Len(t, g.Name, 50)
}

func TestCreate_DescriptionStoredAsSubmitted(t *testing.T) {
	h := newHarness()
	desc := strings.Repeat("&", 200)
	g, err := h.svc.Create(context.Background(), actorOf(h.alice), CreateInput{Name: "Smiths", Description: desc})
	require.NoError(t, err)

	stored := h.groups.stored(g.ID).Description
	assert.Equal(t, desc, stored)
	assert.LessOrEqual(t, len([]rune(stored)), 200)
}

func TestCreate_RetriesDuplicateInviteCode(t *testing.T) {
	h := newHarness()
	h.groups.createErr = []error{familystore.ErrDuplicateInviteCode}

	g, err := h.svc.Create(context.Background(), actorOf(h.alice), CreateInput{Name: "Smiths"})
	require.NoError(t, err)
	assert.Equal(t, "AAAA1111", g.InviteCode, "second generated code should be used")
}

func TestCreate_GiveUpAfterRepeatedCollisions(t *testing.T) {
	h := newHarness()
	h.groups.createErr = []error{
		familystore.ErrDuplicateInviteCode,
		familystore.ErrDuplicateInviteCode,
		familystore.ErrDuplicateInviteCode,
	}

	_, err := h.svc.Create(context.Background(), actorOf(h.alice), CreateInput{Name: "Smiths"})
	requireKind(t, err, apierr.KindInternal)
}

func TestCreate_GeneratorExhausted(t *testing.T) {
	h := newHarness()
	h.codes.err = errors.New("exhausted")

	_, err := h.svc.Create(context.Background(), actorOf(h.alice), CreateInput{Name: "Smiths"})
	requireKind(t, err, apierr.KindInternal)
}

func TestCreate_AdminIndexRace(t *testing.T) {
	h := newHarness()
	h.groups.createErr = []error{familystore.ErrAdminHasGroup}

	_, err := h.svc.Create(context.Background(), actorOf(h.alice), CreateInput{Name: "Smiths"})
	requireKind(t, err, apierr.KindConflict)
}

func TestSoleAdminScenario(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	alice := actorOf(h.alice)

	g := h.smithFamily(t)
	assert.Equal(t, 2, g.MemberCount)
	b := memberOf(t, g, h.bob.ID)
	assert.Equal(t, models.FamilyRoleMember, b.Role)
	assert.True(t, b.IsActive)

	// Alice cannot demote herself while she is the only admin.
	_, err := h.svc.UpdateMember(ctx, alice, g.ID, h.alice.ID, MemberUpdateInput{Role: memberRole()})
	requireKind(t, err, apierr.KindValidation)

	_, err = h.svc.UpdateMember(ctx, alice, g.ID, h.bob.ID, MemberUpdateInput{Role: adminRole()})
	require.NoError(t, err)

	m, err := h.svc.UpdateMember(ctx, alice, g.ID, h.alice.ID, MemberUpdateInput{Role: memberRole()})
	require.NoError(t, err)
	assert.Equal(t, models.FamilyRoleMember, m.Role)
	assert.True(t, m.IsActive)

	stored := h.groups.stored(g.ID)
	assert.Equal(t, 1, stored.ActiveAdminCount())
	assert.True(t, stored.IsActiveAdmin(h.bob.ID))
	assert.Equal(t, h.alice.ID, stored.AdminID, "adminId keeps the creator")
}

func TestJoin_CaseInsensitiveCode(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g := h.smithFamily(t)
	require.Equal(t, "K3J9QZ7M", g.InviteCode)

	v, err := h.svc.Join(ctx, actorOf(h.carol), " k3j9qz7m ")
	require.NoError(t, err)
	assert.Equal(t, 3, v.MemberCount)
	c := memberOf(t, v, h.carol.ID)
	assert.Equal(t, models.FamilyRoleMember, c.Role)
	assert.True(t, c.IsActive)
	assert.False(t, v.IsAdmin)
	assert.Equal(t, models.FamilyRoleMember, v.UserRole)

	_, err = h.svc.Join(ctx, actorOf(h.carol), "K3J9QZ7M")
	requireKind(t, err, apierr.KindConflict)
}

func TestJoin_UnknownCode(t *testing.T) {
	h := newHarness()
	h.smithFamily(t)

	for _, code := range []string{"ZZZZ9999", "short", ""} {
		_, err := h.svc.Join(context.Background(), actorOf(h.carol), code)
		requireKind(t, err, apierr.KindNotFound)
	}
}

func TestJoin_AfterLeavingReactivates(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g := h.smithFamily(t)

	_, err := h.svc.Join(ctx, actorOf(h.carol), g.InviteCode)
	require.NoError(t, err)
	_, err = h.svc.Leave(ctx, actorOf(h.carol), g.ID)
	require.NoError(t, err)

	h.tick(time.Hour)
	v, err := h.svc.Join(ctx, actorOf(h.carol), g.InviteCode)
	require.NoError(t, err)

	assert.Len(t, v.Members, 3, "roster must not grow on rejoin")
	c := memberOf(t, v, h.carol.ID)
	assert.True(t, c.IsActive)
	assert.Equal(t, testNow.Add(time.Hour), c.JoinedAt)
}

func TestInvite_LeftMemberIsReactivated(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g := h.smithFamily(t)

	left, err := h.svc.Leave(ctx, actorOf(h.bob), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemberLeft, left.Status)
	assert.False(t, left.IsActive)

	h.tick(24 * time.Hour)
	v, err := h.svc.Invite(ctx, actorOf(h.alice), g.ID, "BOB@example.com")
	require.NoError(t, err)

	assert.Len(t, v.Members, 2)
	b := memberOf(t, v, h.bob.ID)
	assert.True(t, b.IsActive)
	assert.Equal(t, models.MemberActive, b.Status)
	assert.Equal(t, testNow.Add(24*time.Hour), b.JoinedAt)
}

func TestInvite_ReactivatedAdminComesBackAsMember(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	alice := actorOf(h.alice)
	g := h.smithFamily(t)

	_, err := h.svc.UpdateMember(ctx, alice, g.ID, h.bob.ID, MemberUpdateInput{Role: adminRole()})
	require.NoError(t, err)
	_, err = h.svc.Leave(ctx, actorOf(h.bob), g.ID)
	require.NoError(t, err)

	v, err := h.svc.Invite(ctx, alice, g.ID, h.bob.Email)
	require.NoError(t, err)
	assert.Equal(t, models.FamilyRoleMember, memberOf(t, v, h.bob.ID).Role)
}

func TestInvite_Failures(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g := h.smithFamily(t)

	t.Run("unknown email", func(t *testing.T) {
		_, err := h.svc.Invite(ctx, actorOf(h.alice), g.ID, "nobody@example.com")
		requireKind(t, err, apierr.KindNotFound)
	})
	t.Run("already active", func(t *testing.T) {
		_, err := h.svc.Invite(ctx, actorOf(h.alice), g.ID, h.bob.Email)
		requireKind(t, err, apierr.KindConflict)
	})
	t.Run("actor not a member", func(t *testing.T) {
		_, err := h.svc.Invite(ctx, actorOf(h.carol), g.ID, h.dave.Email)
		requireKind(t, err, apierr.KindForbidden)
	})
	t.Run("unknown group", func(t *testing.T) {
		_, err := h.svc.Invite(ctx, actorOf(h.alice), primitive.NewObjectID(), h.dave.Email)
		requireKind(t, err, apierr.KindNotFound)
	})
}

func TestInvite_MemberInvitesFollowSetting(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g := h.smithFamily(t)

	// Default allows member invites.
	v, err := h.svc.Invite(ctx, actorOf(h.bob), g.ID, h.carol.Email)
	require.NoError(t, err)
	assert.Equal(t, 3, v.MemberCount)

	_, err = h.svc.Update(ctx, actorOf(h.alice), g.ID, UpdateInput{
		Settings: &models.FamilySettingsPatch{AllowMemberInvites: ptr(false)},
	})
	require.NoError(t, err)

	_, err = h.svc.Invite(ctx, actorOf(h.bob), g.ID, h.dave.Email)
	requireKind(t, err, apierr.KindForbidden)

	// Admins are not bound by the setting.
	_, err = h.svc.Invite(ctx, actorOf(h.alice), g.ID, h.dave.Email)
	require.NoError(t, err)
}

func TestInvite_Notifies(t *testing.T) {
	h := newHarness()
	h.smithFamily(t)

	require.Len(t, h.notify.sent, 1)
	assert.Equal(t, sentInvite{to: "bob@example.com", family: "Smith Family"}, h.notify.sent[0])
}

func TestInvite_NotificationFailureDoesNotFail(t *testing.T) {
	h := newHarness()
	h.notify.err = errors.New("ses throttled")

	g := h.smithFamily(t)
	assert.Equal(t, 2, g.MemberCount)
}

func TestUpdateMember(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	alice := actorOf(h.alice)
	g := h.smithFamily(t)

	t.Run("non-admin is forbidden", func(t *testing.T) {
		_, err := h.svc.UpdateMember(ctx, actorOf(h.bob), g.ID, h.alice.ID, MemberUpdateInput{Role: memberRole()})
		requireKind(t, err, apierr.KindForbidden)
	})
	t.Run("outsider is forbidden", func(t *testing.T) {
		_, err := h.svc.UpdateMember(ctx, actorOf(h.carol), g.ID, h.bob.ID, MemberUpdateInput{Role: adminRole()})
		requireKind(t, err, apierr.KindForbidden)
	})
	t.Run("unknown target", func(t *testing.T) {
		_, err := h.svc.UpdateMember(ctx, alice, g.ID, h.carol.ID, MemberUpdateInput{Role: adminRole()})
		requireKind(t, err, apierr.KindNotFound)
	})
	t.Run("no fields", func(t *testing.T) {
		_, err := h.svc.UpdateMember(ctx, alice, g.ID, h.bob.ID, MemberUpdateInput{})
		requireKind(t, err, apierr.KindValidation)
	})
	t.Run("bad role", func(t *testing.T) {
		_, err := h.svc.UpdateMember(ctx, alice, g.ID, h.bob.ID, MemberUpdateInput{Role: ptr(models.FamilyRole("owner"))})
		requireKind(t, err, apierr.KindValidation)
	})
	t.Run("deactivate sole admin", func(t *testing.T) {
		_, err := h.svc.UpdateMember(ctx, alice, g.ID, h.alice.ID, MemberUpdateInput{IsActive: ptr(false)})
		requireKind(t, err, apierr.KindValidation)
	})
	t.Run("deactivate and reactivate member", func(t *testing.T) {
		m, err := h.svc.UpdateMember(ctx, alice, g.ID, h.bob.ID, MemberUpdateInput{IsActive: ptr(false)})
		require.NoError(t, err)
		assert.False(t, m.IsActive)

		h.tick(time.Minute)
		m, err = h.svc.UpdateMember(ctx, alice, g.ID, h.bob.ID, MemberUpdateInput{IsActive: ptr(true)})
		require.NoError(t, err)
		assert.True(t, m.IsActive)
		assert.Equal(t, h.clock, m.JoinedAt)
		assert.Equal(t, "Bob Smith", m.Name)
	})
}

func TestPermissions_PromotedAdminHasFullPowers(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	alice, bob := actorOf(h.alice), actorOf(h.bob)
	g := h.smithFamily(t)

	_, err := h.svc.Invite(ctx, alice, g.ID, h.carol.Email)
	require.NoError(t, err)
	_, err = h.svc.UpdateMember(ctx, alice, g.ID, h.bob.ID, MemberUpdateInput{Role: adminRole()})
	require.NoError(t, err)

	// Bob is not the creator but holds the admin role.
	_, err = h.svc.Update(ctx, bob, g.ID, UpdateInput{Name: ptr("The Smiths")})
	require.NoError(t, err)
	_, err = h.svc.UpdateMember(ctx, bob, g.ID, h.carol.ID, MemberUpdateInput{Role: adminRole()})
	require.NoError(t, err)
	_, err = h.svc.RemoveMember(ctx, bob, g.ID, h.carol.ID)
	require.NoError(t, err)

	v, err := h.svc.Get(ctx, bob, g.ID)
	require.NoError(t, err)
	assert.True(t, v.IsAdmin)
	assert.Equal(t, h.alice.ID, v.AdminID)
}

func TestPermissions_DemotedCreatorLosesAdminPowers(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	alice, bob := actorOf(h.alice), actorOf(h.bob)
	g := h.smithFamily(t)

	_, err := h.svc.UpdateMember(ctx, alice, g.ID, h.bob.ID, MemberUpdateInput{Role: adminRole()})
	require.NoError(t, err)
	_, err = h.svc.UpdateMember(ctx, bob, g.ID, h.alice.ID, MemberUpdateInput{Role: memberRole()})
	require.NoError(t, err)

	// Alice still holds adminId but no longer the admin role.
	_, err = h.svc.UpdateMember(ctx, alice, g.ID, h.bob.ID, MemberUpdateInput{Role: memberRole()})
	requireKind(t, err, apierr.KindForbidden)
	_, err = h.svc.Update(ctx, alice, g.ID, UpdateInput{Name: ptr("Alice's")})
	requireKind(t, err, apierr.KindForbidden)
	_, err = h.svc.RemoveMember(ctx, alice, g.ID, h.bob.ID)
	requireKind(t, err, apierr.KindForbidden)

	v, err := h.svc.Get(ctx, alice, g.ID)
	require.NoError(t, err)
	assert.False(t, v.IsAdmin)
	assert.Equal(t, h.alice.ID, v.AdminID)
}

func TestRemoveMember(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	alice := actorOf(h.alice)
	g := h.smithFamily(t)
	_, err := h.svc.Invite(ctx, alice, g.ID, h.carol.Email)
	require.NoError(t, err)

	t.Run("member cannot remove another member", func(t *testing.T) {
		_, err := h.svc.RemoveMember(ctx, actorOf(h.bob), g.ID, h.carol.ID)
		requireKind(t, err, apierr.KindForbidden)
	})
	t.Run("member cannot remove the admin", func(t *testing.T) {
		_, err := h.svc.RemoveMember(ctx, actorOf(h.bob), g.ID, h.alice.ID)
		requireKind(t, err, apierr.KindForbidden)
	})
	t.Run("sole admin cannot remove self", func(t *testing.T) {
		_, err := h.svc.RemoveMember(ctx, alice, g.ID, h.alice.ID)
		requireKind(t, err, apierr.KindValidation)
	})
	t.Run("unknown member", func(t *testing.T) {
		_, err := h.svc.RemoveMember(ctx, alice, g.ID, h.dave.ID)
		requireKind(t, err, apierr.KindNotFound)
	})
	t.Run("member removes self", func(t *testing.T) {
		m, err := h.svc.RemoveMember(ctx, actorOf(h.carol), g.ID, h.carol.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MemberRemoved, m.Status)
	})
	t.Run("admin removes member", func(t *testing.T) {
		m, err := h.svc.RemoveMember(ctx, alice, g.ID, h.bob.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MemberRemoved, m.Status)
		assert.False(t, m.IsActive)
		assert.Equal(t, models.FamilyRoleMember, m.Role, "role is kept")
	})
	t.Run("removing again is a no-op", func(t *testing.T) {
		before := h.groups.stored(g.ID).Version
		m, err := h.svc.RemoveMember(ctx, alice, g.ID, h.bob.ID)
		require.NoError(t, err)
		assert.False(t, m.IsActive)
		assert.Equal(t, before, h.groups.stored(g.ID).Version)
	})

	stored := h.groups.stored(g.ID)
	assert.Len(t, stored.Members, 3, "entries are never deleted")
	assert.Equal(t, 1, stored.ActiveMemberCount())
}

func TestLeave(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g := h.smithFamily(t)

	_, err := h.svc.Leave(ctx, actorOf(h.carol), g.ID)
	requireKind(t, err, apierr.KindNotFound)

	_, err = h.svc.Leave(ctx, actorOf(h.alice), g.ID)
	requireKind(t, err, apierr.KindValidation)

	m, err := h.svc.Leave(ctx, actorOf(h.bob), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemberLeft, m.Status)

	_, err = h.svc.Leave(ctx, actorOf(h.bob), g.ID)
	requireKind(t, err, apierr.KindNotFound)

	_, err = h.svc.Leave(ctx, actorOf(h.bob), primitive.NewObjectID())
	requireKind(t, err, apierr.KindNotFound)
}

func TestGet(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g := h.smithFamily(t)

	v, err := h.svc.Get(ctx, actorOf(h.bob), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FamilyRoleMember, v.UserRole)
	assert.Equal(t, "bob@example.com", memberOf(t, v, h.bob.ID).Email)

	_, err = h.svc.Get(ctx, actorOf(h.carol), g.ID)
	requireKind(t, err, apierr.KindForbidden)

	_, err = h.svc.Get(ctx, actorOf(h.alice), primitive.NewObjectID())
	requireKind(t, err, apierr.KindNotFound)

	// A member who left loses access.
	_, err = h.svc.Leave(ctx, actorOf(h.bob), g.ID)
	require.NoError(t, err)
	_, err = h.svc.Get(ctx, actorOf(h.bob), g.ID)
	requireKind(t, err, apierr.KindForbidden)
}

func TestListMine(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g := h.smithFamily(t)

	_, err := h.svc.Create(ctx, actorOf(h.carol), CreateInput{Name: "Jones"})
	require.NoError(t, err)

	views, err := h.svc.ListMine(ctx, actorOf(h.bob))
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, g.ID, views[0].ID)
	assert.Equal(t, 2, views[0].MemberCount)
	assert.False(t, views[0].IsAdmin)

	views, err = h.svc.ListMine(ctx, actorOf(h.dave))
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestUpdate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	alice := actorOf(h.alice)
	g := h.smithFamily(t)

	h.tick(time.Minute)
	v, err := h.svc.Update(ctx, alice, g.ID, UpdateInput{
		Name:        ptr("The Smiths"),
		Description: ptr("Sunday roasts"),
		Settings:    &models.FamilySettingsPatch{SharedShoppingLists: ptr(false)},
	})
	require.NoError(t, err)
	assert.Equal(t, "The Smiths", v.Name)
	assert.Equal(t, "Sunday roasts", v.Description)
	assert.False(t, v.Settings.SharedShoppingLists)
	assert.True(t, v.Settings.SharedPantry, "unspecified settings are kept")
	assert.Equal(t, h.clock, v.UpdatedAt)
	assert.Equal(t, g.InviteCode, v.InviteCode)

	_, err = h.svc.Update(ctx, actorOf(h.bob), g.ID, UpdateInput{Name: ptr("Bob's")})
	requireKind(t, err, apierr.KindForbidden)

	_, err = h.svc.Update(ctx, alice, g.ID, UpdateInput{Name: ptr(" ")})
	requireKind(t, err, apierr.KindValidation)

	_, err = h.svc.Update(ctx, alice, g.ID, UpdateInput{Description: ptr("<p>Roasts</p>")})
	requireKind(t, err, apierr.KindValidation)

	_, err = h.svc.Update(ctx, alice, g.ID, UpdateInput{Description: ptr(strings.Repeat("<3", 101))})
	requireKind(t, err, apierr.KindValidation)

	v, err = h.svc.Update(ctx, alice, g.ID, UpdateInput{Description: ptr("Fish & chips <3")})
	require.NoError(t, err)
	assert.Equal(t, "Fish & chips <3", v.Description)
	assert.Equal(t, "Fish & chips <3", h.groups.stored(g.ID).Description)

	_, err = h.svc.Update(ctx, alice, primitive.NewObjectID(), UpdateInput{Name: ptr("x")})
	requireKind(t, err, apierr.KindNotFound)

	saves := h.groups.saves
	_, err = h.svc.Update(ctx, alice, g.ID, UpdateInput{})
	require.NoError(t, err)
	assert.Equal(t, saves, h.groups.saves, "empty update does not write")
}

func TestMutate_RetriesVersionConflicts(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g, err := h.svc.Create(ctx, actorOf(h.alice), CreateInput{Name: "Smiths"})
	require.NoError(t, err)

	// A concurrent join lands between our read and our write.
	h.groups.conflicts = 2
	h.groups.racer = func(stored *models.FamilyGroup) {
		_ = stored.Admit(h.carol.ID, testNow)
	}
	h.groups.saves = 0

	v, err := h.svc.Invite(ctx, actorOf(h.alice), g.ID, h.bob.Email)
	require.NoError(t, err)
	assert.Equal(t, 3, h.groups.saves)
	assert.Equal(t, 3, v.MemberCount, "the concurrent join must not be lost")

	stored := h.groups.stored(g.ID)
	assert.True(t, stored.IsActiveMember(h.carol.ID))
	assert.True(t, stored.IsActiveMember(h.bob.ID))
}

func TestMutate_ReappliesRulesAfterConflict(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	alice := actorOf(h.alice)
	g := h.smithFamily(t)
	_, err := h.svc.UpdateMember(ctx, alice, g.ID, h.bob.ID, MemberUpdateInput{Role: adminRole()})
	require.NoError(t, err)

	// While alice demotes herself, bob is concurrently demoted elsewhere.
	// On retry the roster no longer has a second admin, so the demotion
	// must be refused.
	h.groups.conflicts = 1
	h.groups.racer = func(stored *models.FamilyGroup) {
		for i := range stored.Members {
			if stored.Members[i].UserID == h.bob.ID {
				stored.Members[i].Role = models.FamilyRoleMember
			}
		}
	}

	_, err = h.svc.UpdateMember(ctx, alice, g.ID, h.alice.ID, MemberUpdateInput{Role: memberRole()})
	requireKind(t, err, apierr.KindValidation)
	assertOneActiveAdmin(t, h.groups.stored(g.ID))
}

func TestMutate_GivesUpAfterMaxRetries(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g, err := h.svc.Create(ctx, actorOf(h.alice), CreateInput{Name: "Smiths"})
	require.NoError(t, err)

	h.groups.conflicts = 100
	h.groups.saves = 0

	_, err = h.svc.Invite(ctx, actorOf(h.alice), g.ID, h.bob.Email)
	requireKind(t, err, apierr.KindConflict)
	assert.Equal(t, DefaultMaxRetries+1, h.groups.saves)
}

func TestSoleAdminInvariantHolds(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g := h.smithFamily(t)
	_, err := h.svc.Invite(ctx, actorOf(h.alice), g.ID, h.carol.Email)
	require.NoError(t, err)

	people := []models.User{h.alice, h.bob, h.carol}
	// Every actor tries every destructive action on every target.
	for _, a := range people {
		for _, target := range people {
			actor := actorOf(a)
			_, _ = h.svc.UpdateMember(ctx, actor, g.ID, target.ID, MemberUpdateInput{Role: memberRole()})
			assertOneActiveAdmin(t, h.groups.stored(g.ID))
			_, _ = h.svc.UpdateMember(ctx, actor, g.ID, target.ID, MemberUpdateInput{IsActive: ptr(false)})
			assertOneActiveAdmin(t, h.groups.stored(g.ID))
			_, _ = h.svc.RemoveMember(ctx, actor, g.ID, target.ID)
			assertOneActiveAdmin(t, h.groups.stored(g.ID))
			_, _ = h.svc.Leave(ctx, actor, g.ID)
			assertOneActiveAdmin(t, h.groups.stored(g.ID))
		}
	}
}

func TestSharing(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g := h.smithFamily(t)
	_, err := h.svc.Update(ctx, actorOf(h.alice), g.ID, UpdateInput{
		Settings: &models.FamilySettingsPatch{SharedPantry: ptr(false)},
	})
	require.NoError(t, err)

	ids, err := h.svc.SharedGroupIDs(ctx, h.bob.ID, models.ShareRecipes)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{g.ID}, ids)

	ids, err = h.svc.SharedGroupIDs(ctx, h.bob.ID, models.SharePantry)
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.NoError(t, h.svc.RequireSharing(ctx, h.bob.ID, g.ID, models.ShareShoppingLists))
	requireKind(t, h.svc.RequireSharing(ctx, h.bob.ID, g.ID, models.SharePantry), apierr.KindForbidden)
	requireKind(t, h.svc.RequireSharing(ctx, h.carol.ID, g.ID, models.ShareRecipes), apierr.KindForbidden)
	requireKind(t, h.svc.RequireSharing(ctx, h.bob.ID, primitive.NewObjectID(), models.ShareRecipes), apierr.KindNotFound)

	ok, err := h.svc.IsFamilyAdmin(ctx, h.alice.ID, g.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.svc.IsFamilyAdmin(ctx, h.bob.ID, g.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = h.svc.IsFamilyAdmin(ctx, h.alice.ID, primitive.NewObjectID())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestActivity(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g := h.smithFamily(t)

	other := primitive.NewObjectID()
	act := &memActivity{events: []audit.Event{
		{FamilyID: &g.ID, EventType: audit.EventMemberInvited, ActorID: &h.alice.ID, UserID: &h.bob.ID, Timestamp: testNow},
		{FamilyID: &other, EventType: audit.EventFamilyCreated},
	}}
	h.svc.activity = act

	events, err := h.svc.Activity(ctx, actorOf(h.bob), g.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventMemberInvited, events[0].EventType)
	assert.Equal(t, int64(DefaultActivityLimit), act.limit)

	_, err = h.svc.Activity(ctx, actorOf(h.bob), g.ID, 10_000)
	require.NoError(t, err)
	assert.Equal(t, int64(MaxActivityLimit), act.limit)

	_, err = h.svc.Activity(ctx, actorOf(h.carol), g.ID, 0)
	requireKind(t, err, apierr.KindForbidden)
}

func TestViews_DirectoryFailureIsInternal(t *testing.T) {
	h := newHarness()
	h.users.err = errors.New("mongo down")

	_, err := h.svc.Create(context.Background(), actorOf(h.alice), CreateInput{Name: "Smiths"})
	requireKind(t, err, apierr.KindInternal)
}
