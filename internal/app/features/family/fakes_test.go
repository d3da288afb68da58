package family

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/recipehub/internal/app/store/audit"
	familystore "github.com/dalemusser/recipehub/internal/app/store/families"
	userstore "github.com/dalemusser/recipehub/internal/app/store/users"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memGroups is an in-memory GroupRepository with the same version
// semantics as the Mongo store.
type memGroups struct {
	mu     sync.Mutex
	groups map[primitive.ObjectID]models.FamilyGroup

	// conflicts makes the next N saves lose a race: the stored version is
	// bumped first, as if another writer got there.
	conflicts int
	// racer, if set, is applied to the stored copy on each forced conflict.
	racer func(g *models.FamilyGroup)

	saves     int
	createErr []error
}

func newMemGroups() *memGroups {
	return &memGroups{groups: map[primitive.ObjectID]models.FamilyGroup{}}
}

func clone(g models.FamilyGroup) models.FamilyGroup {
	g.Members = append([]models.FamilyMember(nil), g.Members...)
	return g
}

func (m *memGroups) Create(_ context.Context, g models.FamilyGroup) (models.FamilyGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createErr) > 0 {
		err := m.createErr[0]
		m.createErr = m.createErr[1:]
		if err != nil {
			return models.FamilyGroup{}, err
		}
	}
	for _, other := range m.groups {
		if other.InviteCode == g.InviteCode {
			return models.FamilyGroup{}, familystore.ErrDuplicateInviteCode
		}
		if other.AdminID == g.AdminID {
			return models.FamilyGroup{}, familystore.ErrAdminHasGroup
		}
	}
	g.NameCI = strings.ToLower(g.Name)
	g.Version = 0
	m.groups[g.ID] = clone(g)
	return g, nil
}

func (m *memGroups) GetByID(_ context.Context, id primitive.ObjectID) (models.FamilyGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return models.FamilyGroup{}, familystore.ErrNotFound
	}
	return clone(g), nil
}

func (m *memGroups) GetByInviteCode(_ context.Context, code string) (models.FamilyGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.groups {
		if g.InviteCode == code {
			return clone(g), nil
		}
	}
	return models.FamilyGroup{}, familystore.ErrNotFound
}

func (m *memGroups) ExistsForAdmin(_ context.Context, userID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.groups {
		if g.AdminID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memGroups) ListForMember(_ context.Context, userID primitive.ObjectID) ([]models.FamilyGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.FamilyGroup{}
	for _, g := range m.groups {
		if g.IsActiveMember(userID) {
			out = append(out, clone(g))
		}
	}
	return out, nil
}

func (m *memGroups) Save(_ context.Context, g *models.FamilyGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	stored, ok := m.groups[g.ID]
	if !ok {
		return familystore.ErrNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		if m.racer != nil {
			m.racer(&stored)
		}
		stored.Version++
		m.groups[g.ID] = stored
		return familystore.ErrVersionConflict
	}
	if stored.Version != g.Version {
		return familystore.ErrVersionConflict
	}
	g.Version++
	m.groups[g.ID] = clone(*g)
	return nil
}

func (m *memGroups) stored(id primitive.ObjectID) models.FamilyGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.groups[id])
}

// memUsers is an in-memory UserDirectory.
type memUsers struct {
	byID map[primitive.ObjectID]models.User
	err  error
}

func newMemUsers(users ...models.User) *memUsers {
	d := &memUsers{byID: map[primitive.ObjectID]models.User{}}
	for _, u := range users {
		d.byID[u.ID] = u
	}
	return d
}

func (d *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	for _, u := range d.byID {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			u := u
			return &u, nil
		}
	}
	return nil, userstore.ErrNotFound
}

func (d *memUsers) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	var out []models.User
	for _, id := range ids {
		if u, ok := d.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// seqCodes hands out codes from a fixed list.
type seqCodes struct {
	codes []string
	err   error
}

func (c *seqCodes) Generate(context.Context) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if len(c.codes) == 0 {
		return "", errors.New("out of codes")
	}
	code := c.codes[0]
	c.codes = c.codes[1:]
	return code, nil
}

type sentInvite struct {
	to     string
	family string
}

type recordingNotifier struct {
	sent []sentInvite
	err  error
}

func (n *recordingNotifier) NotifyInvite(_ context.Context, invitee models.User, _ authz.Actor, g models.FamilyGroup) error {
	n.sent = append(n.sent, sentInvite{to: invitee.Email, family: g.Name})
	return n.err
}

type memActivity struct {
	events []audit.Event
	limit  int64
}

func (a *memActivity) GetByFamily(_ context.Context, familyID primitive.ObjectID, limit int64) ([]audit.Event, error) {
	a.limit = limit
	var out []audit.Event
	for _, e := range a.events {
		if e.FamilyID != nil && *e.FamilyID == familyID {
			out = append(out, e)
		}
	}
	return out, nil
}

/*─────────────────────────────── harness ───────────────────────────────*/

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	svc    *Service
	groups *memGroups
	users  *memUsers
	codes  *seqCodes
	notify *recordingNotifier
	clock  time.Time

	alice, bob, carol, dave models.User
}

func user(name, email string) models.User {
	return models.User{ID: primitive.NewObjectID(), FullName: name, Email: email, Status: models.UserStatusActive}
}

func actorOf(u models.User) authz.Actor {
	return authz.Actor{ID: u.ID, Email: u.Email, Name: u.FullName}
}

func newHarness() *harness {
	h := &harness{
		groups: newMemGroups(),
		codes:  &seqCodes{codes: []string{"K3J9QZ7M", "AAAA1111", "BBBB2222", "CCCC3333"}},
		notify: &recordingNotifier{},
		clock:  testNow,
		alice:  user("Alice Smith", "alice@example.com"),
		bob:    user("Bob Smith", "bob@example.com"),
		carol:  user("Carol Jones", "carol@example.com"),
		dave:   user("Dave Brown", "dave@example.com"),
	}
	h.users = newMemUsers(h.alice, h.bob, h.carol, h.dave)
	h.svc = NewService(h.groups, h.users, h.codes, Options{
		Notifier: h.notify,
		Now:      func() time.Time { return h.clock },
	})
	return h
}

func (h *harness) tick(d time.Duration) { h.clock = h.clock.Add(d) }
