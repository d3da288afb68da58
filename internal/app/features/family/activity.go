// internal/app/features/family/activity.go
package family

import (
	"context"
	"time"

	"github.com/dalemusser/recipehub/internal/app/store/audit"
	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/app/system/authz"
	"github.com/dalemusser/recipehub/internal/app/system/paging"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityReader reads a group's audit trail. *audit.Store satisfies it.
type ActivityReader interface {
	GetByFamily(ctx context.Context, familyID primitive.ObjectID, limit int64) ([]audit.Event, error)
}

// Activity limits.
const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 200
)

// ActivityView is one entry of a group's membership history.
type ActivityView struct {
	EventType string              `json:"eventType"`
	ActorID   *primitive.ObjectID `json:"actorId,omitempty"`
	UserID    *primitive.ObjectID `json:"userId,omitempty"`
	Details   map[string]string   `json:"details,omitempty"`
	At        time.Time           `json:"at"`
}

// Activity returns the newest membership events for a group, newest
// first. Only active members may read it.
func (s *Service) Activity(ctx context.Context, actor authz.Actor, id primitive.ObjectID, limit int) ([]ActivityView, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.IsActiveMember(actor.ID) {
		return nil, errNotMember
	}
	if s.activity == nil {
		return []ActivityView{}, nil
	}

	limit = paging.Clamp(limit, DefaultActivityLimit, MaxActivityLimit)
	events, err := s.activity.GetByFamily(ctx, id, int64(limit))
	if err != nil {
		return nil, apierr.Internal(err, "load family activity")
	}

	out := make([]ActivityView, 0, len(events))
	for _, e := range events {
		out = append(out, ActivityView{
			EventType: e.EventType,
			ActorID:   e.ActorID,
			UserID:    e.UserID,
			Details:   e.Details,
			At:        e.Timestamp,
		})
	}
	return out, nil
}
