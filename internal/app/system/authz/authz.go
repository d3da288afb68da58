// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the authenticated caller of an operation: the verified
// (userId, email, name) triple from the bearer token.
type Actor struct {
	ID    primitive.ObjectID
	Email string
	Name  string
}

// ActorFrom returns the caller for r. A missing user or a malformed user ID
// yields ok=false, so ok=true always means a valid ObjectID.
func ActorFrom(r *http.Request) (Actor, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return Actor{}, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		// Token subject is not an ObjectID; fail closed.
		return Actor{}, false
	}
	return Actor{ID: id, Email: u.Email, Name: u.Name}, true
}

// UserID is ActorFrom reduced to the ID.
func UserID(r *http.Request) (primitive.ObjectID, bool) {
	a, ok := ActorFrom(r)
	return a.ID, ok
}
