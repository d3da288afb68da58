// internal/app/policy/sharepolicy/sharepolicy.go
package sharepolicy

import (
	"context"

	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/dalemusser/recipehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Families answers family-membership questions. The family service
// implements it.
type Families interface {
	SharedGroupIDs(ctx context.Context, userID primitive.ObjectID, area models.SharingArea) ([]primitive.ObjectID, error)
	RequireSharing(ctx context.Context, userID, familyID primitive.ObjectID, area models.SharingArea) error
	IsFamilyAdmin(ctx context.Context, userID, familyID primitive.ObjectID) (bool, error)
}

// Owned is the ownership part of any shareable record.
type Owned struct {
	OwnerID  primitive.ObjectID
	FamilyID *primitive.ObjectID
}

// CanRead reports whether userID may see the record:
// - Owners always can
// - Otherwise only active members of the record's family, while the family
//   shares area
// Returns an error only when the membership check itself fails.
func CanRead(ctx context.Context, fam Families, userID primitive.ObjectID, area models.SharingArea, o Owned) (bool, error) {
	if o.OwnerID == userID {
		return true, nil
	}
	if o.FamilyID == nil {
		return false, nil
	}
	err := fam.RequireSharing(ctx, userID, *o.FamilyID, area)
	switch apierr.KindOf(err) {
	case apierr.KindForbidden, apierr.KindNotFound:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CanModify reports whether userID may change or delete the record. With
// adminOnly, family members additionally need the admin role; owners are
// never restricted.
func CanModify(ctx context.Context, fam Families, userID primitive.ObjectID, area models.SharingArea, o Owned, adminOnly bool) (bool, error) {
	if o.OwnerID == userID {
		return true, nil
	}
	ok, err := CanRead(ctx, fam, userID, area, o)
	if err != nil || !ok {
		return false, err
	}
	if !adminOnly {
		return true, nil
	}
	return fam.IsFamilyAdmin(ctx, userID, *o.FamilyID)
}

// CheckShareTarget verifies userID may place a record into familyID. A nil
// familyID means "keep it private" and always passes.
func CheckShareTarget(ctx context.Context, fam Families, userID primitive.ObjectID, area models.SharingArea, familyID *primitive.ObjectID) error {
	if familyID == nil {
		return nil
	}
	return fam.RequireSharing(ctx, userID, *familyID, area)
}

// VisibleFamilies returns the families whose area data userID can see.
func VisibleFamilies(ctx context.Context, fam Families, userID primitive.ObjectID, area models.SharingArea) ([]primitive.ObjectID, error) {
	return fam.SharedGroupIDs(ctx, userID, area)
}
