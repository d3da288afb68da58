// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/recipehub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("family_groups", familyGroupsSchema())
	ensure("recipes", recipesSchema())
	ensure("pantry_items", pantryItemsSchema())
	ensure("shopping_lists", shoppingListsSchema())

	// Append-only; no validator needed.
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enumOf[T ~string](vals ...T) bson.A {
	out := bson.A{}
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "email", "password_hash", "status"},
			"properties": bson.M{
				"full_name":     nonBlank,
				"full_name_ci":  bson.M{"bsonType": "string"},
				"email":         nonBlank,
				"password_hash": nonBlank,
				"status":        bson.M{"enum": enumOf(models.UserStatusActive, models.UserStatusDisabled)},
			},
		},
	}
}

func familyGroupsSchema() bson.M {
	member := bson.M{
		"bsonType": "object",
		"required": bson.A{"user_id", "role", "status", "joined_at"},
		"properties": bson.M{
			"user_id":   bson.M{"bsonType": "objectId"},
			"role":      bson.M{"enum": enumOf(models.FamilyRoleAdmin, models.FamilyRoleMember)},
			"status":    bson.M{"enum": enumOf(models.MemberActive, models.MemberRemoved, models.MemberLeft)},
			"joined_at": bson.M{"bsonType": "date"},
		},
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "admin_id", "members", "invite_code", "settings", "version"},
			"properties": bson.M{
				"name":        bson.M{"bsonType": "string", "minLength": 1, "maxLength": 50, "pattern": ".*\\S.*"},
				"description": bson.M{"bsonType": "string", "maxLength": 200},
				"admin_id":    bson.M{"bsonType": "objectId"},
				"invite_code": bson.M{"bsonType": "string", "pattern": "^[A-Z0-9]{8}$"},
				"members":     bson.M{"bsonType": "array", "minItems": 1, "items": member},
				"settings": bson.M{
					"bsonType": "object",
					"properties": bson.M{
						"allow_member_invites":         bson.M{"bsonType": "bool"},
						"require_approval_for_recipes": bson.M{"bsonType": "bool"},
						"shared_pantry":                bson.M{"bsonType": "bool"},
						"shared_meal_plans":            bson.M{"bsonType": "bool"},
						"shared_shopping_lists":        bson.M{"bsonType": "bool"},
					},
				},
				"version": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			},
		},
	}
}

func recipesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"owner_id", "title", "title_ci"},
			"properties": bson.M{
				"owner_id":     bson.M{"bsonType": "objectId"},
				"family_id":    bson.M{"bsonType": "objectId"},
				"title":        bson.M{"bsonType": "string", "minLength": 1, "maxLength": 120, "pattern": ".*\\S.*"},
				"title_ci":     bson.M{"bsonType": "string"},
				"description":  bson.M{"bsonType": "string", "maxLength": 2000},
				"ingredients":  bson.M{"bsonType": "array"},
				"instructions": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string", "maxLength": 2000}},
				"tags":         bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			},
		},
	}
}

func pantryItemsSchema() bson.M {
	number := bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "minimum": 0}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"owner_id", "name", "name_ci", "quantity"},
			"properties": bson.M{
				"owner_id":            bson.M{"bsonType": "objectId"},
				"family_id":           bson.M{"bsonType": "objectId"},
				"name":                nonBlank,
				"name_ci":             bson.M{"bsonType": "string"},
				"quantity":            number,
				"low_stock_threshold": number,
				"expires_at":          bson.M{"bsonType": "date"},
			},
		},
	}
}

func shoppingListsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"owner_id", "name", "items"},
			"properties": bson.M{
				"owner_id":  bson.M{"bsonType": "objectId"},
				"family_id": bson.M{"bsonType": "objectId"},
				"name":      nonBlank,
				"items": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"id", "name"},
						"properties": bson.M{
							"id":      nonBlank,
							"name":    nonBlank,
							"checked": bson.M{"bsonType": "bool"},
						},
					},
				},
			},
		},
	}
}
