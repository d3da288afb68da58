// internal/app/store/metrics/metricsstore.go
package metricsstore

import (
	"context"
	"time"

	"github.com/dalemusser/recipehub/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of collection totals exported on /metrics.
type Counts struct {
	Users             int64
	FamilyGroups      int64
	ActiveMemberships int64
	Recipes           int64
	PantryItems       int64
	ShoppingLists     int64
}

// FetchCounts returns the high-level counts.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts

	count := func(coll string, dst *int64) {
		if n, err := db.Collection(coll).EstimatedDocumentCount(ctx); err == nil {
			*dst = n
		}
	}
	count("users", &out.Users)
	count("family_groups", &out.FamilyGroups)
	count("recipes", &out.Recipes)
	count("pantry_items", &out.PantryItems)
	count("shopping_lists", &out.ShoppingLists)

	// active roster entries across all groups
	cur, err := db.Collection("family_groups").Aggregate(ctx, mongo.Pipeline{
		{{Key: "$unwind", Value: "$members"}},
		{{Key: "$match", Value: bson.M{"members.status": models.MemberActive}}},
		{{Key: "$count", Value: "n"}},
	})
	if err == nil {
		defer cur.Close(ctx)
		var rows []struct {
			N int64 `bson:"n"`
		}
		if cur.All(ctx, &rows) == nil && len(rows) > 0 {
			out.ActiveMemberships = rows[0].N
		}
	}

	return out
}

// Collector exports Counts as gauges, querying MongoDB on every scrape.
type Collector struct {
	db      *mongo.Database
	timeout time.Duration
	desc    *prometheus.Desc
}

// NewCollector builds a Collector. Each scrape is bounded by timeout.
func NewCollector(db *mongo.Database, timeout time.Duration) *Collector {
	return &Collector{
		db:      db,
		timeout: timeout,
		desc: prometheus.NewDesc(
			"recipehub_documents",
			"Document counts by collection.",
			[]string{"collection"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	counts := FetchCounts(ctx, c.db)
	for name, v := range map[string]int64{
		"users":              counts.Users,
		"family_groups":      counts.FamilyGroups,
		"active_memberships": counts.ActiveMemberships,
		"recipes":            counts.Recipes,
		"pantry_items":       counts.PantryItems,
		"shopping_lists":     counts.ShoppingLists,
	} {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(v), name)
	}
}
