// Package mongostore implements the repository interfaces on MongoDB.
// Sub-orders are embedded in their order document; conditional updates use
// positional filters on the embedded array.
package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection  = "users"
	shopsCollection  = "shops"
	itemsCollection  = "items"
	ordersCollection = "orders"

	opTimeout    = 3 * time.Second
	queryTimeout = 5 * time.Second
)

// caseInsensitive compares strings ignoring case.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// EnsureIndexes creates the indexes the repositories rely on. It is safe to call repeatedly.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "isAvailable", Value: 1}, {Key: "lat", Value: 1}, {Key: "lng", Value: 1}}},
		},
		shopsCollection: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "city", Value: 1}}, Options: options.Index().SetCollation(caseInsensitive)},
		},
		itemsCollection: {
			{Keys: bson.D{{Key: "shopId", Value: 1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "buyerId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "shopOrders.id", Value: 1}}},
			{Keys: bson.D{{Key: "shopOrders.ownerId", Value: 1}}},
			{Keys: bson.D{{Key: "shopOrders.assignedAgentId", Value: 1}}},
			{Keys: bson.D{{Key: "shopOrders.status", Value: 1}, {Key: "shopOrders.otpExpiresAt", Value: 1}}},
			{Keys: bson.D{{Key: "razorpayOrderId", Value: 1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

func findOne(ctx context.Context, c *mongo.Collection, filter any, out any) (bool, error) {
	err := c.FindOne(ctx, filter).Decode(out)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func matched(res *mongo.UpdateResult, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
