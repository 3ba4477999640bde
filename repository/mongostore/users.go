package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"foodDeliveryMarketplace/internal/geo"
	"foodDeliveryMarketplace/models"
)

// UserRepository stores users in the "users" collection.
type UserRepository struct {
	c *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{c: db.Collection(usersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	out := *u
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Role == "" {
		out.Role = models.RoleUser
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now()
	}
	out.CreatedAt = truncate(out.CreatedAt)
	out.Email = strings.ToLower(strings.TrimSpace(out.Email))
	if _, err := r.c.InsertOne(ctx, toUserDoc(&out)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *UserRepository) get(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var d userDoc
	ok, err := findOne(ctx, r.c, filter, &d)
	if err != nil || !ok {
		return nil, err
	}
	return d.model(), nil
}

func (r *UserRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	return r.set(ctx, id, bson.M{"lat": lat, "lng": lng})
}

func (r *UserRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	return r.set(ctx, id, bson.M{"isAvailable": available})
}

func (r *UserRepository) set(ctx context.Context, id string, fields bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *UserRepository) ListAvailableAgents(ctx context.Context, box geo.BoundingBox) ([]*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	filter := bson.M{
		"role":        string(models.RoleDeliveryBoy),
		"isAvailable": true,
		"lat":         bson.M{"$gte": box.MinLat, "$lte": box.MaxLat},
		"lng":         bson.M{"$gte": box.MinLng, "$lte": box.MaxLng},
	}
	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}
