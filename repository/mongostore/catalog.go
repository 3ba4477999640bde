package mongostore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"foodDeliveryMarketplace/models"
)

// ShopRepository stores shops in the "shops" collection, one per owner.
type ShopRepository struct {
	c *mongo.Collection
}

func NewShopRepository(db *mongo.Database) *ShopRepository {
	return &ShopRepository{c: db.Collection(shopsCollection)}
}

func (r *ShopRepository) Upsert(ctx context.Context, s *models.Shop) (*models.Shop, error) {
	if s == nil {
		return nil, errors.New("shop is nil")
	}
	if s.OwnerID == "" {
		return nil, errors.New("shop owner is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	update := bson.M{
		"$set": bson.M{
			"name":    s.Name,
			"city":    strings.TrimSpace(s.City),
			"address": s.Address,
			"lat":     s.Lat,
			"lng":     s.Lng,
		},
		"$setOnInsert": bson.M{"_id": id, "createdAt": truncate(created)},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var d shopDoc
	if err := r.c.FindOneAndUpdate(ctx, bson.M{"ownerId": s.OwnerID}, update, opts).Decode(&d); err != nil {
		return nil, err
	}
	return d.model(), nil
}

func (r *ShopRepository) GetByID(ctx context.Context, id string) (*models.Shop, error) {
	return r.get(ctx, bson.M{"_id": id})
}

func (r *ShopRepository) GetByOwner(ctx context.Context, ownerID string) (*models.Shop, error) {
	return r.get(ctx, bson.M{"ownerId": ownerID})
}

func (r *ShopRepository) get(ctx context.Context, filter bson.M) (*models.Shop, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var d shopDoc
	ok, err := findOne(ctx, r.c, filter, &d)
	if err != nil || !ok {
		return nil, err
	}
	return d.model(), nil
}

func (r *ShopRepository) ListByCity(ctx context.Context, city string) ([]*models.Shop, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	opts := options.Find().SetCollation(caseInsensitive).SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.c.Find(ctx, bson.M{"city": strings.TrimSpace(city)}, opts)
	if err != nil {
		return nil, err
	}
	var docs []shopDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*models.Shop, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

// ItemRepository stores menu items in the "items" collection.
type ItemRepository struct {
	c     *mongo.Collection
	shops *ShopRepository
}

func NewItemRepository(db *mongo.Database) *ItemRepository {
	return &ItemRepository{c: db.Collection(itemsCollection), shops: NewShopRepository(db)}
}

func (r *ItemRepository) Create(ctx context.Context, it *models.Item) (*models.Item, error) {
	if it == nil {
		return nil, errors.New("item is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	out := *it
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now()
	}
	out.CreatedAt = truncate(out.CreatedAt)
	out.Rating = models.ItemRating{}
	if _, err := r.c.InsertOne(ctx, toItemDoc(&out)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var d itemDoc
	ok, err := findOne(ctx, r.c, bson.M{"_id": id}, &d)
	if err != nil || !ok {
		return nil, err
	}
	return d.model(), nil
}

func (r *ItemRepository) Update(ctx context.Context, it *models.Item) (bool, error) {
	if it == nil {
		return false, errors.New("item is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": it.ID}, bson.M{"$set": bson.M{
		"name":     it.Name,
		"category": it.Category,
		"foodType": it.FoodType,
		"price":    it.Price.String(),
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *ItemRepository) AddRating(ctx context.Context, id string, stars int) (*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var d itemDoc
	err := r.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"rating.count": 1, "rating.total": stars}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d.model(), nil
}

func (r *ItemRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *ItemRepository) ListByShop(ctx context.Context, shopID string) ([]*models.Item, error) {
	return r.list(ctx, bson.M{"shopId": shopID})
}

// ListByCity resolves the city's shops first, then their items.
func (r *ItemRepository) ListByCity(ctx context.Context, city string) ([]*models.Item, error) {
	shops, err := r.shops.ListByCity(ctx, city)
	if err != nil || len(shops) == 0 {
		return nil, err
	}
	ids := make([]string, 0, len(shops))
	for _, s := range shops {
		ids = append(ids, s.ID)
	}
	return r.list(ctx, bson.M{"shopId": bson.M{"$in": ids}})
}

// Search matches query against name or category, ignoring case, within the city's shops.
func (r *ItemRepository) Search(ctx context.Context, city, query string) ([]*models.Item, error) {
	shops, err := r.shops.ListByCity(ctx, city)
	if err != nil || len(shops) == 0 {
		return nil, err
	}
	ids := make([]string, 0, len(shops))
	for _, s := range shops {
		ids = append(ids, s.ID)
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(query)), Options: "i"}
	filter := bson.M{
		"shopId": bson.M{"$in": ids},
		"$or":    bson.A{bson.M{"name": pattern}, bson.M{"category": pattern}},
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetCollation(caseInsensitive)
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []itemDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*models.Item, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (r *ItemRepository) list(ctx context.Context, filter bson.M) ([]*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []itemDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*models.Item, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}
