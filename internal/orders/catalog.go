package orders

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"foodDeliveryMarketplace/internal/auth"
	"foodDeliveryMarketplace/internal/geo"
	"foodDeliveryMarketplace/models"
)

// ShopInput creates or edits the owner's shop.
type ShopInput struct {
	Name    string
	City    string
	Address string
	Lat     float64
	Lng     float64
}

func (s *Service) SaveShop(ctx context.Context, actor *auth.Principal, in ShopInput) (*models.Shop, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleOwner {
		return nil, newError(KindForbidden, "only shop owners can manage a shop")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.City = strings.TrimSpace(in.City)
	if in.Name == "" || in.City == "" {
		return nil, newError(KindValidation, "shop name and city are required")
	}
	if !geo.ValidCoordinates(in.Lat, in.Lng) {
		return nil, newError(KindValidation, "coordinates are out of range")
	}
	return s.shops.Upsert(ctx, &models.Shop{
		OwnerID:   actor.UserID,
		Name:      in.Name,
		City:      in.City,
		Address:   strings.TrimSpace(in.Address),
		Lat:       in.Lat,
		Lng:       in.Lng,
		CreatedAt: s.now().UTC(),
	})
}

func (s *Service) MyShop(ctx context.Context, actor *auth.Principal) (*models.Shop, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	shop, err := s.shops.GetByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, newError(KindNotFound, "you have no shop yet")
	}
	return shop, nil
}

func (s *Service) GetShop(ctx context.Context, shopID string) (*models.Shop, error) {
	shop, err := s.shops.GetByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, newError(KindNotFound, "shop %s not found", shopID)
	}
	return shop, nil
}

func (s *Service) ShopsByCity(ctx context.Context, city string) ([]*models.Shop, error) {
	if strings.TrimSpace(city) == "" {
		return nil, newError(KindValidation, "city is required")
	}
	list, err := s.shops.ListByCity(ctx, city)
	if list == nil && err == nil {
		list = []*models.Shop{}
	}
	return list, err
}

// ItemInput adds a menu item to the owner's shop.
type ItemInput struct {
	Name     string
	Category string
	FoodType string
	Price    decimal.Decimal
}

func (s *Service) AddItem(ctx context.Context, actor *auth.Principal, in ItemInput) (*models.Item, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleOwner {
		return nil, newError(KindForbidden, "only shop owners can add items")
	}
	shop, err := s.MyShop(ctx, actor)
	if err != nil {
		return nil, err
	}
	in, err = in.normalize()
	if err != nil {
		return nil, err
	}
	return s.items.Create(ctx, &models.Item{
		ShopID:    shop.ID,
		Name:      in.Name,
		Category:  in.Category,
		FoodType:  in.FoodType,
		Price:     in.Price,
		CreatedAt: s.now().UTC(),
	})
}

func (in ItemInput) normalize() (ItemInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.FoodType = strings.TrimSpace(in.FoodType)
	if in.Name == "" {
		return in, newError(KindValidation, "item name is required")
	}
	if !in.Price.IsPositive() {
		return in, newError(KindValidation, "price must be positive")
	}
	in.Price = in.Price.Round(2)
	return in, nil
}

// EditItem replaces the name, category, food type and price of an item of the
// actor's shop. Orders already placed keep the snapshot they were priced with.
func (s *Service) EditItem(ctx context.Context, actor *auth.Principal, itemID string, in ItemInput) (*models.Item, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	it, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.requireItemOwner(ctx, actor, it); err != nil {
		return nil, err
	}
	in, err = in.normalize()
	if err != nil {
		return nil, err
	}
	it.Name, it.Category, it.FoodType, it.Price = in.Name, in.Category, in.FoodType, in.Price
	ok, err := s.items.Update(ctx, it)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(KindNotFound, "item %s not found", itemID)
	}
	return s.GetItem(ctx, itemID)
}

func (s *Service) requireItemOwner(ctx context.Context, actor *auth.Principal, it *models.Item) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	shop, err := s.shops.GetByID(ctx, it.ShopID)
	if err != nil {
		return err
	}
	if shop == nil || shop.OwnerID != actor.UserID {
		return newError(KindForbidden, "not your item")
	}
	return nil
}

func (s *Service) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, newError(KindNotFound, "item %s not found", itemID)
	}
	return it, nil
}

// DeleteItem removes an item of the actor's shop. Past orders keep their snapshots.
func (s *Service) DeleteItem(ctx context.Context, actor *auth.Principal, itemID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	it, err := s.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.requireItemOwner(ctx, actor, it); err != nil {
		return err
	}
	ok, err := s.items.Delete(ctx, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindNotFound, "item %s not found", itemID)
	}
	return nil
}

func (s *Service) ItemsByShop(ctx context.Context, shopID string) ([]*models.Item, error) {
	if _, err := s.GetShop(ctx, shopID); err != nil {
		return nil, err
	}
	list, err := s.items.ListByShop(ctx, shopID)
	if list == nil && err == nil {
		list = []*models.Item{}
	}
	return list, err
}

func (s *Service) ItemsByCity(ctx context.Context, city string) ([]*models.Item, error) {
	if strings.TrimSpace(city) == "" {
		return nil, newError(KindValidation, "city is required")
	}
	list, err := s.items.ListByCity(ctx, city)
	if list == nil && err == nil {
		list = []*models.Item{}
	}
	return list, err
}

// SearchItems finds items of shops in city whose name or category contains query.
func (s *Service) SearchItems(ctx context.Context, city, query string) ([]*models.Item, error) {
	if strings.TrimSpace(city) == "" || strings.TrimSpace(query) == "" {
		return nil, newError(KindValidation, "city and query are required")
	}
	list, err := s.items.Search(ctx, city, query)
	if list == nil && err == nil {
		list = []*models.Item{}
	}
	return list, err
}

// RateItem records stars (1 to 5) from the actor and returns the item's new rating.
func (s *Service) RateItem(ctx context.Context, actor *auth.Principal, itemID string, stars int) (*models.ItemRating, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if itemID == "" {
		return nil, newError(KindValidation, "item id is required")
	}
	if stars < models.MinRating || stars > models.MaxRating {
		return nil, newError(KindValidation, "rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	it, err := s.items.AddRating(ctx, itemID, stars)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, newError(KindNotFound, "item %s not found", itemID)
	}
	return &it.Rating, nil
}
