package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// pointsPerScan is the reward credited for one confirmed bill scan
const pointsPerScan = 10

const (
	cacheTTL             = 30 * time.Second
	cacheCleanupInterval = time.Minute

	categoriesCacheKey = "categories"
)

// IDGenerator generates unique IDs for price records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates IDs using random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles catalog reads, the shopkeeper price-update write path,
// and the points ledger. Category and comparison reads are hit on every
// screen render, so they are cached briefly.
type Service struct {
	db          DB
	idGenerator IDGenerator
	timeSource  TimeSource
	cache       *gocache.Cache
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB) *Service {
	return NewServiceWithDeps(db, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		idGenerator: idGen,
		timeSource:  timeSrc,
		cache:       gocache.New(cacheTTL, cacheCleanupInterval),
	}
}

// ListShops returns all shops
func (s *Service) ListShops() ([]*Shop, error) {
	shops, err := s.db.ListShops()
	if err != nil {
		return nil, fmt.Errorf("listing shops: %w", err)
	}
	return shops, nil
}

// ListItems returns all items
func (s *Service) ListItems() ([]*Item, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// Categories returns the sorted set of distinct item categories
func (s *Service) Categories() ([]string, error) {
	if cached, found := s.cache.Get(categoriesCacheKey); found {
		return cached.([]string), nil
	}

	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	seen := make(map[string]bool)
	categories := make([]string, 0)
	for _, item := range items {
		if !seen[item.Category] {
			seen[item.Category] = true
			categories = append(categories, item.Category)
		}
	}
	sort.Strings(categories)

	s.cache.Set(categoriesCacheKey, categories, gocache.DefaultExpiration)
	return categories, nil
}

// ItemsByCategory returns the items in one category
func (s *Service) ItemsByCategory(category string) ([]*Item, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	matched := make([]*Item, 0)
	for _, item := range items {
		if strings.EqualFold(item.Category, category) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

// ComparePrices returns an item's listed prices sorted ascending, cheapest
// first
func (s *Service) ComparePrices(itemID string) ([]*Price, error) {
	cacheKey := "compare-" + itemID
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.([]*Price), nil
	}

	prices, err := s.db.PricesForItem(itemID)
	if err != nil {
		return nil, fmt.Errorf("getting prices for item %s: %w", itemID, err)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Price < prices[j].Price })

	s.cache.Set(cacheKey, prices, gocache.DefaultExpiration)
	return prices, nil
}

// PriceUpdate is a shopkeeper's price submission
type PriceUpdate struct {
	ItemID      string      `json:"item_id"`
	ShopID      string      `json:"shop_id"`
	Price       float64     `json:"price"`
	IsOffer     bool        `json:"is_offer"`
	StockStatus StockStatus `json:"stock_status"`
}

// AddPrice appends a price record with a server-assigned id and timestamp
func (s *Service) AddPrice(update PriceUpdate) (*Price, error) {
	if update.ItemID == "" || update.ShopID == "" {
		return nil, fmt.Errorf("item and shop are required")
	}
	if update.Price <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}
	if update.StockStatus == "" {
		update.StockStatus = StockAvailable
	}

	price := &Price{
		ID:          s.idGenerator.Generate(),
		ItemID:      update.ItemID,
		ShopID:      update.ShopID,
		Price:       update.Price,
		IsOffer:     update.IsOffer,
		StockStatus: update.StockStatus,
		UpdatedAt:   s.timeSource.Now(),
	}

	if err := s.db.SavePrice(price); err != nil {
		return nil, fmt.Errorf("saving price: %w", err)
	}

	// The comparison for this item is stale now
	s.cache.Delete("compare-" + price.ItemID)

	return price, nil
}

// ConfirmScan credits the reward for one confirmed bill scan and returns
// the points awarded plus the user's new balance
func (s *Service) ConfirmScan(userID string, itemCount int) (int, int, error) {
	if userID == "" {
		return 0, 0, fmt.Errorf("user is required")
	}
	if itemCount <= 0 {
		return 0, 0, fmt.Errorf("at least one confirmed item is required")
	}

	balance, err := s.db.AddPoints(userID, pointsPerScan)
	if err != nil {
		return 0, 0, fmt.Errorf("awarding points: %w", err)
	}
	return pointsPerScan, balance, nil
}

// Points returns a user's point balance
func (s *Service) Points(userID string) (int, error) {
	balance, err := s.db.Points(userID)
	if err != nil {
		return 0, fmt.Errorf("getting points: %w", err)
	}
	return balance, nil
}
