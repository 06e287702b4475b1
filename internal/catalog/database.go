package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

const (
	shopBucketName   = "shops"
	itemBucketName   = "items"
	priceBucketName  = "prices"
	pointsBucketName = "points"
)

// DB defines the interface for catalog storage operations
type DB interface {
	// ListShops returns all shops
	ListShops() ([]*Shop, error)

	// ListItems returns all items
	ListItems() ([]*Item, error)

	// PricesForItem returns all prices listed for an item
	PricesForItem(itemID string) ([]*Price, error)

	// SavePrice appends a price record
	SavePrice(price *Price) error

	// AddPoints credits points to a user and returns the new balance
	AddPoints(userID string, points int) (int, error)

	// Points returns a user's point balance
	Points(userID string) (int, error)

	// Close closes the database
	Close() error
}

// MemoryDB implements the DB interface in memory, seeded with the bundled
// catalog. This is the default store: the catalog is a per-process read
// model and nothing outlives the process.
type MemoryDB struct {
	mu     sync.RWMutex
	shops  []*Shop
	items  []*Item
	prices []*Price
	points map[string]int
}

// NewMemoryDB creates a seeded MemoryDB
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		shops:  SeedShops(),
		items:  SeedItems(),
		prices: SeedPrices(time.Now()),
		points: make(map[string]int),
	}
}

// ListShops returns all shops
func (m *MemoryDB) ListShops() ([]*Shop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	shops := make([]*Shop, len(m.shops))
	copy(shops, m.shops)
	return shops, nil
}

// ListItems returns all items
func (m *MemoryDB) ListItems() ([]*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]*Item, len(m.items))
	copy(items, m.items)
	return items, nil
}

// PricesForItem returns all prices listed for an item
func (m *MemoryDB) PricesForItem(itemID string) ([]*Price, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prices := make([]*Price, 0)
	for _, p := range m.prices {
		if p.ItemID == itemID {
			prices = append(prices, p)
		}
	}
	return prices, nil
}

// SavePrice appends a price record
func (m *MemoryDB) SavePrice(price *Price) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices = append(m.prices, price)
	return nil
}

// AddPoints credits points to a user and returns the new balance
func (m *MemoryDB) AddPoints(userID string, points int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[userID] += points
	return m.points[userID], nil
}

// Points returns a user's point balance
func (m *MemoryDB) Points(userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.points[userID], nil
}

// Close is a no-op for the in-memory store
func (m *MemoryDB) Close() error {
	return nil
}

// BoltDB implements the DB interface using BoltDB, for deployments that
// want shopkeeper price updates and point balances to survive restarts.
// The bundled catalog is seeded on first open.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{shopBucketName, itemBucketName, priceBucketName, pointsBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return seedIfEmpty(tx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// seedIfEmpty loads the bundled catalog into a fresh database
func seedIfEmpty(tx *bbolt.Tx) error {
	shops := tx.Bucket([]byte(shopBucketName))
	if shops.Stats().KeyN > 0 {
		return nil
	}
	for _, shop := range SeedShops() {
		if err := putJSON(shops, shop.ID, shop); err != nil {
			return err
		}
	}
	items := tx.Bucket([]byte(itemBucketName))
	for _, item := range SeedItems() {
		if err := putJSON(items, item.ID, item); err != nil {
			return err
		}
	}
	prices := tx.Bucket([]byte(priceBucketName))
	for _, price := range SeedPrices(time.Now()) {
		if err := putJSON(prices, price.ID, price); err != nil {
			return err
		}
	}
	return nil
}

func putJSON(bucket *bbolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	return bucket.Put([]byte(key), data)
}

// ListShops returns all shops
func (b *BoltDB) ListShops() ([]*Shop, error) {
	shops := make([]*Shop, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(shopBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var shop Shop
			if err := json.Unmarshal(v, &shop); err != nil {
				return fmt.Errorf("unmarshaling shop: %w", err)
			}
			shops = append(shops, &shop)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(shops, func(i, j int) bool { return shops[i].ID < shops[j].ID })
	return shops, nil
}

// ListItems returns all items
func (b *BoltDB) ListItems() ([]*Item, error) {
	items := make([]*Item, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(itemBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshaling item: %w", err)
			}
			items = append(items, &item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// PricesForItem returns all prices listed for an item
func (b *BoltDB) PricesForItem(itemID string) ([]*Price, error) {
	prices := make([]*Price, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(priceBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var price Price
			if err := json.Unmarshal(v, &price); err != nil {
				return fmt.Errorf("unmarshaling price: %w", err)
			}
			if price.ItemID == itemID {
				prices = append(prices, &price)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return prices, nil
}

// SavePrice appends a price record
func (b *BoltDB) SavePrice(price *Price) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(priceBucketName))
		return putJSON(bucket, price.ID, price)
	})
}

// AddPoints credits points to a user and returns the new balance
func (b *BoltDB) AddPoints(userID string, points int) (int, error) {
	var balance int
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(pointsBucketName))
		balance = decodePoints(bucket.Get([]byte(userID))) + points
		return bucket.Put([]byte(userID), []byte(strconv.Itoa(balance)))
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Points returns a user's point balance
func (b *BoltDB) Points(userID string) (int, error) {
	var balance int
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(pointsBucketName))
		balance = decodePoints(bucket.Get([]byte(userID)))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func decodePoints(data []byte) int {
	if data == nil {
		return 0
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return 0
	}
	return n
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
