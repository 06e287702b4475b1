// Package catalog holds the shop/item/price read models, the shopkeeper
// price-update write path, and the points ledger credited when a scanned
// bill is confirmed.
package catalog

import "time"

// StockStatus indicates item availability at a shop
type StockStatus string

const (
	StockAvailable StockStatus = "available"
	StockLow       StockStatus = "low"
	StockOut       StockStatus = "out"
)

// Shop represents a nearby shop
type Shop struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	DistanceKM float64 `json:"distance_km"`
	Rating     float64 `json:"rating"`
	Open       bool    `json:"open"`
}

// Item represents a purchasable item
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

// Price represents one shop's listed price for an item
type Price struct {
	ID          string      `json:"id"`
	ItemID      string      `json:"item_id"`
	ShopID      string      `json:"shop_id"`
	Price       float64     `json:"price"`
	IsOffer     bool        `json:"is_offer"`
	StockStatus StockStatus `json:"stock_status"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// SeedShops returns the bundled shop set
func SeedShops() []*Shop {
	return []*Shop{
		{ID: "s1", Name: "Fresh Mart", Address: "12 Main St", DistanceKM: 0.5, Rating: 4.5, Open: true},
		{ID: "s2", Name: "Daily Needs", Address: "45 Cross Rd", DistanceKM: 1.2, Rating: 4.2, Open: true},
		{ID: "s3", Name: "Super Bazaar", Address: "88 Market Ln", DistanceKM: 2.5, Rating: 4.8, Open: true},
	}
}

// SeedItems returns the bundled item set
func SeedItems() []*Item {
	return []*Item{
		{ID: "i1", Name: "Tomato", Category: "Vegetables", Unit: "kg"},
		{ID: "i2", Name: "Onion", Category: "Vegetables", Unit: "kg"},
		{ID: "i3", Name: "Basmati Rice", Category: "Grains", Unit: "kg"},
		{ID: "i4", Name: "Potato", Category: "Vegetables", Unit: "kg"},
		{ID: "i5", Name: "Milk", Category: "Dairy", Unit: "L"},
		{ID: "i6", Name: "Carrot", Category: "Vegetables", Unit: "kg"},
		{ID: "i7", Name: "Cucumber", Category: "Vegetables", Unit: "kg"},
		{ID: "i8", Name: "Apple", Category: "Fruits", Unit: "kg"},
		{ID: "i9", Name: "Banana", Category: "Fruits", Unit: "kg"},
		{ID: "i10", Name: "Orange", Category: "Fruits", Unit: "kg"},
		{ID: "i11", Name: "Mango", Category: "Fruits", Unit: "kg"},
		{ID: "i12", Name: "Wheat Flour", Category: "Grains", Unit: "kg"},
		{ID: "i13", Name: "Sugar", Category: "Grains", Unit: "kg"},
		{ID: "i14", Name: "Yogurt", Category: "Dairy", Unit: "kg"},
		{ID: "i15", Name: "Cheese", Category: "Dairy", Unit: "kg"},
		{ID: "i16", Name: "Turmeric", Category: "Spices", Unit: "kg"},
		{ID: "i17", Name: "Cumin", Category: "Spices", Unit: "kg"},
		{ID: "i26", Name: "Notebook", Category: "Stationery", Unit: "piece"},
		{ID: "i27", Name: "Pen Set", Category: "Stationery", Unit: "pack"},
		{ID: "i30", Name: "LED Bulb", Category: "Electronics", Unit: "piece"},
		{ID: "i32", Name: "Phone Charger", Category: "Electronics", Unit: "piece"},
	}
}

// SeedPrices returns the bundled price set, stamped with now
func SeedPrices(now time.Time) []*Price {
	return []*Price{
		{ID: "p1", ItemID: "i1", ShopID: "s1", Price: 40, IsOffer: true, StockStatus: StockAvailable, UpdatedAt: now},
		{ID: "p2", ItemID: "i1", ShopID: "s2", Price: 38, IsOffer: false, StockStatus: StockAvailable, UpdatedAt: now},
		{ID: "p3", ItemID: "i1", ShopID: "s3", Price: 45, IsOffer: false, StockStatus: StockAvailable, UpdatedAt: now},
		{ID: "p4", ItemID: "i2", ShopID: "s1", Price: 30, IsOffer: false, StockStatus: StockAvailable, UpdatedAt: now},
		{ID: "p5", ItemID: "i3", ShopID: "s2", Price: 120, IsOffer: true, StockStatus: StockLow, UpdatedAt: now},
	}
}
