package catalog

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MemoryDB", func() {
	var db *MemoryDB

	BeforeEach(func() {
		db = NewMemoryDB()
	})

	It("should be seeded with the bundled catalog", func() {
		shops, err := db.ListShops()
		Expect(err).NotTo(HaveOccurred())
		Expect(shops).To(HaveLen(3))

		items, err := db.ListItems()
		Expect(err).NotTo(HaveOccurred())
		Expect(items).NotTo(BeEmpty())

		prices, err := db.PricesForItem("i1")
		Expect(err).NotTo(HaveOccurred())
		Expect(prices).To(HaveLen(3))
	})

	It("should append saved prices", func() {
		err := db.SavePrice(&Price{ID: "p100", ItemID: "i5", ShopID: "s1", Price: 60, StockStatus: StockAvailable, UpdatedAt: time.Now()})
		Expect(err).NotTo(HaveOccurred())

		prices, err := db.PricesForItem("i5")
		Expect(err).NotTo(HaveOccurred())
		Expect(prices).To(HaveLen(1))
		Expect(prices[0].Price).To(Equal(60.0))
	})

	It("should accumulate points per user", func() {
		balance, err := db.AddPoints("user-1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(balance).To(Equal(10))

		balance, err = db.AddPoints("user-1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(balance).To(Equal(20))

		other, err := db.Points("user-2")
		Expect(err).NotTo(HaveOccurred())
		Expect(other).To(Equal(0))
	})
})

var _ = Describe("BoltDB", func() {
	var (
		path string
		db   *BoltDB
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "catalog.db")

		var err error
		db, err = NewBoltDB(path)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		db.Close()
	})

	It("should seed the bundled catalog on first open", func() {
		shops, err := db.ListShops()
		Expect(err).NotTo(HaveOccurred())
		Expect(shops).To(HaveLen(3))
		Expect(shops[0].ID).To(Equal("s1"))

		items, err := db.ListItems()
		Expect(err).NotTo(HaveOccurred())
		Expect(items).NotTo(BeEmpty())

		prices, err := db.PricesForItem("i1")
		Expect(err).NotTo(HaveOccurred())
		Expect(prices).To(HaveLen(3))
	})

	It("should persist saved prices across reopen", func() {
		price := &Price{ID: "p100", ItemID: "i5", ShopID: "s1", Price: 60, StockStatus: StockAvailable, UpdatedAt: time.Now().UTC()}
		Expect(db.SavePrice(price)).To(Succeed())
		Expect(db.Close()).To(Succeed())

		reopened, err := NewBoltDB(path)
		Expect(err).NotTo(HaveOccurred())
		db = reopened

		prices, err := db.PricesForItem("i5")
		Expect(err).NotTo(HaveOccurred())
		Expect(prices).To(HaveLen(1))
		Expect(prices[0].Price).To(Equal(60.0))
	})

	It("should not reseed an already-populated database", func() {
		Expect(db.Close()).To(Succeed())

		reopened, err := NewBoltDB(path)
		Expect(err).NotTo(HaveOccurred())
		db = reopened

		shops, err := db.ListShops()
		Expect(err).NotTo(HaveOccurred())
		Expect(shops).To(HaveLen(3))
	})

	It("should accumulate points per user", func() {
		balance, err := db.AddPoints("user-1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(balance).To(Equal(10))

		balance, err = db.AddPoints("user-1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(balance).To(Equal(20))

		stored, err := db.Points("user-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(stored).To(Equal(20))
	})
})
