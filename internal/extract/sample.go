package extract

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"salesetl/internal/dataset"
)

var sampleCategories = []string{"Electronics", "Clothing", "Home & Kitchen", "Books", "Toys"}

var sampleProducts = map[string][]string{
	"Electronics":    {"Smartphone", "Laptop", "Headphones", "Tablet", "Smart Watch"},
	"Clothing":       {"T-shirt", "Jeans", "Dress", "Jacket", "Socks"},
	"Home & Kitchen": {"Blender", "Coffee Maker", "Toaster", "Cookware Set", "Knife Set"},
	"Books":          {"Fiction Novel", "Cookbook", "Biography", "Self-Help Book", "Children Book"},
	"Toys":           {"Action Figure", "Board Game", "Puzzle", "Doll", "Building Blocks"},
}

var sampleSegments = []string{"New", "Regular", "VIP", "Inactive", "Wholesale"}

// SampleOrders generates deterministic demo order data for a source: 120
// orders spread over the 90 days before end. The same (source, end) pair
// always yields the same table, which keeps demo runs and tests stable.
func SampleOrders(source string, end time.Time) *dataset.Table {
	if end.IsZero() {
		end = time.Now()
	}
	end = end.Truncate(24 * time.Hour)

	h := fnv.New64a()
	h.Write([]byte(source))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	t := dataset.New(OrderColumns...)
	orderID := 10000
	for i := 0; i < 120; i++ {
		category := sampleCategories[rng.Intn(len(sampleCategories))]
		products := sampleProducts[category]
		t.Append(dataset.Row{
			"order_id":         fmt.Sprintf("%s-%d", source, orderID),
			"order_date":       end.AddDate(0, 0, -rng.Intn(90)),
			"customer_id":      fmt.Sprintf("C%04d", 1000+rng.Intn(9000)),
			"customer_segment": sampleSegments[rng.Intn(len(sampleSegments))],
			"product_category": category,
			"product_name":     products[rng.Intn(len(products))],
			"quantity":         1 + rng.Intn(5),
			"unit_price":       float64(5+rng.Intn(495)) + 0.99,
			"discount":         float64(rng.Intn(4)) * 0.05,
		})
		orderID++
	}
	return t
}
