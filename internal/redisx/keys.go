package redisx

import "time"

const (
	// Session record written by the auth service: session:{token} -> {"user_id": "...", "role": "..."}
	KeySession = "session:%s"

	// Cached public product listing (JSON array).
	KeyProductList = "products:all"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Low-stock flag per product: stock_low:{product_id} -> current stock
	KeyLowStock = "stock_low:%s"
)

var (
	TTLSession     = 24 * time.Hour
	TTLProductList = 1 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLLowStock    = 12 * time.Hour
)
