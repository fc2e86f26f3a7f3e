package redisx

import "time"

const (
	// Cached product payload: catalog:product:{slug}
	KeyProductCache = "catalog:product:%s"

	// Cached order status: order_status:{order_id} -> {"status":"...","payment_status":"..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{id} (id = gateway event id or kafka event_id)
	KeyDedup = "dedup:%s:%s"

	// Confirmation receipt written by the fulfillment worker: receipt:{order_id}
	KeyReceipt = "receipt:%s"
)

var (
	TTLProductCache = 2 * time.Minute
	TTLStatusCache  = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
	TTLReceipt      = 7 * 24 * time.Hour
)
