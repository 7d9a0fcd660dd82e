package redisx

import "time"

const (
	// Versi stats per tenant: stats:ver:{tenant_id} -> counter, bumped on every new order
	KeyStatsVersion = "stats:ver:%s"

	// Cache hasil stats: stats:{tenant_id}:{version}:{kind}:{params} -> JSON
	KeyStatsEntry = "stats:%s:%d:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatsCache = 30 * time.Second
	TTLDedup      = 48 * time.Hour
)
