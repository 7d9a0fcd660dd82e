package orders

const (
	TopicOrderCreated = "order.created"
)

// Partition key = tenant id, so one tenant's events stay ordered and the
// projector sees them in creation order.
func PartitionKey(tenantID string) []byte { return []byte(tenantID) }
