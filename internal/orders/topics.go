package orders

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
	TopicStockLow           = "stock.low"
)

// Partition key = order_id so all events for one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
