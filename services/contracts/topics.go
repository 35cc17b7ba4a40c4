package contracts

// Kafka topic names for the checkout saga. Every message is keyed by
// transaction id so all events of one saga land on one partition and are
// consumed in publish order.
const (
	TopicCheckoutInitiated = "checkout.initiated"
	TopicInventoryEvents   = "inventory.events"
	TopicInventoryRelease  = "inventory.release"
	TopicPaymentRequests   = "payment.requests"
	TopicPaymentEvents     = "payment.events"
	TopicOrderCompleted    = "order.completed"
	TopicCheckoutFailed    = "checkout.failed"
)
