package events

// Topic constants for cart domain events emitted by the storefront.
const (
	TopicItemAdded         = "cart.item_added"
	TopicItemRemoved       = "cart.item_removed"
	TopicQuantityIncreased = "cart.quantity_increased"
	TopicQuantityDecreased = "cart.quantity_decreased"
	TopicCartCleared       = "cart.cleared"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicItemAdded,
		TopicItemRemoved,
		TopicQuantityIncreased,
		TopicQuantityDecreased,
		TopicCartCleared,
	}
}
