package webhook

// Topic identifies one commerce-platform event family.
type Topic string

const (
	TopicAppUninstalled       Topic = "app/uninstalled"
	TopicAppScopesUpdate      Topic = "app/scopes_update"
	TopicProductsCreate       Topic = "products/create"
	TopicProductsUpdate       Topic = "products/update"
	TopicProductsDelete       Topic = "products/delete"
	TopicOrdersCreate         Topic = "orders/create"
	TopicOrdersUpdated        Topic = "orders/updated"
	TopicOrdersCancelled      Topic = "orders/cancelled"
	TopicCustomersCreate      Topic = "customers/create"
	TopicCustomersUpdate      Topic = "customers/update"
	TopicCustomersDelete      Topic = "customers/delete"
	TopicShopUpdate           Topic = "shop/update"
	TopicBulkOperationsFinish Topic = "bulk_operations/finish"

	// TopicUnknown is the explicit sentinel for a missing or unrecognized
	// topic header. It is representable and routable (to the acknowledge-
	// and-skip fallback), never nil-like.
	TopicUnknown Topic = "unknown"
)

var knownTopics = map[Topic]bool{
	TopicAppUninstalled:       true,
	TopicAppScopesUpdate:      true,
	TopicProductsCreate:       true,
	TopicProductsUpdate:       true,
	TopicProductsDelete:       true,
	TopicOrdersCreate:         true,
	TopicOrdersUpdated:        true,
	TopicOrdersCancelled:      true,
	TopicCustomersCreate:      true,
	TopicCustomersUpdate:      true,
	TopicCustomersDelete:      true,
	TopicShopUpdate:           true,
	TopicBulkOperationsFinish: true,
}

// ParseTopic maps a raw header value onto the closed topic set. Anything
// outside the set (including the empty string) becomes TopicUnknown.
func ParseTopic(raw string) Topic {
	t := Topic(raw)
	if knownTopics[t] {
		return t
	}
	return TopicUnknown
}

func (t Topic) String() string { return string(t) }

// Known reports whether t is part of the supported topic set.
func (t Topic) Known() bool { return knownTopics[t] }
