package webhook

import (
	"fmt"
	"net/http"
	"time"
)

// Header names carried on every sender request.
const (
	HeaderTopic       = "Topic"
	HeaderShopDomain  = "Shop-Domain"
	HeaderWebhookID   = "Webhook-Id"
	HeaderTriggeredAt = "Triggered-At"
	HeaderSignature   = "Hmac-Sha256"
)

// Metadata holds the routing and identity fields extracted from request
// headers. Every field is defaulted so downstream code never branches on
// missing metadata.
type Metadata struct {
	Topic       Topic
	ShopDomain  string
	DeliveryID  string
	TriggeredAt time.Time
	Signature   string
}

// ExtractMetadata pulls routing metadata out of the request headers. It never
// fails: an absent delivery id gets a manual placeholder, an absent or
// unparseable timestamp defaults to now, and a malformed topic becomes the
// TopicUnknown sentinel.
func ExtractMetadata(h http.Header, now time.Time) Metadata {
	m := Metadata{
		Topic:       ParseTopic(h.Get(HeaderTopic)),
		ShopDomain:  h.Get(HeaderShopDomain),
		DeliveryID:  h.Get(HeaderWebhookID),
		TriggeredAt: now,
		Signature:   h.Get(HeaderSignature),
	}

	if m.DeliveryID == "" {
		m.DeliveryID = fmt.Sprintf("manual-%d", now.UnixNano())
	}
	if raw := h.Get(HeaderTriggeredAt); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			m.TriggeredAt = t
		}
	}
	return m
}
