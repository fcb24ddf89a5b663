// Package handlers implements the per-topic side-effect handlers. Every
// handler is idempotent under re-delivery: entity writes are upserts keyed by
// stable external ids, so replaying a delivery converges to the same stored
// state instead of duplicating rows.
//
// Handlers classify their own downstream errors — store failures are
// retryable, unusable payloads are permanent — and never retry internally;
// retrying belongs exclusively to the retry scheduler.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/quoteflow/webhookd/internal/store"
	"github.com/quoteflow/webhookd/internal/webhook"
)

// Set holds the dependencies shared by all topic handlers.
type Set struct {
	store  store.Contract
	logger *slog.Logger
}

// New creates the handler set on top of the durable store contract.
func New(st store.Contract, logger *slog.Logger) *Set {
	return &Set{store: st, logger: logger.With("component", "handlers")}
}

// Routes returns the full topic routing table. Deliberately aliased topics
// (order updates and cancellations) share one handler. The result is handed
// to webhook.NewRouter once at startup and read-only afterwards.
func (s *Set) Routes() map[webhook.Topic]webhook.HandlerFunc {
	return map[webhook.Topic]webhook.HandlerFunc{
		webhook.TopicAppUninstalled:       s.AppUninstalled,
		webhook.TopicAppScopesUpdate:      s.AppScopesUpdate,
		webhook.TopicProductsCreate:       s.ProductUpsert,
		webhook.TopicProductsUpdate:       s.ProductUpsert,
		webhook.TopicProductsDelete:       s.ProductDelete,
		webhook.TopicOrdersCreate:         s.OrderCreate,
		webhook.TopicOrdersUpdated:        s.OrderUpdate,
		webhook.TopicOrdersCancelled:      s.OrderUpdate,
		webhook.TopicCustomersCreate:      s.CustomerUpsert,
		webhook.TopicCustomersUpdate:      s.CustomerUpsert,
		webhook.TopicCustomersDelete:      s.CustomerDelete,
		webhook.TopicShopUpdate:           s.ShopUpdate,
		webhook.TopicBulkOperationsFinish: s.BulkOperationFinish,
	}
}

// decode unmarshals the raw payload into v. A payload the controller already
// validated as JSON but that does not fit the expected shape is a permanent
// condition; redelivering the same bytes cannot fix it.
func decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
