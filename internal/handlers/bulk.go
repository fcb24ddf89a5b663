package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quoteflow/webhookd/internal/webhook"
)

type bulkOperationPayload struct {
	AdminGraphqlAPIID string      `json:"admin_graphql_api_id"`
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	CompletedAt       string      `json:"completed_at"`
}

// BulkOperationFinish records the terminal state of a platform bulk
// operation, keyed by the operation id.
func (s *Set) BulkOperationFinish(ctx context.Context, d *webhook.Delivery) webhook.Outcome {
	var p bulkOperationPayload
	if err := decode(d.RawBody, &p); err != nil {
		return webhook.PermanentFailure(err)
	}

	// The platform sends the operation id either as a plain id or as the
	// GraphQL gid; prefer the plain id when both are present.
	opID := p.ID.String()
	if opID == "" {
		opID = p.AdminGraphqlAPIID
	}
	if opID == "" {
		return webhook.PermanentFailure(fmt.Errorf("bulk operation payload without id"))
	}

	completed := p.CompletedAt
	if completed == "" {
		completed = time.Now().UTC().Format(time.RFC3339)
	}
	err := s.store.Upsert(ctx, "bulk_operations", "external_id", opID, map[string]any{
		"shop_domain":  d.ShopDomain,
		"status":       p.Status,
		"completed_at": completed,
	})
	if err != nil {
		return webhook.TransientFailure(err)
	}
	return webhook.Handled(map[string]any{"bulk_operation_id": opID, "status": p.Status})
}
