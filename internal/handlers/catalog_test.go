package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoteflow/webhookd/internal/webhook"
)

func TestProductUpsert(t *testing.T) {
	st := newFakeStore()
	set := newTestSet(st)

	body := `{"id": 42, "title": "Widget", "vendor": "Acme", "product_type": "tools", "status": "active"}`
	o := set.ProductUpsert(context.Background(), delivery(webhook.TopicProductsCreate, body))

	require.True(t, o.Success, "outcome: %+v", o)
	row := st.rows("products")["42"]
	require.NotNil(t, row, "one upsert keyed by external id 42")
	assert.Equal(t, "Widget", row["title"])
	assert.Equal(t, "acme.example-platform.com", row["shop_domain"])
}

func TestProductUpsert_Idempotent(t *testing.T) {
	st := newFakeStore()
	set := newTestSet(st)

	body := `{"id": 42, "title": "Widget"}`
	d := delivery(webhook.TopicProductsCreate, body)
	require.True(t, set.ProductUpsert(context.Background(), d).Success)
	require.True(t, set.ProductUpsert(context.Background(), d).Success)

	assert.Len(t, st.rows("products"), 1, "re-processing must not duplicate rows")
	assert.Equal(t, "Widget", st.rows("products")["42"]["title"])
}

func TestProductDelete_SoftDelete(t *testing.T) {
	st := newFakeStore()
	st.seed("products", "42", map[string]any{"external_id": "42", "title": "Widget", "status": "active"})
	set := newTestSet(st)

	o := set.ProductDelete(context.Background(), delivery(webhook.TopicProductsDelete, `{"id": 42}`))

	require.True(t, o.Success)
	row := st.rows("products")["42"]
	require.NotNil(t, row, "delete must never remove the row")
	assert.Equal(t, "deleted", row["status"])
	assert.NotEmpty(t, row["deleted_at"])
	assert.Equal(t, "Widget", row["title"], "existing fields survive the soft delete")
}

func TestProductUpsert_Failures(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		storeErr      error
		wantRetryable bool
	}{
		{name: "store failure is retryable", body: `{"id": 42}`, storeErr: errors.New("db locked"), wantRetryable: true},
		{name: "missing id is permanent", body: `{"title": "Widget"}`},
		{name: "wrong shape is permanent", body: `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			if tt.storeErr != nil {
				st.failOn["products"] = tt.storeErr
			}
			set := newTestSet(st)

			o := set.ProductUpsert(context.Background(), delivery(webhook.TopicProductsCreate, tt.body))

			require.False(t, o.Success)
			assert.Equal(t, tt.wantRetryable, o.Retryable)
			assert.NotEmpty(t, o.Err)
		})
	}
}
