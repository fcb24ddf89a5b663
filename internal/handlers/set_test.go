package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/quoteflow/webhookd/internal/webhook"
)

// fakeStore applies the narrow store contract in memory, so tests can assert
// the stored end state instead of just call sequences. Errors are injectable
// per table.
type fakeStore struct {
	// tables[table][keyValue] = fields (merged on upsert/update)
	tables map[string]map[string]map[string]any
	calls  []string
	failOn map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables: make(map[string]map[string]map[string]any),
		failOn: make(map[string]error),
	}
}

func (f *fakeStore) Upsert(_ context.Context, table, keyField string, keyValue any, fields map[string]any) error {
	f.calls = append(f.calls, fmt.Sprintf("upsert:%s:%v", table, keyValue))
	if err := f.failOn[table]; err != nil {
		return err
	}
	rows := f.rows(table)
	key := fmt.Sprint(keyValue)
	row, ok := rows[key]
	if !ok {
		row = map[string]any{keyField: keyValue}
		rows[key] = row
	}
	for k, v := range fields {
		row[k] = v
	}
	return nil
}

func (f *fakeStore) Update(_ context.Context, table, keyField string, keyValue any, fields map[string]any) error {
	f.calls = append(f.calls, fmt.Sprintf("update:%s:%v", table, keyValue))
	if err := f.failOn[table]; err != nil {
		return err
	}
	row, ok := f.rows(table)[fmt.Sprint(keyValue)]
	if !ok {
		return nil // missing row is a no-op, matching the real contract
	}
	_ = keyField
	for k, v := range fields {
		row[k] = v
	}
	return nil
}

func (f *fakeStore) rows(table string) map[string]map[string]any {
	if f.tables[table] == nil {
		f.tables[table] = make(map[string]map[string]any)
	}
	return f.tables[table]
}

func (f *fakeStore) seed(table, key string, fields map[string]any) {
	f.rows(table)[key] = fields
}

func newTestSet(st *fakeStore) *Set {
	return New(st, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func delivery(topic webhook.Topic, body string) *webhook.Delivery {
	return &webhook.Delivery{
		Topic:       topic,
		ShopDomain:  "acme.example-platform.com",
		DeliveryID:  "wh-test",
		ReceivedAt:  time.Now().UTC(),
		TriggeredAt: time.Now().UTC(),
		RawBody:     []byte(body),
	}
}
