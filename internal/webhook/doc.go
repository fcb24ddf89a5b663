// Package webhook implements the ingestion side of the commerce-platform
// event pipeline: a single authenticated POST endpoint that routes deliveries
// to idempotent handlers and guarantees at-least-once processing through a
// persisted retry queue.
//
// # Security Model
//
// - HMAC-SHA256 signatures over the exact raw body, base64-encoded, verified
//   with crypto/subtle (constant-time comparison)
// - Verification runs before any handler logic; failure is always a permanent
//   401 rejection and never enters the retry path
// - Body size limits enforced before verification
// - Request logging excludes payload content
//
// # Request Flow
//
//  1. POST /webhooks arrives with Topic, Shop-Domain, Webhook-Id,
//     Triggered-At and Hmac-Sha256 headers
//  2. Raw body read as bytes (signature depends on byte-exact content)
//  3. Signature verified (401 on mismatch), body parsed (400 on bad JSON)
//  4. Metadata extracted with defaults; a Delivery is built
//  5. The pipeline routes the topic, invokes the handler, writes one audit
//     record, and schedules a retry entry when the outcome is retryable
//  6. Response status steers the sender: 200 acknowledges everything the
//     internal retry queue now owns, so the sender never double-delivers
//
// # Retry Contract
//
// Exactly one retry mechanism exists: the persisted retry queue. Backoff is
// exponential from 5s, capped at 1h, with up to 1s of jitter. Handlers are
// idempotent upserts keyed by stable external ids, so concurrent or repeated
// deliveries of the same event converge to the same stored state.
package webhook
