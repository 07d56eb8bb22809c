// Package remote is the HTTP client shared by the source and destination adapters.
//
// It owns the transport policy of every remote call: a fixed request timeout, request pacing
// with a token bucket, exponential backoff for transport failures and gateway errors, and
// Retry-After handling for throttled responses. Responses are classified into the error
// taxonomy of core/domain so that adapters and the engine never inspect status codes:
//
//   - 401 and 403 become domain.ErrAuthentication and are never retried.
//   - 404 becomes domain.ErrNotFound.
//   - 429 is retried after the server hint, or after RateLimitDelay.
//   - 502, 503, 504 and transport errors are retried with backoff.
//   - Other 4xx responses become *domain.ValidationError.
//   - Exhausted retries become *domain.RemoteCallError wrapping the last cause.
package remote
