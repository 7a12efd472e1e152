// Package meta is the Meta Graph API client: pages, posts, reviews,
// insights, publishing, and OAuth token exchange. All calls go through a
// shared client-side rate limiter and a circuit breaker, with retries for
// transient failures.
package meta
