// Package webhook turns Meta webhook deliveries into typed domain actions.
//
// The Normalizer is the core: it maps one (page ID, change) pair to a
// sequence of Actions (review/post upserts, notifications) without doing any
// I/O beyond the page and user lookups. The Handler is the HTTP shell around
// it: endpoint verification, HMAC signature checks, delivery dedup, and
// per-change error containment across a batch.
package webhook
