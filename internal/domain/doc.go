// Package domain holds the core model types and the repository interfaces
// implemented by the persistence adapters. It has no knowledge of HTTP,
// Postgres, or the Graph API.
package domain
