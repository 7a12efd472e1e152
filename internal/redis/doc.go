// Package redis provides the Redis client plus the small stores built on it:
// webhook delivery dedup and cross-instance notification fan-out.
package redis
