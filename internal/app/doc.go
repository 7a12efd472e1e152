// Package app holds the application service: it applies normalized webhook
// actions, mirrors pages, posts and reviews from the Graph API, and manages
// the post publishing lifecycle.
package app
