// Package database provides PostgreSQL connectivity and repositories.
//
// Uses pgx for connection pooling. Repositories implement the domain
// interfaces: UserRepository, PageRepository, PostRepository,
// ReviewRepository, NotificationRepository, AnalyticsRepository.
package database
