package domain

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrPageNotFound         = errors.New("page not found")
	ErrPostNotFound         = errors.New("post not found")
	ErrNotificationNotFound = errors.New("notification not found")
)
