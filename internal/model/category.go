package model

import "time"

// Category represents a user-curated spending category.
type Category struct {
	CreatedAt time.Time
	UserID    string
	Name      string
	ID        int64
}

// CategoryKeyword binds a folded keyword to the category it selects.
// Keywords are unique per user.
type CategoryKeyword struct {
	CreatedAt  time.Time
	UserID     string
	Keyword    string
	ID         int64
	CategoryID int64
}
