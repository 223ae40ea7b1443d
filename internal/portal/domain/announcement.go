package domain

import "time"

type Announcement struct {
	ID          string
	Title       string
	Description string
	Sector      string
	TargetRole  string
	PublishedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReadReceipt links a user to an announcement they have read. The timestamp
// is set once at creation and never updated.
type ReadReceipt struct {
	ID             string
	UserID         string
	AnnouncementID string
	ReadAt         time.Time
}
