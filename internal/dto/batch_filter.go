package dto

import "time"

// BatchFilter narrows the selection history listing.
type BatchFilter struct {
	After  time.Time
	Before time.Time
	Limit  int
	Offset int
}
