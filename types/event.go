package types

import "time"

// EventType names a product lifecycle or ledger change.
type EventType string

const (
	EventProductSubmitted EventType = "product.submitted"
	EventStatusChanged    EventType = "product.status_changed"
	EventProductUpdated   EventType = "product.updated"
	EventProductDeleted   EventType = "product.deleted"
	EventProductReported  EventType = "product.reported"
	EventProductVoted     EventType = "product.voted"
	EventProductUnvoted   EventType = "product.unvoted"
	EventReviewPosted     EventType = "review.posted"
)

// Event is a change notification. Delivery is best effort.
type Event struct {
	Type      EventType `json:"type"`
	ProductID string    `json:"productId,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Status    string    `json:"status,omitempty"`
	VoteCount *int      `json:"voteCount,omitempty"`
	At        time.Time `json:"at"`
}

// Stats summarizes site content for the admin dashboard.
type Stats struct {
	Products         int `json:"products"`
	PendingProducts  int `json:"pendingProducts"`
	AcceptedProducts int `json:"acceptedProducts"`
	RejectedProducts int `json:"rejectedProducts"`
	ReportedProducts int `json:"reportedProducts"`
	Users            int `json:"users"`
	Reviews          int `json:"reviews"`
}
