package types

import "time"

// ProductStatus is the moderation state of a product.
type ProductStatus string

const (
	// StatusPending is assigned on submission and hides the product from public listings.
	StatusPending ProductStatus = "pending"
	// StatusAccepted makes the product publicly visible.
	StatusAccepted ProductStatus = "accepted"
	// StatusRejected hides the product from public listings.
	StatusRejected ProductStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Product represents a submission on the listing site.
// It carries the owner, moderation state, and voting ledger.
type Product struct {
	// ID is the opaque unique identifier assigned at creation.
	ID string `json:"id" db:"id" bson:"_id"`

	// Name is the product's display name.
	Name string `json:"name" db:"name" bson:"name"`

	// Description is a free-form product description.
	Description string `json:"description" db:"description" bson:"description"`

	// Image is the URL of the product image.
	Image string `json:"image" db:"image" bson:"image"`

	// ExternalLink points to the product's own website.
	ExternalLink string `json:"externalLink" db:"external_link" bson:"externalLink"`

	// Tags are free-form labels used for case-insensitive substring search.
	Tags []string `json:"tags" db:"tags" bson:"tags"`

	// OwnerEmail identifies the submitter. It never changes after creation.
	OwnerEmail string `json:"ownerEmail" db:"owner_email" bson:"ownerEmail"`

	// OwnerName and OwnerImage are display copies of the submitter profile.
	OwnerName  string `json:"ownerName" db:"owner_name" bson:"ownerName"`
	OwnerImage string `json:"ownerImage" db:"owner_image" bson:"ownerImage"`

	// Status is the moderation state. Only moderation actions change it.
	Status ProductStatus `json:"status" db:"status" bson:"status"`

	// Votes is the set of voter identities. It is never serialized to clients.
	Votes []string `json:"-" db:"votes" bson:"votes"`

	// VoteCount always equals len(Votes); both are updated in one atomic write.
	VoteCount int `json:"voteCount" db:"vote_count" bson:"voteCount"`

	// HasVoted tells the requesting user whether they are in Votes. It is
	// computed per response and not stored.
	HasVoted bool `json:"hasVoted" db:"-" bson:"-"`

	// Reported is set by a report action and is never cleared automatically.
	Reported bool `json:"reported" db:"reported" bson:"reported"`

	// Timestamp is the creation time and the default sort key.
	Timestamp time.Time `json:"timestamp" db:"created_at" bson:"timestamp"`
}

// HasVoter reports whether voter is present in the votes set.
func (p Product) HasVoter(voter string) bool {
	for _, v := range p.Votes {
		if v == voter {
			return true
		}
	}
	return false
}

// ProductSort selects the ordering of product listings.
type ProductSort string

const (
	SortNewest ProductSort = "newest"
	SortVotes  ProductSort = "votes"
)

// ProductFilter narrows a product listing.
type ProductFilter struct {
	// Search matches any tag case-insensitively as a substring. Empty matches all.
	Search string

	// PublicOnly excludes pending and rejected products.
	PublicOnly bool

	// Reported restricts the listing to reported products.
	Reported bool

	// OwnerEmail restricts the listing to one submitter when non-empty.
	OwnerEmail string

	Sort ProductSort
}

// ProductUpdate holds owner-editable fields. Nil fields are left unchanged.
type ProductUpdate struct {
	Name         *string
	Description  *string
	Image        *string
	ExternalLink *string
	Tags         []string
}
