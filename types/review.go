package types

import "time"

// Review is an append-only feedback record attached to a product.
type Review struct {
	ID            string    `json:"id" db:"id" bson:"_id"`
	ProductID     string    `json:"productId" db:"product_id" bson:"productId"`
	ReviewerEmail string    `json:"reviewerEmail" db:"reviewer_email" bson:"reviewerEmail"`
	ReviewerName  string    `json:"reviewerName" db:"reviewer_name" bson:"reviewerName"`
	ReviewerImage string    `json:"reviewerImage" db:"reviewer_image" bson:"reviewerImage"`
	Rating        int       `json:"rating" db:"rating" bson:"rating"`
	Description   string    `json:"description" db:"description" bson:"description"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}
