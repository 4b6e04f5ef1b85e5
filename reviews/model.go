package reviews

import (
	"time"

	"devcamper-backend/bootcamps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title     string             `bson:"title" json:"title"`
	Text      string             `bson:"text" json:"text"`
	Rating    int                `bson:"rating" json:"rating"`
	Bootcamp  primitive.ObjectID `bson:"bootcamp" json:"bootcamp"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type ReviewDetail struct {
	*Review
	Bootcamp *bootcamps.Summary `json:"bootcamp"`
}

type CreateReviewRequest struct {
	Title  string `json:"title" binding:"required,max=100"`
	Text   string `json:"text" binding:"required"`
	Rating int    `json:"rating" binding:"required,min=1,max=10"`
}

type UpdateReviewRequest struct {
	Title  *string `json:"title" binding:"omitempty,min=1,max=100"`
	Text   *string `json:"text" binding:"omitempty,min=1"`
	Rating *int    `json:"rating" binding:"omitempty,min=1,max=10"`
}

type ReviewResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type ReviewListResponse struct {
	Success bool     `json:"success"`
	Count   int      `json:"count"`
	Data    []Review `json:"data"`
}
