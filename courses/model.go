package courses

import (
	"time"

	"devcamper-backend/bootcamps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Course struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title                string             `bson:"title" json:"title"`
	Description          string             `bson:"description" json:"description"`
	Weeks                int                `bson:"weeks" json:"weeks"`
	Tuition              float64            `bson:"tuition" json:"tuition"`
	MinimumSkill         string             `bson:"minimumSkill" json:"minimumSkill"`
	ScholarshipAvailable bool               `bson:"scholarshipAvailable" json:"scholarshipAvailable"`
	Bootcamp             primitive.ObjectID `bson:"bootcamp" json:"bootcamp"`
	User                 primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
}

// CourseDetail replaces the bootcamp reference with its summary.
type CourseDetail struct {
	*Course
	Bootcamp *bootcamps.Summary `json:"bootcamp"`
}

type CreateCourseRequest struct {
	Title                string  `json:"title" binding:"required"`
	Description          string  `json:"description" binding:"required"`
	Weeks                int     `json:"weeks" binding:"required,min=1"`
	Tuition              float64 `json:"tuition" binding:"required,gt=0"`
	MinimumSkill         string  `json:"minimumSkill" binding:"required,oneof=beginner intermediate advanced"`
	ScholarshipAvailable bool    `json:"scholarshipAvailable"`
}

type UpdateCourseRequest struct {
	Title                *string  `json:"title" binding:"omitempty,min=1"`
	Description          *string  `json:"description" binding:"omitempty,min=1"`
	Weeks                *int     `json:"weeks" binding:"omitempty,min=1"`
	Tuition              *float64 `json:"tuition" binding:"omitempty,gte=0"`
	MinimumSkill         *string  `json:"minimumSkill" binding:"omitempty,oneof=beginner intermediate advanced"`
	ScholarshipAvailable *bool    `json:"scholarshipAvailable"`
}

type CourseResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type CourseListResponse struct {
	Success bool     `json:"success"`
	Count   int      `json:"count"`
	Data    []Course `json:"data"`
}
