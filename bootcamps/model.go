package bootcamps

import (
	"time"

	"devcamper-backend/geocoder"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultPhoto = "no-photo.jpg"

// Careers a bootcamp may advertise.
var Careers = []string{
	"Web Development",
	"Mobile Development",
	"UI/UX",
	"Data Science",
	"Business",
	"Other",
}

// Location is a GeoJSON point plus the address parts it was geocoded from.
type Location struct {
	Type             string    `bson:"type" json:"type"`
	Coordinates      []float64 `bson:"coordinates" json:"coordinates"`
	FormattedAddress string    `bson:"formattedAddress" json:"formattedAddress"`
	Street           string    `bson:"street" json:"street"`
	City             string    `bson:"city" json:"city"`
	State            string    `bson:"state" json:"state"`
	Zipcode          string    `bson:"zipcode" json:"zipcode"`
	Country          string    `bson:"country" json:"country"`
}

func locationFrom(loc *geocoder.Location) *Location {
	return &Location{
		Type:             "Point",
		Coordinates:      []float64{loc.Lng, loc.Lat},
		FormattedAddress: loc.FormattedAddress,
		Street:           loc.Street,
		City:             loc.City,
		State:            loc.State,
		Zipcode:          loc.Zipcode,
		Country:          loc.Country,
	}
}

type Bootcamp struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name          string             `bson:"name" json:"name"`
	Slug          string             `bson:"slug" json:"slug"`
	Description   string             `bson:"description" json:"description"`
	Website       string             `bson:"website,omitempty" json:"website,omitempty"`
	Phone         string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Email         string             `bson:"email,omitempty" json:"email,omitempty"`
	Location      *Location          `bson:"location,omitempty" json:"location,omitempty"`
	Careers       []string           `bson:"careers" json:"careers"`
	AverageRating *float64           `bson:"averageRating,omitempty" json:"averageRating,omitempty"`
	AverageCost   *float64           `bson:"averageCost,omitempty" json:"averageCost,omitempty"`
	Photo         string             `bson:"photo" json:"photo"`
	Housing       bool               `bson:"housing" json:"housing"`
	JobAssistance bool               `bson:"jobAssistance" json:"jobAssistance"`
	JobGuarantee  bool               `bson:"jobGuarantee" json:"jobGuarantee"`
	AcceptGi      bool               `bson:"acceptGi" json:"acceptGi"`
	User          primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

type CreateBootcampRequest struct {
	Name          string   `json:"name" binding:"required,max=50"`
	Description   string   `json:"description" binding:"required,max=500"`
	Website       string   `json:"website" binding:"omitempty,url"`
	Phone         string   `json:"phone" binding:"omitempty,max=20"`
	Email         string   `json:"email" binding:"omitempty,email"`
	Address       string   `json:"address" binding:"required"`
	Careers       []string `json:"careers" binding:"required,min=1,dive,career"`
	Housing       bool     `json:"housing"`
	JobAssistance bool     `json:"jobAssistance"`
	JobGuarantee  bool     `json:"jobGuarantee"`
	AcceptGi      bool     `json:"acceptGi"`
}

// UpdateBootcampRequest leaves nil fields untouched.
type UpdateBootcampRequest struct {
	Name          *string   `json:"name" binding:"omitempty,min=1,max=50"`
	Description   *string   `json:"description" binding:"omitempty,min=1,max=500"`
	Website       *string   `json:"website" binding:"omitempty,url"`
	Phone         *string   `json:"phone" binding:"omitempty,max=20"`
	Email         *string   `json:"email" binding:"omitempty,email"`
	Address       *string   `json:"address" binding:"omitempty,min=1"`
	Careers       *[]string `json:"careers" binding:"omitempty,min=1,dive,career"`
	Housing       *bool     `json:"housing"`
	JobAssistance *bool     `json:"jobAssistance"`
	JobGuarantee  *bool     `json:"jobGuarantee"`
	AcceptGi      *bool     `json:"acceptGi"`
}

// Changes is an update resolved against derived fields; nil fields are left alone.
type Changes struct {
	Name          *string
	Slug          *string
	Description   *string
	Website       *string
	Phone         *string
	Email         *string
	Location      *Location
	Careers       *[]string
	Housing       *bool
	JobAssistance *bool
	JobGuarantee  *bool
	AcceptGi      *bool
}

type BootcampResponse struct {
	Success bool      `json:"success"`
	Data    *Bootcamp `json:"data"`
}

type BootcampListResponse struct {
	Success bool       `json:"success"`
	Count   int        `json:"count"`
	Data    []Bootcamp `json:"data"`
}
