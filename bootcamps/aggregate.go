package bootcamps

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FieldAverageCost   = "averageCost"
	FieldAverageRating = "averageRating"
)

// RoundCost rounds an average tuition up to one decimal.
func RoundCost(avg float64) float64 {
	return math.Ceil(avg*10) / 10
}

// RoundRating rounds an average rating to two decimals.
func RoundRating(avg float64) float64 {
	return math.Round(avg*100) / 100
}

// Summary is the part of a bootcamp embedded in child resources.
type Summary struct {
	ID          primitive.ObjectID `json:"_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
}

func (b *Bootcamp) Summary() *Summary {
	return &Summary{ID: b.ID, Name: b.Name, Description: b.Description}
}

// Recompute stores round(avg) under field, or unsets it when avg is nil.
// Failures are logged: the child write that triggered it already succeeded.
func Recompute(ctx context.Context, store Store, logger *zerolog.Logger, bootcampID primitive.ObjectID, field string, avg *float64, round func(float64) float64) {
	var value *float64
	if avg != nil {
		v := round(*avg)
		value = &v
	}
	if err := store.SetAggregate(ctx, bootcampID, field, value); err != nil {
		logger.Error().Err(err).Str("bootcamp_id", bootcampID.Hex()).Str("field", field).Msg("failed to recompute aggregate")
		return
	}
	logger.Debug().Str("bootcamp_id", bootcampID.Hex()).Str("field", field).Msg("recomputed aggregate")
}
