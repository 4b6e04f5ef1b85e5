// Package bootcampstest provides an in-memory bootcamps.Store.
package bootcampstest

import (
	"context"
	"math"
	"sync"
	"time"

	"devcamper-backend/apperror"
	"devcamper-backend/bootcamps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu        sync.Mutex
	bootcamps map[primitive.ObjectID]*bootcamps.Bootcamp
}

func NewStore() *Store {
	return &Store{bootcamps: map[primitive.ObjectID]*bootcamps.Bootcamp{}}
}

func clone(b *bootcamps.Bootcamp) *bootcamps.Bootcamp {
	out := *b
	out.Careers = append([]string(nil), b.Careers...)
	if b.Location != nil {
		loc := *b.Location
		loc.Coordinates = append([]float64(nil), b.Location.Coordinates...)
		out.Location = &loc
	}
	if b.AverageCost != nil {
		v := *b.AverageCost
		out.AverageCost = &v
	}
	if b.AverageRating != nil {
		v := *b.AverageRating
		out.AverageRating = &v
	}
	return &out
}

func (s *Store) Create(_ context.Context, b *bootcamps.Bootcamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.bootcamps {
		if other.Name == b.Name || other.Slug == b.Slug {
			return apperror.NewDuplicateKey("Duplicate field value entered", nil)
		}
	}
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	s.bootcamps[b.ID] = clone(b)
	return nil
}

func (s *Store) FindByID(_ context.Context, id primitive.ObjectID) (*bootcamps.Bootcamp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bootcamps[id]
	if !ok {
		return nil, apperror.NewNotFound("Bootcamp not found")
	}
	return clone(b), nil
}

func (s *Store) CountByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, b := range s.bootcamps {
		if b.User == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) Update(_ context.Context, id primitive.ObjectID, c bootcamps.Changes) (*bootcamps.Bootcamp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bootcamps[id]
	if !ok {
		return nil, apperror.NewNotFound("Bootcamp not found")
	}
	if c.Name != nil {
		b.Name = *c.Name
	}
	if c.Slug != nil {
		b.Slug = *c.Slug
	}
	if c.Description != nil {
		b.Description = *c.Description
	}
	if c.Website != nil {
		b.Website = *c.Website
	}
	if c.Phone != nil {
		b.Phone = *c.Phone
	}
	if c.Email != nil {
		b.Email = *c.Email
	}
	if c.Location != nil {
		b.Location = c.Location
	}
	if c.Careers != nil {
		b.Careers = *c.Careers
	}
	if c.Housing != nil {
		b.Housing = *c.Housing
	}
	if c.JobAssistance != nil {
		b.JobAssistance = *c.JobAssistance
	}
	if c.JobGuarantee != nil {
		b.JobGuarantee = *c.JobGuarantee
	}
	if c.AcceptGi != nil {
		b.AcceptGi = *c.AcceptGi
	}
	return clone(b), nil
}

func (s *Store) SetPhoto(_ context.Context, id primitive.ObjectID, photo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bootcamps[id]
	if !ok {
		return apperror.NewNotFound("Bootcamp not found")
	}
	b.Photo = photo
	return nil
}

func (s *Store) SetAggregate(_ context.Context, id primitive.ObjectID, field string, value *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bootcamps[id]
	if !ok {
		return nil
	}
	var v *float64
	if value != nil {
		x := *value
		v = &x
	}
	switch field {
	case "averageCost":
		b.AverageCost = v
	case "averageRating":
		b.AverageRating = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bootcamps[id]; !ok {
		return apperror.NewNotFound("Bootcamp not found")
	}
	delete(s.bootcamps, id)
	return nil
}

// WithinRadius uses the haversine distance, which is what $centerSphere evaluates.
func (s *Store) WithinRadius(_ context.Context, lng, lat, distanceKm float64) ([]bootcamps.Bootcamp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]bootcamps.Bootcamp, 0)
	for _, b := range s.bootcamps {
		if b.Location == nil || len(b.Location.Coordinates) != 2 {
			continue
		}
		if haversineKm(lng, lat, b.Location.Coordinates[0], b.Location.Coordinates[1]) <= distanceKm {
			out = append(out, *clone(b))
		}
	}
	return out, nil
}

func haversineKm(lng1, lat1, lng2, lat2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * bootcamps.EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// Get returns the stored record without going through the Store interface.
func (s *Store) Get(id primitive.ObjectID) *bootcamps.Bootcamp {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.bootcamps[id]; ok {
		return clone(b)
	}
	return nil
}

var _ bootcamps.Store = (*Store)(nil)
