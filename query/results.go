package query

import (
	"context"
	"net/url"

	"devcamper-backend/apperror"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the part of *mongo.Collection a list query needs.
type Collection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination only carries the neighbours that exist.
type Pagination struct {
	Prev *PageRef `json:"prev,omitempty"`
	Next *PageRef `json:"next,omitempty"`
}

// Result is the list envelope returned to clients.
type Result struct {
	Success    bool       `json:"success"`
	Count      int        `json:"count"`
	Pagination Pagination `json:"pagination"`
	Data       []bson.M   `json:"data"`
}

// Paginate computes the prev/next descriptors for a page of a result set of size total.
func Paginate(page, limit int, total int64) Pagination {
	var p Pagination
	start := int64(page-1) * int64(limit)
	end := int64(page) * int64(limit)
	if start > 0 {
		p.Prev = &PageRef{Page: page - 1, Limit: limit}
	}
	if end < total {
		p.Next = &PageRef{Page: page + 1, Limit: limit}
	}
	return p
}

// Lister runs a list query from request parameters.
type Lister interface {
	List(ctx context.Context, values url.Values) (*Result, error)
}

// Resource binds a collection to the fields clients may query and the
// references expanded in every list response.
type Resource struct {
	Collection Collection
	Schema     Schema
	Populate   []Populate
	Hidden     []string
}

// List parses values and runs the resulting query.
func (r Resource) List(ctx context.Context, values url.Values) (*Result, error) {
	spec, err := Parse(values, r.Schema)
	if err != nil {
		return nil, err
	}
	spec.Exclude = r.Hidden
	spec.Select = without(spec.Select, r.Hidden)
	return Run(ctx, r.Collection, spec, r.Populate...)
}

// Run executes spec against coll: one count with the same filter, then one
// aggregate for the requested page.
func Run(ctx context.Context, coll Collection, spec *Spec, populate ...Populate) (*Result, error) {
	total, err := coll.CountDocuments(ctx, spec.Filter.Bson())
	if err != nil {
		return nil, apperror.FromMongo(err, "Resource")
	}

	cursor, err := coll.Aggregate(ctx, Pipeline(spec, populate...))
	if err != nil {
		return nil, apperror.FromMongo(err, "Resource")
	}
	defer cursor.Close(ctx)

	data := make([]bson.M, 0)
	if err := cursor.All(ctx, &data); err != nil {
		return nil, apperror.FromMongo(err, "Resource")
	}

	return &Result{
		Success:    true,
		Count:      len(data),
		Pagination: Paginate(spec.Page, spec.Limit, total),
		Data:       data,
	}, nil
}

func without(fields, drop []string) []string {
	if len(fields) == 0 || len(drop) == 0 {
		return fields
	}
	out := fields[:0:0]
	for _, f := range fields {
		hidden := false
		for _, d := range drop {
			if f == d {
				hidden = true
				break
			}
		}
		if !hidden {
			out = append(out, f)
		}
	}
	return out
}
