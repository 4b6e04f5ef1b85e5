package query

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Populate expands a reference into the referenced document(s) under Path.
// Many=false unwraps the lookup into a single embedded document.
type Populate struct {
	Path         string
	From         string
	LocalField   string
	ForeignField string
	Select       []string
	Many         bool
}

func (p Populate) stages() []bson.D {
	inner := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"$expr": bson.M{"$eq": bson.A{"$" + p.ForeignField, "$$ref"}},
		}}},
	}
	if len(p.Select) > 0 {
		inner = append(inner, bson.D{{Key: "$project", Value: projection(p.Select)}})
	}

	stages := []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: p.From},
			{Key: "let", Value: bson.M{"ref": "$" + p.LocalField}},
			{Key: "pipeline", Value: inner},
			{Key: "as", Value: p.Path},
		}}},
	}
	if !p.Many {
		stages = append(stages, bson.D{{Key: "$unwind", Value: bson.M{
			"path":                       "$" + p.Path,
			"preserveNullAndEmptyArrays": true,
		}}})
	}
	return stages
}

// Pipeline renders spec as aggregate stages: match, sort, page window, lookups, projection.
func Pipeline(spec *Spec, populate ...Populate) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: spec.Filter.Bson()}},
		{{Key: "$sort", Value: spec.Sort}},
		{{Key: "$skip", Value: spec.Skip()}},
		{{Key: "$limit", Value: int64(spec.Limit)}},
	}
	for _, p := range populate {
		pipeline = append(pipeline, p.stages()...)
	}

	if len(spec.Select) > 0 {
		fields := append([]string{}, spec.Select...)
		for _, p := range populate {
			fields = append(fields, p.Path)
		}
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: projection(fields)}})
	} else if len(spec.Exclude) > 0 {
		hidden := bson.M{}
		for _, f := range spec.Exclude {
			hidden[f] = 0
		}
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: hidden}})
	}
	return pipeline
}

func projection(fields []string) bson.M {
	out := bson.M{}
	for _, f := range fields {
		out[f] = 1
	}
	return out
}
