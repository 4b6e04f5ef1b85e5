package query

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Op is a comparison a client may request with the field[op]=value syntax.
type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// storeOperators is the complete allow-list. An Op missing here never reaches the store.
var storeOperators = map[Op]string{
	OpEq:  "$eq",
	OpGt:  "$gt",
	OpGte: "$gte",
	OpLt:  "$lt",
	OpLte: "$lte",
	OpIn:  "$in",
}

func (o Op) valid() bool {
	_, ok := storeOperators[o]
	return ok
}

// Condition is one typed predicate. Value is already coerced to the field's kind;
// for OpIn it is a []any.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of conditions.
type Filter []Condition

// Bson renders the filter for the driver. Conditions on the same field merge into
// one operator document.
func (f Filter) Bson() bson.M {
	out := bson.M{}
	for _, cond := range f {
		op, ok := storeOperators[cond.Op]
		if !ok {
			continue
		}
		ops, ok := out[cond.Field].(bson.M)
		if !ok {
			ops = bson.M{}
			out[cond.Field] = ops
		}
		ops[op] = cond.Value
	}
	return out
}
