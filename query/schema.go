package query

import (
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldKind decides how a raw query-string value is coerced before it reaches the store.
type FieldKind int

const (
	String FieldKind = iota
	Number
	Bool
	Date
	ObjectID
)

// Schema lists the document paths a caller may filter, sort or select on.
// Anything else in a query string is rejected.
type Schema map[string]FieldKind

func (s Schema) kind(field string) (FieldKind, bool) {
	if field == "_id" {
		return ObjectID, true
	}
	k, ok := s[field]
	return k, ok
}

func coerce(kind FieldKind, raw string) (any, error) {
	switch kind {
	case String:
		return raw, nil
	case Number:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return n, nil
	case Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return b, nil
	case Date:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%q is not a date", raw)
	case ObjectID:
		oid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not an id", raw)
		}
		return oid, nil
	default:
		return nil, fmt.Errorf("unsupported field kind %d", kind)
	}
}
