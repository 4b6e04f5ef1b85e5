package query

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"devcamper-backend/apperror"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	DefaultPage  = 1
	DefaultLimit = 25
	// MaxLimit caps the page size; larger requests are clamped to it.
	MaxLimit = 100
	// MaxPage keeps the page window inside int64; anything beyond is an empty page.
	MaxPage = 1<<31 - 1
)

// reserved keys control the query shape and are never treated as filters.
var reserved = map[string]bool{
	"select": true,
	"sort":   true,
	"page":   true,
	"limit":  true,
}

var keyPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*(?:\.[A-Za-z][A-Za-z0-9_]*)*)(?:\[([^\[\]]+)\])?$`)

// Spec is the request-scoped description of one list query.
type Spec struct {
	Filter Filter
	Select []string
	// Exclude is projected away when Select is empty.
	Exclude []string
	Sort    bson.D
	Page    int
	Limit   int
}

// Skip is the number of documents before the requested page.
func (s *Spec) Skip() int64 {
	return int64(s.Page-1) * int64(s.Limit)
}

// Parse builds a Spec from raw query parameters. Any key, operator or value the
// schema does not allow is a BadRequest.
func Parse(values url.Values, schema Schema) (*Spec, error) {
	spec := &Spec{
		Page:  boundedInt(values.Get("page"), DefaultPage, MaxPage),
		Limit: boundedInt(values.Get("limit"), DefaultLimit, MaxLimit),
	}

	filter, err := parseFilter(values, schema)
	if err != nil {
		return nil, err
	}
	spec.Filter = filter

	if raw := values.Get("select"); raw != "" {
		fields, err := fieldList(raw, schema, "select")
		if err != nil {
			return nil, err
		}
		spec.Select = fields
	}

	sortDoc, err := parseSort(values.Get("sort"), schema)
	if err != nil {
		return nil, err
	}
	spec.Sort = sortDoc

	return spec, nil
}

func parseFilter(values url.Values, schema Schema) (Filter, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		if !reserved[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var filter Filter
	for _, key := range keys {
		m := keyPattern.FindStringSubmatch(key)
		if m == nil {
			return nil, apperror.NewBadRequest(fmt.Sprintf("Invalid query parameter %q", key))
		}
		field, op := m[1], Op(m[2])
		if op == "" {
			op = OpEq
		}
		if !op.valid() {
			return nil, apperror.NewBadRequest(fmt.Sprintf("Unsupported query operator %q", m[2]))
		}
		kind, ok := schema.kind(field)
		if !ok {
			return nil, apperror.NewBadRequest(fmt.Sprintf("Cannot filter on field %q", field))
		}

		raws := values[key]
		if len(raws) == 0 {
			continue
		}

		var value any
		if op == OpIn {
			list := make([]any, 0, len(raws))
			for _, raw := range raws {
				for _, part := range strings.Split(raw, ",") {
					part = strings.TrimSpace(part)
					if part == "" {
						continue
					}
					v, err := coerce(kind, part)
					if err != nil {
						return nil, apperror.NewBadRequest(fmt.Sprintf("Invalid value for %s: %v", field, err))
					}
					list = append(list, v)
				}
			}
			value = list
		} else {
			// Repeated parameters: the last one wins.
			v, err := coerce(kind, raws[len(raws)-1])
			if err != nil {
				return nil, apperror.NewBadRequest(fmt.Sprintf("Invalid value for %s: %v", field, err))
			}
			value = v
		}

		filter = append(filter, Condition{Field: field, Op: op, Value: value})
	}
	return filter, nil
}

func parseSort(raw string, schema Schema) (bson.D, error) {
	if strings.TrimSpace(raw) == "" {
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}, nil
	}

	var out bson.D
	seenID := false
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dir := 1
		if strings.HasPrefix(part, "-") {
			dir = -1
			part = part[1:]
		}
		if _, ok := schema.kind(part); !ok {
			return nil, apperror.NewBadRequest(fmt.Sprintf("Cannot sort on field %q", part))
		}
		if part == "_id" {
			seenID = true
		}
		out = append(out, bson.E{Key: part, Value: dir})
	}
	if len(out) == 0 {
		return parseSort("", schema)
	}
	// Stable pages need a unique tie-breaker.
	if !seenID {
		out = append(out, bson.E{Key: "_id", Value: 1})
	}
	return out, nil
}

func fieldList(raw string, schema Schema, param string) ([]string, error) {
	var fields []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := schema.kind(part); !ok {
			return nil, apperror.NewBadRequest(fmt.Sprintf("Cannot %s field %q", param, part))
		}
		fields = append(fields, part)
	}
	return fields, nil
}

// boundedInt parses a positive integer, falling back to def when raw is not
// one and clamping to max, including values too large to parse.
func boundedInt(raw string, def, max int) int {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange) && n > 0:
		return max
	case err != nil || n < 1:
		return def
	case n > int64(max):
		return max
	}
	return int(n)
}
