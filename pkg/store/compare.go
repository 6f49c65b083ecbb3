package store

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// matchesFilters applies an equality filter map against a record's
// field values. A filter key absent from the record never matches.
func matchesFilters(fields map[string]any, filters map[string]any) bool {
	for name, want := range filters {
		have, ok := fields[name]
		if !ok {
			return false
		}
		if !valuesEqual(have, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares two field values after normalization. Values of
// incompatible types are simply unequal; filtering never errors.
func valuesEqual(a, b any) bool {
	na, nb := normalize(a), normalize(b)
	if na == nil || nb == nil {
		return na == nb
	}
	return na == nb
}

// compareValues orders two normalized values for sorting. Mixed types
// order by their string rendering.
func compareValues(a, b any) bool {
	na, nb := normalize(a), normalize(b)
	if ia, ok := na.(int64); ok {
		if ib, ok := nb.(int64); ok {
			return ia < ib
		}
	}
	return fmt.Sprint(na) < fmt.Sprint(nb)
}

// normalize maps a value to a comparable canonical form: UUIDs and
// instants to strings, string-kinded enums to their string value,
// integer kinds to int64.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case uuid.UUID:
		return x.String()
	case *uuid.UUID:
		if x == nil {
			return nil
		}
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case string:
		return x
	case bool:
		return x
	case int:
		return int64(x)
	case int64:
		return x
	case *int:
		if x == nil {
			return nil
		}
		return int64(*x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	default:
		return fmt.Sprint(v)
	}
}
