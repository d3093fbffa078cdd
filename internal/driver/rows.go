package driver

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Row helpers decode neo4j record values into Go types exactly once, at
// the driver boundary. Missing or mistyped values decode to zero values;
// callers that need to distinguish use the Ok variants.

func RowString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func RowInt(rec *neo4j.Record, key string) int64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func RowFloat(rec *neo4j.Record, key string) (float64, bool) {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func RowBool(rec *neo4j.Record, key string) bool {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

// RowTime decodes a temporal value stored either as a driver temporal
// type or as an RFC3339 string. The false return marks a malformed or
// absent timestamp so batch jobs can skip the row instead of aborting.
func RowTime(rec *neo4j.Record, key string) (time.Time, bool) {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case dbtype.Time:
		return t.Time(), true
	case dbtype.LocalDateTime:
		return t.Time(), true
	case dbtype.Date:
		return t.Time(), true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

func RowStrings(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func RowFloats(rec *neo4j.Record, key string) []float32 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]float32, 0, len(raw))
	for _, item := range raw {
		switch n := item.(type) {
		case float64:
			out = append(out, float32(n))
		case int64:
			out = append(out, float32(n))
		}
	}
	return out
}

func RowMap(rec *neo4j.Record, key string) map[string]interface{} {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	m, _ := v.(map[string]interface{})
	return m
}
