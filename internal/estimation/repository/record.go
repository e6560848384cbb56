package repository

import (
	"time"

	"github.com/scopewise/estimation-backend/internal/storage"
)

// Stores hand numbers back as int, int64 or float64 and timestamps as
// time.Time or RFC3339 strings depending on the backend.

func asString(r storage.Record, key string) string {
	s, _ := r[key].(string)
	return s
}

func asBool(r storage.Record, key string) bool {
	b, _ := r[key].(bool)
	return b
}

func asFloat(r storage.Record, key string) float64 {
	return toFloat(r[key])
}

func asInt(r storage.Record, key string) int {
	return int(toFloat(r[key]))
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func asTime(r storage.Record, key string) time.Time {
	switch t := r[key].(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func asRecord(v any) storage.Record {
	switch m := v.(type) {
	case storage.Record:
		return m
	case map[string]any:
		return storage.Record(m)
	default:
		return nil
	}
}

func asList(v any) []storage.Record {
	switch l := v.(type) {
	case []any:
		out := make([]storage.Record, 0, len(l))
		for _, item := range l {
			if rec := asRecord(item); rec != nil {
				out = append(out, rec)
			}
		}
		return out
	case []map[string]any:
		out := make([]storage.Record, 0, len(l))
		for _, item := range l {
			out = append(out, storage.Record(item))
		}
		return out
	default:
		return nil
	}
}
