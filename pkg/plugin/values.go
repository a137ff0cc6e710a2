package plugin

import "time"

// String returns cfg[key] as a string, or def when absent or of another type.
func String(cfg map[string]any, key, def string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return def
}

// Float returns cfg[key] as a float64. YAML and JSON numbers of any width
// are accepted.
func Float(cfg map[string]any, key string, def float64) float64 {
	switch v := cfg[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// Int returns cfg[key] as an int.
func Int(cfg map[string]any, key string, def int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Duration returns cfg[key] interpreted as milliseconds, or parsed when it
// is a string such as "250ms".
func Duration(cfg map[string]any, key string, def time.Duration) time.Duration {
	if s, ok := cfg[key].(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
		return def
	}
	if _, ok := cfg[key]; !ok {
		return def
	}
	return time.Duration(Float(cfg, key, 0) * float64(time.Millisecond))
}
