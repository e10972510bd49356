package strategy

import "time"

// Strategy params arrive as map[string]any from TOML or the config store,
// so numeric values may be float64, int, or int64 depending on the decoder.

func floatParam(params map[string]any, key string, def float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func durationParam(params map[string]any, key string, defSeconds float64) time.Duration {
	secs := floatParam(params, key, defSeconds)
	return time.Duration(secs * float64(time.Second))
}

func boolParam(params map[string]any, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}
