package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"golang.org/x/xerrors"
)

// EnvOrDefaultValue returns the parsed value of the environment variable key,
// or defaultValue when it is unset. A value that does not parse is logged and
// ignored.
func EnvOrDefaultValue[T any](key string, defaultValue T) T {
	value, ok, err := LookupEnv[T](key)
	if err != nil {
		slog.Warn("Ignoring malformed environment variable", "key", key, "default", defaultValue, "error", err)
		return defaultValue
	}
	if !ok {
		return defaultValue
	}
	return value
}

// LookupEnv parses the environment variable key as T. ok is false when the
// variable is unset.
func LookupEnv[T any](key string) (value T, ok bool, err error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return value, false, nil
	}

	var parsed any
	switch any(value).(type) {
	case string:
		parsed = raw
	case int:
		parsed, err = strconv.Atoi(raw)
	case int64:
		parsed, err = strconv.ParseInt(raw, 10, 64)
	case uint:
		var u uint64
		u, err = strconv.ParseUint(raw, 10, 0)
		parsed = uint(u)
	case uint64:
		parsed, err = strconv.ParseUint(raw, 10, 64)
	case float64:
		parsed, err = strconv.ParseFloat(raw, 64)
	case bool:
		parsed, err = strconv.ParseBool(raw)
	case time.Duration:
		parsed, err = time.ParseDuration(raw)
	default:
		return value, false, xerrors.Errorf("unsupported type %T for %s", value, key)
	}
	if err != nil {
		return value, false, xerrors.Errorf("invalid value %q for %s: %w", raw, key, err)
	}
	return parsed.(T), true, nil
}
