package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvString reads a non-empty string override from the environment.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer override from the environment. The third return
// reports a value that was present but unparseable.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return parsed, true, nil
}
