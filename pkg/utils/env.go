// Package utils holds the small cross-cutting helpers the sync services
// share: env lookups, credential hashing, and HTTP body hygiene.
package utils

import (
	"os"
	"strconv"
)

// Env returns the value of an environment variable, or def when unset.
func Env(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// EnvInt reads a positive integer from the environment, falling back to def
// on anything unset, non-numeric, or non-positive.
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// EnvInt64 reads a non-negative int64 from the environment, falling back to
// def otherwise.
func EnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
