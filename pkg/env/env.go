package env

import (
	"os"
	"strings"
)

// Lookup returns the first non-blank value among keys.
func Lookup(keys ...string) (string, bool) {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v, true
		}
	}
	return "", false
}

// Get is Lookup with a fallback for when none of keys is set.
func Get(fallback string, keys ...string) string {
	if v, ok := Lookup(keys...); ok {
		return v
	}
	return fallback
}
