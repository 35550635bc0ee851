package db

import (
	"errors"
	"strings"
)

var errDBUnavailable = errors.New("db unavailable")

// Scopes are stored space-joined, the OAuth wire form.
func joinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

func splitScopes(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}
