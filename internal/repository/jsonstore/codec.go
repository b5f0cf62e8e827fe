// Package jsonstore keeps each collection as one JSON array under a reserved
// key of a repository.KeyValueStore.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrCorrupt is returned when a stored value is not the expected JSON shape.
var ErrCorrupt = errors.New("stored value is not valid JSON")

func decodeList[T any](key, raw string, ok bool) ([]T, error) {
	out := []T{}
	if !ok {
		return out, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return out, nil
}

func encodeList[T any](key string, list []T) (string, error) {
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return string(data), nil
}
