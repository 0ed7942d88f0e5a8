package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrCorrupt marks a stored record that could not be decoded.
	ErrCorrupt = errors.New("store: corrupt record")

	// ErrWrite marks a durable write that did not land.
	ErrWrite = errors.New("store: write failed")
)

// LoadList decodes the JSON array stored under key. A missing key yields an
// empty list. Undecodable data yields an error wrapping ErrCorrupt; callers
// decide whether to fall back to an empty collection.
func LoadList[T any](kv KV, key string) ([]T, error) {
	raw, ok, err := kv.Get(key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return items, nil
}

// SaveList encodes items as a JSON array under key. Failures wrap ErrWrite.
func SaveList[T any](kv KV, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrWrite, key, err)
	}
	if err := kv.Set(key, string(b)); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}
