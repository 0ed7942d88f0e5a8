// Package store provides the durable string-keyed record store the continuity
// components persist through, with SQLite, Redis and in-memory backends.
package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// KV is the only persistence primitive the continuity core requires.
// Get reports ok=false for a missing key; a missing key is not an error.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Get returns the value stored under key.
func (db *DB) Get(key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM kv_records WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set inserts or replaces the value stored under key.
func (db *DB) Set(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO kv_records (key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now, now)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is a no-op.
func (db *DB) Remove(key string) error {
	if _, err := db.Exec(`DELETE FROM kv_records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys with the given prefix, most recently updated first.
func (db *DB) Keys(prefix string) ([]string, error) {
	rows, err := db.Query(`
		SELECT key FROM kv_records WHERE key LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC
	`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Namespaced prefixes every key with "<ns>:" so several record families can
// share one backend.
func Namespaced(kv KV, ns string) KV {
	if ns == "" {
		return kv
	}
	return &namespacedKV{kv: kv, prefix: ns + ":"}
}

type namespacedKV struct {
	kv     KV
	prefix string
}

func (n *namespacedKV) Get(key string) (string, bool, error) { return n.kv.Get(n.prefix + key) }
func (n *namespacedKV) Set(key, value string) error          { return n.kv.Set(n.prefix+key, value) }
func (n *namespacedKV) Remove(key string) error              { return n.kv.Remove(n.prefix + key) }

// MapKV is an in-memory KV used by tests and by the "memory" backend.
// FailWrites makes every Set and Remove fail, simulating a full disk.
type MapKV struct {
	mu         sync.Mutex
	data       map[string]string
	failWrites bool
}

// NewMapKV returns an empty in-memory KV.
func NewMapKV() *MapKV {
	return &MapKV{data: make(map[string]string)}
}

// FailWrites toggles simulated write failures.
func (m *MapKV) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

func (m *MapKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MapKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return fmt.Errorf("set %s: quota exceeded", key)
	}
	m.data[key] = value
	return nil
}

func (m *MapKV) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return fmt.Errorf("remove %s: quota exceeded", key)
	}
	delete(m.data, key)
	return nil
}

// Keys returns the stored keys in lexical order.
func (m *MapKV) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
