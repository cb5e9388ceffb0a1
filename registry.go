package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/renameio/v2"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Membership is the set-like view of a registry used by PresenceTracker and MessageDeduplicator.
type Membership interface {
	Contains(item string) bool
	Add(item string) error
	Remove(item string) error
	All() iter.Seq[string]
}

// ListRegistry is an ordered list of strings persisted as a JSON array.
// With a positive capacity the oldest entries are evicted first.
// Every mutation rewrites the backing file before returning.
type ListRegistry struct {
	path     string
	capacity int
	items    []string
}

// OpenListRegistry loads the registry at path. A missing file is created empty;
// an unreadable or wrong-shaped file is logged and treated as empty.
// capacity <= 0 means unbounded.
func OpenListRegistry(path string, capacity int) *ListRegistry {
	r := &ListRegistry{path: path, capacity: capacity}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := r.save(); err != nil {
			log.Printf("registry %s: %v", path, err)
		}
		return r
	case err != nil:
		log.Printf("registry %s: %v, starting empty", path, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err))
		return r
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		log.Printf("registry %s: %v, starting empty", path, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err))
		return r
	}
	if capacity > 0 && len(items) > capacity {
		items = items[len(items)-capacity:]
	}
	r.items = items
	return r
}

func (r *ListRegistry) Contains(item string) bool {
	return slices.Contains(r.items, item)
}

// Add appends item, evicting from the front when over capacity.
func (r *ListRegistry) Add(item string) error {
	r.items = append(r.items, item)
	if r.capacity > 0 && len(r.items) > r.capacity {
		r.items = slices.Delete(r.items, 0, len(r.items)-r.capacity)
	}
	return r.save()
}

// Extend appends items in order with a single write.
func (r *ListRegistry) Extend(items ...string) error {
	r.items = append(r.items, items...)
	if r.capacity > 0 && len(r.items) > r.capacity {
		r.items = slices.Delete(r.items, 0, len(r.items)-r.capacity)
	}
	return r.save()
}

// Remove deletes the first occurrence of item. Absent items are a no-op.
func (r *ListRegistry) Remove(item string) error {
	i := slices.Index(r.items, item)
	if i < 0 {
		return nil
	}
	r.items = slices.Delete(r.items, i, i+1)
	return r.save()
}

func (r *ListRegistry) Clear() error {
	r.items = nil
	return r.save()
}

// All yields a copy of the current members, so callers may mutate while iterating.
func (r *ListRegistry) All() iter.Seq[string] {
	return slices.Values(slices.Clone(r.items))
}

func (r *ListRegistry) Len() int { return len(r.items) }

func (r *ListRegistry) String() string {
	return "[" + strings.Join(r.items, ", ") + "]"
}

func (r *ListRegistry) save() error {
	items := r.items
	if items == nil {
		items = []string{}
	}
	data, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPersistenceWrite, r.path, err)
	}
	if err := writeFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}
	return nil
}

// MapRegistry is a string-keyed map persisted as a JSON object.
// Keys keep their insertion order, including across reloads.
type MapRegistry struct {
	path  string
	items *orderedmap.OrderedMap[string, string]
}

// OpenMapRegistry loads the registry at path with the same recovery rules as OpenListRegistry.
// Null values load as empty strings.
func OpenMapRegistry(path string) *MapRegistry {
	r := &MapRegistry{path: path, items: orderedmap.New[string, string]()}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := r.save(); err != nil {
			log.Printf("registry %s: %v", path, err)
		}
		return r
	case err != nil:
		log.Printf("registry %s: %v, starting empty", path, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err))
		return r
	}

	items, err := decodeOrderedObject(data)
	if err != nil {
		log.Printf("registry %s: %v, starting empty", path, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err))
		return r
	}
	r.items = items
	return r
}

// decodeOrderedObject reads a flat JSON object of string (or null) values, keeping key order.
func decodeOrderedObject(data []byte) (*orderedmap.OrderedMap[string, string], error) {
	if !json.Valid(data) {
		return nil, errors.New("invalid JSON")
	}
	items := orderedmap.New[string, string]()
	if err := items.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MapRegistry) Contains(key string) bool {
	_, ok := r.items.Get(key)
	return ok
}

func (r *MapRegistry) Get(key string) (string, bool) {
	return r.items.Get(key)
}

// Add inserts key with an empty value, keeping an existing value untouched.
func (r *MapRegistry) Add(key string) error {
	if r.Contains(key) {
		return nil
	}
	return r.Set(key, "")
}

// Set stores value under key. New keys go to the end of the order.
func (r *MapRegistry) Set(key, value string) error {
	r.items.Set(key, value)
	return r.save()
}

func (r *MapRegistry) Remove(key string) error {
	if _, ok := r.items.Delete(key); !ok {
		return nil
	}
	return r.save()
}

func (r *MapRegistry) Clear() error {
	r.items = orderedmap.New[string, string]()
	return r.save()
}

// All yields keys in insertion order over a copy.
func (r *MapRegistry) All() iter.Seq[string] {
	var keys []string
	for pair := r.items.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return slices.Values(keys)
}

// Items yields key/value pairs in insertion order over a copy.
func (r *MapRegistry) Items() iter.Seq2[string, string] {
	type entry struct{ key, value string }
	var entries []entry
	for pair := r.items.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, entry{pair.Key, pair.Value})
	}
	return func(yield func(string, string) bool) {
		for _, e := range entries {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

func (r *MapRegistry) Len() int { return r.items.Len() }

func (r *MapRegistry) save() error {
	raw, err := r.items.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPersistenceWrite, r.path, err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPersistenceWrite, r.path, err)
	}
	if err := writeFileAtomic(r.path, buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}
	return nil
}

// writeFileAtomic replaces path with data through a synced temp file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
