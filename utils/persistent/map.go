// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package persistent provides an immutable ordered map. Every update returns a
// new Map that shares all untouched B-tree nodes with its parent, so keeping
// many versions alive (one per fork) costs O(log n) per update rather than a
// full copy.
package persistent

import (
	"errors"
	"sync"

	"github.com/google/btree"
)

const degree = 16

var (
	ErrKeyExists   = errors.New("key already exists")
	ErrKeyNotFound = errors.New("key not found")
)

type entry[K, V any] struct {
	key   K
	value V
}

// Map is an immutable ordered map from K to V. The zero value is not usable;
// create maps with NewMap.
type Map[K, V any] struct {
	tree *btree.BTreeG[entry[K, V]]
	// cloneLock serializes Clone calls on tree: Clone rewrites the receiver's
	// copy-on-write context, so two forks deriving from the same version must
	// not clone it at the same time. Reads never take the lock.
	cloneLock *sync.Mutex
}

// NewMap returns an empty map ordered by less.
func NewMap[K, V any](less func(a, b K) bool) Map[K, V] {
	return Map[K, V]{
		tree: btree.NewG(degree, func(a, b entry[K, V]) bool {
			return less(a.key, b.key)
		}),
		cloneLock: &sync.Mutex{},
	}
}

func (m Map[K, V]) clone() Map[K, V] {
	m.cloneLock.Lock()
	tree := m.tree.Clone()
	m.cloneLock.Unlock()
	return Map[K, V]{
		tree:      tree,
		cloneLock: &sync.Mutex{},
	}
}

// Len returns the number of entries.
func (m Map[K, V]) Len() int {
	return m.tree.Len()
}

// Get returns the value stored under key.
func (m Map[K, V]) Get(key K) (V, bool) {
	e, ok := m.tree.Get(entry[K, V]{key: key})
	return e.value, ok
}

// Has reports whether key is present.
func (m Map[K, V]) Has(key K) bool {
	return m.tree.Has(entry[K, V]{key: key})
}

// Insert returns a map with key bound to value. It fails with ErrKeyExists if
// key is already present.
func (m Map[K, V]) Insert(key K, value V) (Map[K, V], error) {
	if m.Has(key) {
		return m, ErrKeyExists
	}
	return m.Set(key, value), nil
}

// Set returns a map with key bound to value, replacing any previous binding.
func (m Map[K, V]) Set(key K, value V) Map[K, V] {
	next := m.clone()
	next.tree.ReplaceOrInsert(entry[K, V]{key: key, value: value})
	return next
}

// Update returns a map where the value under key is replaced by f(value). It
// fails with ErrKeyNotFound if key is absent, or with the error of f.
func (m Map[K, V]) Update(key K, f func(V) (V, error)) (Map[K, V], error) {
	old, ok := m.Get(key)
	if !ok {
		return m, ErrKeyNotFound
	}
	updated, err := f(old)
	if err != nil {
		return m, err
	}
	return m.Set(key, updated), nil
}

// Remove returns a map without key along with the removed value. It fails
// with ErrKeyNotFound if key is absent.
func (m Map[K, V]) Remove(key K) (Map[K, V], V, error) {
	old, ok := m.Get(key)
	if !ok {
		return m, old, ErrKeyNotFound
	}
	next := m.clone()
	next.tree.Delete(entry[K, V]{key: key})
	return next, old, nil
}

// Ascend calls f for every entry in key order until f returns false.
func (m Map[K, V]) Ascend(f func(key K, value V) bool) {
	m.tree.Ascend(func(e entry[K, V]) bool {
		return f(e.key, e.value)
	})
}
