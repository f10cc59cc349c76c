// Package store implements the package repository as a hand-rolled hash map
// with separate chaining and a move-to-front recency policy per bucket.
package store

import (
	"errors"
	"sort"

	"fleetsim/internal/models"
)

var ErrNotFound = errors.New("package not found")

type entry struct {
	key int
	pkg *models.Package
}

// PackageStore maps package IDs to package records. Buckets are fixed at
// construction; collisions chain within a bucket and every hit is moved to
// the bucket front. Single-threaded by design.
type PackageStore struct {
	buckets [][]entry
	size    int
}

func New(bucketCount int) *PackageStore {
	if bucketCount < 1 {
		bucketCount = 1
	}
	return &PackageStore{buckets: make([][]entry, bucketCount)}
}

// index hashes the integer key with Knuth's multiplicative constant before
// reducing modulo the bucket count, so sequential IDs spread across buckets.
func (s *PackageStore) index(key int) int {
	h := uint32(key) * 2654435761
	return int(h % uint32(len(s.buckets)))
}

// moveToFront lifts bucket[j] to the chain head, shifting the entries above
// it down one slot so the rest of the chain keeps its recency order.
func moveToFront(bucket []entry, j int) {
	if j == 0 {
		return
	}
	hit := bucket[j]
	copy(bucket[1:j+1], bucket[:j])
	bucket[0] = hit
}

// Put inserts or overwrites the record for pkg.ID and moves it to bucket front.
func (s *PackageStore) Put(id int, pkg *models.Package) {
	i := s.index(id)
	bucket := s.buckets[i]
	for j := range bucket {
		if bucket[j].key == id {
			bucket[j].pkg = pkg
			moveToFront(bucket, j)
			return
		}
	}
	s.buckets[i] = append(bucket, entry{key: id, pkg: pkg})
	moveToFront(s.buckets[i], len(s.buckets[i])-1)
	s.size++
}

// Get returns the package for id, moving the hit to the front of its bucket.
func (s *PackageStore) Get(id int) (*models.Package, error) {
	i := s.index(id)
	bucket := s.buckets[i]
	for j := range bucket {
		if bucket[j].key == id {
			moveToFront(bucket, j)
			return bucket[0].pkg, nil
		}
	}
	return nil, ErrNotFound
}

func (s *PackageStore) Len() int {
	return s.size
}

// BucketSnapshot returns the package IDs of the first n buckets in chain
// order, front first. Used by the inspection menu.
func (s *PackageStore) BucketSnapshot(n int) [][]int {
	if n > len(s.buckets) {
		n = len(s.buckets)
	}
	if n < 0 {
		n = 0
	}
	out := make([][]int, n)
	for i := 0; i < n; i++ {
		ids := make([]int, len(s.buckets[i]))
		for j, e := range s.buckets[i] {
			ids[j] = e.key
		}
		out[i] = ids
	}
	return out
}

// Iterator walks every stored package lazily in bucket order. The order is
// stable between mutations but implementation-defined; callers must not rely
// on it. Obtain a fresh iterator (or Reset) to restart.
type Iterator struct {
	store  *PackageStore
	bucket int
	pos    int
}

// All returns an iterator over every package in the store.
func (s *PackageStore) All() *Iterator {
	return &Iterator{store: s}
}

// Next returns the next package, or false when the sequence is exhausted.
func (it *Iterator) Next() (*models.Package, bool) {
	for it.bucket < len(it.store.buckets) {
		bucket := it.store.buckets[it.bucket]
		if it.pos < len(bucket) {
			pkg := bucket[it.pos].pkg
			it.pos++
			return pkg, true
		}
		it.bucket++
		it.pos = 0
	}
	return nil, false
}

// Reset rewinds the iterator to the first bucket.
func (it *Iterator) Reset() {
	it.bucket = 0
	it.pos = 0
}

// IDs returns every stored package ID in ascending order. The simulator uses
// this for deterministic iteration.
func (s *PackageStore) IDs() []int {
	ids := make([]int, 0, s.size)
	for _, bucket := range s.buckets {
		for _, e := range bucket {
			ids = append(ids, e.key)
		}
	}
	sort.Ints(ids)
	return ids
}
