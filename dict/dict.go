// Package dict implements a fixed-bucket-count hash dictionary, each
// bucket a linear darray.Array of (key, value) pairs.
package dict

import "github.com/buzzswarm/buzzvm/darray"

// HashFunc computes a bucket hash for a key.
type HashFunc[K any] func(K) uint32

// EqualFunc reports structural equality between two keys.
type EqualFunc[K any] func(a, b K) bool

type entry[K, V any] struct {
	key K
	val V
}

// Dict is a generic hash map with a fixed bucket count chosen at
// construction, matching the original C buzzdict's "fixed bucket count
// at creation" contract.
type Dict[K, V any] struct {
	buckets  []*darray.Array[entry[K, V]]
	hash     HashFunc[K]
	equal    EqualFunc[K]
	size     int
	numBkt   uint32
}

// New creates a dictionary with the given bucket count.
func New[K, V any](numBuckets uint32, hash HashFunc[K], equal EqualFunc[K]) *Dict[K, V] {
	if numBuckets == 0 {
		numBuckets = 1
	}
	d := &Dict[K, V]{
		buckets: make([]*darray.Array[entry[K, V]], numBuckets),
		hash:    hash,
		equal:   equal,
		numBkt:  numBuckets,
	}
	for i := range d.buckets {
		d.buckets[i] = darray.New[entry[K, V]](0)
	}
	return d
}

func (d *Dict[K, V]) bucketFor(k K) *darray.Array[entry[K, V]] {
	return d.buckets[d.hash(k)%d.numBkt]
}

// Get returns the value for k and whether it was present.
func (d *Dict[K, V]) Get(k K) (V, bool) {
	b := d.bucketFor(k)
	idx := b.Find(func(e entry[K, V]) bool { return d.equal(e.key, k) })
	if idx == b.Size() {
		var zero V
		return zero, false
	}
	return b.Get(idx).val, true
}

// Exists reports whether k is present.
func (d *Dict[K, V]) Exists(k K) bool {
	_, ok := d.Get(k)
	return ok
}

// Set inserts or overwrites the value for k.
func (d *Dict[K, V]) Set(k K, v V) {
	b := d.bucketFor(k)
	idx := b.Find(func(e entry[K, V]) bool { return d.equal(e.key, k) })
	if idx == b.Size() {
		b.Push(entry[K, V]{key: k, val: v})
		d.size++
		return
	}
	b.Set(idx, entry[K, V]{key: k, val: v})
}

// Remove deletes k, reporting whether it was present.
func (d *Dict[K, V]) Remove(k K) bool {
	b := d.bucketFor(k)
	idx := b.Find(func(e entry[K, V]) bool { return d.equal(e.key, k) })
	if idx == b.Size() {
		return false
	}
	b.Remove(idx)
	d.size--
	return true
}

// Size returns the number of entries.
func (d *Dict[K, V]) Size() int { return d.size }

// IsEmpty reports whether the dictionary has no entries.
func (d *Dict[K, V]) IsEmpty() bool { return d.size == 0 }

// Foreach visits every (key, value) pair in unspecified bucket order.
// fn returning false stops iteration early.
func (d *Dict[K, V]) Foreach(fn func(k K, v V) bool) {
	for _, b := range d.buckets {
		stop := false
		b.Foreach(func(_ int, e entry[K, V]) bool {
			if !fn(e.key, e.val) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}

// Keys returns all keys in unspecified order.
func (d *Dict[K, V]) Keys() []K {
	out := make([]K, 0, d.size)
	d.Foreach(func(k K, _ V) bool { out = append(out, k); return true })
	return out
}
