package memory

import (
	"slices"

	"github.com/xraph/pandda/id"
)

// table keeps records of one kind in insertion order. Records are cloned
// on the way in and out so callers never share memory with the store.
type table[T any] struct {
	seq   uint64
	rows  map[id.ID]row[T]
	clone func(T) T
}

type row[T any] struct {
	seq uint64
	rec T
}

func newTable[T any](clone func(T) T) *table[T] {
	return &table[T]{rows: make(map[id.ID]row[T]), clone: clone}
}

func (t *table[T]) has(key id.ID) bool {
	_, ok := t.rows[key]
	return ok
}

func (t *table[T]) insert(key id.ID, rec T) {
	t.seq++
	t.rows[key] = row[T]{seq: t.seq, rec: t.clone(rec)}
}

// replace overwrites an existing record, keeping its position.
func (t *table[T]) replace(key id.ID, rec T) bool {
	r, ok := t.rows[key]
	if !ok {
		return false
	}
	r.rec = t.clone(rec)
	t.rows[key] = r
	return true
}

func (t *table[T]) get(key id.ID) (T, bool) {
	r, ok := t.rows[key]
	if !ok {
		var zero T
		return zero, false
	}
	return t.clone(r.rec), true
}

func (t *table[T]) remove(key id.ID) (T, bool) {
	r, ok := t.rows[key]
	if !ok {
		var zero T
		return zero, false
	}
	delete(t.rows, key)
	return r.rec, true
}

// filter returns clones of the matching records in insertion order, or
// newest first when reverse is set.
func (t *table[T]) filter(match func(T) bool, reverse bool) []T {
	rows := make([]row[T], 0, len(t.rows))
	for _, r := range t.rows {
		if match == nil || match(r.rec) {
			rows = append(rows, r)
		}
	}
	slices.SortFunc(rows, func(a, b row[T]) int {
		if reverse {
			a, b = b, a
		}
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})

	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = t.clone(r.rec)
	}
	return out
}

func cloneOf[T any](p *T) *T {
	cp := *p
	return &cp
}
