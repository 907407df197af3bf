package core

import "sync/atomic"

// Cursor is the getUpdates offset: the smallest update id not yet consumed.
// The ingestion task is its only writer; the atomic lets status readers take
// a snapshot without locking.
type Cursor struct {
	v atomic.Int64
}

// NewCursor creates a cursor starting at offset.
func NewCursor(offset int64) *Cursor {
	c := &Cursor{}
	c.v.Store(offset)
	return c
}

// Value returns the offset to request next.
func (c *Cursor) Value() int64 {
	return c.v.Load()
}

// Advance marks updateID as consumed and returns the resulting offset,
// max(current, updateID+1). The offset never decreases.
func (c *Cursor) Advance(updateID int64) int64 {
	cur := c.v.Load()
	if next := updateID + 1; next > cur {
		c.v.Store(next)
		return next
	}
	return cur
}
