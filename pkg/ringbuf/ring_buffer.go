// Package ringbuf provides a fixed-capacity circular buffer of fixed-shape
// numeric slots with independent read and write cursors.
//
// The buffer allocates capacity+1 physical slots so that an empty buffer
// (read == write) can be told apart from a full one (read == write+1).
// Rewind and Seek move only the read cursor, which lets a caller re-scan the
// retained window and then slide it forward without copying data.
//
// A RingBuffer is not safe for concurrent use.
package ringbuf

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferFull is returned by Write when every slot holds unread data.
	ErrBufferFull = errors.New("ringbuf: buffer is full")

	// ErrBufferEmpty is returned by Read when no unread slot remains.
	ErrBufferEmpty = errors.New("ringbuf: buffer is empty")

	// ErrShapeMismatch is returned when a written item does not match the
	// configured slot shape.
	ErrShapeMismatch = errors.New("ringbuf: item does not match slot shape")
)

// Element is the set of sample types a RingBuffer can hold.
type Element interface {
	~float32 | ~float64 | ~int16 | ~int32
}

// RingBuffer is a circular buffer of slots, each a flattened tensor of the
// configured shape.
type RingBuffer[T Element] struct {
	shape   []int
	slotLen int
	size    int // physical slots, capacity+1
	data    []T
	read    int
	write   int
}

// New creates a buffer holding capacity slots of the given per-slot shape.
// An empty shape means scalar slots.
func New[T Element](capacity int, shape ...int) (*RingBuffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ringbuf: capacity must be positive, got %d", capacity)
	}
	slotLen := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("ringbuf: invalid slot dimension %d in %v", d, shape)
		}
		slotLen *= d
	}

	size := capacity + 1
	return &RingBuffer[T]{
		shape:   append([]int(nil), shape...),
		slotLen: slotLen,
		size:    size,
		data:    make([]T, size*slotLen),
	}, nil
}

// Capacity returns the number of usable slots.
func (r *RingBuffer[T]) Capacity() int { return r.size - 1 }

// Shape returns the per-slot dimensions.
func (r *RingBuffer[T]) Shape() []int { return append([]int(nil), r.shape...) }

// SlotLen returns the number of elements in one slot.
func (r *RingBuffer[T]) SlotLen() int { return r.slotLen }

// IsEmpty reports whether no unread slot remains.
func (r *RingBuffer[T]) IsEmpty() bool { return r.read == r.write }

// IsFull reports whether a Write would fail.
func (r *RingBuffer[T]) IsFull() bool { return r.read == (r.write+1)%r.size }

// Write copies item into the slot under the write cursor and advances it.
// The item may be passed as a slice or, for scalar slots, as a single value.
func (r *RingBuffer[T]) Write(item ...T) error {
	if len(item) != r.slotLen {
		return fmt.Errorf("%w: got %d elements, want %d", ErrShapeMismatch, len(item), r.slotLen)
	}
	if r.IsFull() {
		return ErrBufferFull
	}
	copy(r.slot(r.write), item)
	r.write = (r.write + 1) % r.size
	return nil
}

// Read returns the slot under the read cursor and advances it. The returned
// slice aliases the buffer storage and is only valid until the next Write,
// Fill or Overwrite.
func (r *RingBuffer[T]) Read() ([]T, error) {
	if r.IsEmpty() {
		return nil, ErrBufferEmpty
	}
	item := r.slot(r.read)
	r.read = (r.read + 1) % r.size
	return item, nil
}

// ReadAll rewinds the buffer and drains every slot, oldest first, appending
// the elements to dst. The buffer is empty afterwards; a following Rewind
// restores the same window.
func (r *RingBuffer[T]) ReadAll(dst []T) []T {
	r.Rewind()
	for !r.IsEmpty() {
		dst = append(dst, r.slot(r.read)...)
		r.read = (r.read + 1) % r.size
	}
	return dst
}

// Rewind moves the read cursor to the oldest retained slot, one past the most
// recent write.
func (r *RingBuffer[T]) Rewind() *RingBuffer[T] {
	r.read = (r.write + 1) % r.size
	return r
}

// Seek advances the read cursor by steps slots. Negative steps move it back.
func (r *RingBuffer[T]) Seek(steps int) *RingBuffer[T] {
	r.read = ((r.read+steps)%r.size + r.size) % r.size
	return r
}

// Reset discards all unread content by collapsing the write cursor onto the
// read cursor. Slot storage is left untouched.
func (r *RingBuffer[T]) Reset() *RingBuffer[T] {
	r.write = r.read
	return r
}

// Fill sets every slot to value and moves the read cursor to the oldest slot,
// leaving the buffer full.
func (r *RingBuffer[T]) Fill(value T) *RingBuffer[T] {
	r.Overwrite(value)
	return r.Rewind()
}

// Overwrite sets every slot to value without moving either cursor. After a
// Reset this pre-loads history that the next Rewind will expose while the
// buffer still reports empty.
func (r *RingBuffer[T]) Overwrite(value T) *RingBuffer[T] {
	for i := range r.data {
		r.data[i] = value
	}
	return r
}

func (r *RingBuffer[T]) slot(i int) []T {
	return r.data[i*r.slotLen : (i+1)*r.slotLen : (i+1)*r.slotLen]
}
