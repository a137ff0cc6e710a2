package ringbuf

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestNew_InvalidArguments(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		shape    []int
	}{
		{name: "zero capacity", capacity: 0},
		{name: "negative capacity", capacity: -3},
		{name: "zero dimension", capacity: 4, shape: []int{2, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New[float32](tt.capacity, tt.shape...); err == nil {
				t.Errorf("New(%d, %v) should have returned an error", tt.capacity, tt.shape)
			}
		})
	}
}

func TestCapacityLaw(t *testing.T) {
	for _, capacity := range []int{1, 2, 7, 64} {
		is := is.New(t)
		buf, err := New[float32](capacity)
		is.NoErr(err)
		is.Equal(buf.Capacity(), capacity)
		is.True(buf.IsEmpty())

		for i := 0; i < capacity; i++ {
			is.True(!buf.IsFull()) // not full before the last write
			is.NoErr(buf.Write(float32(i)))
		}
		is.True(buf.IsFull())
		is.True(errors.Is(buf.Write(99), ErrBufferFull)) // write past capacity fails

		for i := 0; i < capacity; i++ {
			item, err := buf.Read()
			is.NoErr(err)
			is.Equal(item[0], float32(i))
		}
		is.True(buf.IsEmpty())
		_, err = buf.Read()
		is.True(errors.Is(err, ErrBufferEmpty)) // read past content fails
	}
}

func TestRewindReturnsWindowInOrder(t *testing.T) {
	is := is.New(t)
	buf, err := New[float32](4)
	is.NoErr(err)

	for _, v := range []float32{1, 2, 3, 4} {
		is.NoErr(buf.Write(v))
	}
	buf.Rewind()

	var got []float32
	for i := 0; i < buf.Capacity(); i++ {
		item, err := buf.Read()
		is.NoErr(err)
		got = append(got, item[0])
	}
	is.Equal(got, []float32{1, 2, 3, 4})
	is.True(buf.IsEmpty())
}

func TestRewindAfterWrap(t *testing.T) {
	is := is.New(t)
	buf, err := New[float32](3)
	is.NoErr(err)

	// push 1..3, slide by two, push 4..5 so the window wraps the storage
	for _, v := range []float32{1, 2, 3} {
		is.NoErr(buf.Write(v))
	}
	buf.Rewind().Seek(2)
	is.NoErr(buf.Write(4))
	is.NoErr(buf.Write(5))
	is.True(buf.IsFull())

	is.Equal(buf.ReadAll(nil), []float32{3, 4, 5})
}

func TestSeekArithmetic(t *testing.T) {
	is := is.New(t)
	buf, err := New[float32](5)
	is.NoErr(err)
	for _, v := range []float32{10, 20, 30, 40, 50} {
		is.NoErr(buf.Write(v))
	}

	for k := 0; k <= 2*buf.Capacity(); k++ {
		buf.Rewind().Seek(1)
		before := buf.read
		buf.Seek(k).Seek(-k)
		is.Equal(buf.read, before) // seek(k) then seek(-k) restores the cursor
	}

	buf.Rewind().Seek(2)
	item, err := buf.Read()
	is.NoErr(err)
	is.Equal(item[0], float32(30))
}

func TestFillThenFull(t *testing.T) {
	is := is.New(t)
	buf, err := New[float32](6, 2)
	is.NoErr(err)

	buf.Fill(-1)
	is.True(buf.IsFull())

	for round := 0; round < 3; round++ {
		all := buf.ReadAll(nil)
		is.Equal(len(all), 12)
		for _, v := range all {
			is.Equal(v, float32(-1))
		}
	}

	buf.Reset()
	is.True(buf.IsEmpty())
}

func TestFillAfterPartialWrites(t *testing.T) {
	is := is.New(t)
	buf, err := New[float32](4)
	is.NoErr(err)

	is.NoErr(buf.Write(1))
	is.NoErr(buf.Write(2))
	buf.Fill(0)
	is.True(buf.IsFull())
	is.Equal(buf.ReadAll(nil), []float32{0, 0, 0, 0})
}

func TestResetPreservesPosition(t *testing.T) {
	is := is.New(t)
	buf, err := New[float32](3)
	is.NoErr(err)

	is.NoErr(buf.Write(1))
	is.NoErr(buf.Write(2))
	_, err = buf.Read()
	is.NoErr(err)

	buf.Reset()
	is.True(buf.IsEmpty())
	is.Equal(buf.read, 1) // reset keeps the read cursor where it was
	is.Equal(buf.write, 1)
}

func TestOverwriteKeepsCursors(t *testing.T) {
	is := is.New(t)
	buf, err := New[float32](3)
	is.NoErr(err)

	buf.Reset().Overwrite(7)
	is.True(buf.IsEmpty())

	// sliding-window append: drop the oldest, append the newest
	buf.Rewind().Seek(1)
	is.NoErr(buf.Write(1))
	is.True(buf.IsFull())
	is.Equal(buf.ReadAll(nil), []float32{7, 7, 1})
}

func TestSlotShape(t *testing.T) {
	is := is.New(t)
	buf, err := New[float32](2, 3, 4)
	is.NoErr(err)
	is.Equal(buf.SlotLen(), 12)
	is.Equal(buf.Shape(), []int{3, 4})

	err = buf.Write(make([]float32, 11)...)
	is.True(errors.Is(err, ErrShapeMismatch))

	item := make([]float32, 12)
	for i := range item {
		item[i] = float32(i)
	}
	is.NoErr(buf.Write(item...))
	item[0] = 100 // Write copies its input

	got, err := buf.Read()
	is.NoErr(err)
	is.Equal(got[0], float32(0))
	is.Equal(got[11], float32(11))
}

func TestIntegerElements(t *testing.T) {
	is := is.New(t)
	buf, err := New[int16](2)
	is.NoErr(err)
	is.NoErr(buf.Write(-5))
	is.NoErr(buf.Write(5))
	is.Equal(buf.ReadAll(nil), []int16{-5, 5})
}
