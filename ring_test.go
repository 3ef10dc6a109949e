package rs485

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRing_FIFO(t *testing.T) {
	r := NewRing(16)
	in := []byte("G1 X5 Y7")
	for _, b := range in {
		require.True(t, r.Push(b))
	}
	var out []byte
	for {
		b, ok := r.Pop()
		if !ok {
			break
		}
		out = append(out, b)
	}
	require.Equal(t, in, out)
	require.True(t, r.Empty())
}

func TestRing_CapacityIsSizeMinusOne(t *testing.T) {
	for _, size := range []int{2, 3, 8, 255} {
		r := NewRing(size)
		require.Equal(t, size-1, r.Cap())
		for i := 0; i < size-1; i++ {
			require.True(t, r.Push(byte(i)), "size %d push %d", size, i)
		}
		require.True(t, r.Full())
		require.False(t, r.Push(0xEE), "size %d accepted a push while full", size)
		require.Equal(t, size-1, r.Used())

		b, ok := r.Pop()
		require.True(t, ok)
		require.Equal(t, byte(0), b)
		require.True(t, r.Push(0xEE))
		require.False(t, r.Push(0xEF))
	}
}

func TestRing_RejectedPushLeavesStateAlone(t *testing.T) {
	r := NewRing(4)
	require.True(t, r.Push('a'))
	require.True(t, r.Push('b'))
	require.True(t, r.Push('c'))
	require.False(t, r.Push('d'))
	require.False(t, r.Push('e'))

	var out []byte
	for b, ok := r.Pop(); ok; b, ok = r.Pop() {
		out = append(out, b)
	}
	require.Equal(t, "abc", string(out))
}

func TestRing_WrapsManyTimes(t *testing.T) {
	r := NewRing(5)
	next := byte(0)
	want := byte(0)
	for round := 0; round < 100; round++ {
		// alternate between partial and full fills to walk every offset
		n := 1 + round%r.Cap()
		for i := 0; i < n; i++ {
			require.True(t, r.Push(next))
			next++
		}
		require.Equal(t, n, r.Used())
		require.Equal(t, r.Cap()-n, r.Free())
		for i := 0; i < n; i++ {
			b, ok := r.Pop()
			require.True(t, ok)
			require.Equal(t, want, b)
			want++
		}
	}
}

func TestRing_EmptyAndFullNeverBothTrue(t *testing.T) {
	r := NewRing(4)
	check := func() {
		require.False(t, r.Empty() && r.Full())
	}
	check()
	for i := 0; i < 10; i++ {
		r.Push(byte(i))
		check()
	}
	for i := 0; i < 10; i++ {
		r.Pop()
		check()
	}
}

func TestRing_PopEmpty(t *testing.T) {
	r := NewRing(8)
	b, ok := r.Pop()
	require.False(t, ok)
	require.Zero(t, b)
	require.Zero(t, r.Used())
}

func TestRing_TinySizeRaised(t *testing.T) {
	r := NewRing(0)
	require.Equal(t, 2, r.Size())
	require.True(t, r.Push('x'))
	require.False(t, r.Push('y'))
}

func TestRing_Reset(t *testing.T) {
	r := NewRing(8)
	r.Push('a')
	r.Push('b')
	r.Reset()
	require.True(t, r.Empty())
	require.Equal(t, 7, r.Free())
}
