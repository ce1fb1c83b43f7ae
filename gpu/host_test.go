package gpu

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
	"github.com/stretchr/testify/require"
)

func testProgram(t *testing.T, logN uint32) *HostProgram {
	t.Helper()
	gen, err := fft.Generator(uint64(1) << logN)
	require.NoError(t, err)
	return NewHostProgram(logN, gen)
}

func uploadSeq(t *testing.T, p *HostProgram, n int, base uint64) Buffer {
	t.Helper()
	values := make([]fr.Element, n)
	for i := range values {
		values[i].SetUint64(base + uint64(i))
	}
	buf, err := p.Upload(values)
	require.NoError(t, err)
	return buf
}

func readAll(t *testing.T, p *HostProgram, buf Buffer) []fr.Element {
	t.Helper()
	out := make([]fr.Element, buf.Len())
	require.NoError(t, p.Read(buf, out))
	return out
}

func TestBinaryAppliesDeferredShifts(t *testing.T) {
	p := testProgram(t, 3)
	const n = 8
	a := uploadSeq(t, p, n, 0)   // a[i] = i
	b := uploadSeq(t, p, n, 100) // b[i] = 100+i
	dst, err := p.Alloc(n)
	require.NoError(t, err)

	require.NoError(t, p.Binary(OpAdd, dst, a, b, 2, -1))
	out := readAll(t, p, dst)
	for i := 0; i < n; i++ {
		var want fr.Element
		want.SetUint64(uint64((i+2)&(n-1)) + 100 + uint64((i-1+n)&(n-1)))
		require.True(t, want.Equal(&out[i]), "index %d", i)
	}

	require.NoError(t, p.Binary(OpMul, dst, a, b, 0, 0))
	out = readAll(t, p, dst)
	for i := 0; i < n; i++ {
		var want fr.Element
		want.SetUint64(uint64(i) * (100 + uint64(i)))
		require.True(t, want.Equal(&out[i]), "index %d", i)
	}

	p.Free(a)
	p.Free(b)
	p.Free(dst)
	require.Equal(t, int64(0), p.LiveBuffers())
}

func TestBinaryScaled(t *testing.T) {
	p := testProgram(t, 2)
	const n = 4
	a := uploadSeq(t, p, n, 10)
	b := uploadSeq(t, p, n, 1)
	dst, err := p.Alloc(n)
	require.NoError(t, err)

	var s fr.Element
	s.SetUint64(9)
	require.NoError(t, p.BinaryScaled(dst, a, b, 0, 1, s))
	out := readAll(t, p, dst)
	for i := 0; i < n; i++ {
		var want fr.Element
		want.SetUint64(10 + uint64(i) + 9*(1+uint64((i+1)&(n-1))))
		require.True(t, want.Equal(&out[i]), "index %d", i)
	}
}

func TestBroadcastAddAndFill(t *testing.T) {
	p := testProgram(t, 2)
	const n = 4
	a := uploadSeq(t, p, n, 5)
	dst, err := p.Alloc(n)
	require.NoError(t, err)

	var c fr.Element
	c.SetUint64(1000)
	require.NoError(t, p.BroadcastAdd(dst, a, -1, c))
	out := readAll(t, p, dst)
	for i := 0; i < n; i++ {
		var want fr.Element
		want.SetUint64(5 + uint64((i-1+n)&(n-1)) + 1000)
		require.True(t, want.Equal(&out[i]), "index %d", i)
	}

	require.NoError(t, p.Fill(dst, c))
	out = readAll(t, p, dst)
	for i := range out {
		require.True(t, c.Equal(&out[i]))
	}
}

func TestKernelArgumentValidation(t *testing.T) {
	p := testProgram(t, 3)
	a := uploadSeq(t, p, 8, 0)
	small := uploadSeq(t, p, 4, 0)
	dst, err := p.Alloc(8)
	require.NoError(t, err)

	require.ErrorIs(t, p.Binary(OpAdd, dst, a, small, 0, 0), ErrLaunch)
	require.ErrorIs(t, p.Binary(Op(99), dst, a, a, 0, 0), ErrLaunch)
	require.ErrorIs(t, p.Read(a, make([]fr.Element, 3)), ErrLaunch)

	_, err = p.Alloc(0)
	require.ErrorIs(t, err, ErrAllocation)

	freed := uploadSeq(t, p, 8, 0)
	p.Free(freed)
	require.ErrorIs(t, p.Binary(OpAdd, dst, freed, a, 0, 0), ErrLaunch)
}

func TestFreeIsIdempotent(t *testing.T) {
	p := testProgram(t, 2)
	buf := uploadSeq(t, p, 4, 0)
	require.Equal(t, int64(1), p.LiveBuffers())
	p.Free(buf)
	p.Free(buf)
	p.Free(nil)
	require.Equal(t, int64(0), p.LiveBuffers())
}
