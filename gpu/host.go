package gpu

import (
	"fmt"
	"sync/atomic"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// hostBuffer is the host program's backing store for a device buffer.
type hostBuffer struct {
	values []fr.Element
}

func (b *hostBuffer) Len() int { return len(b.values) }

// HostProgram is the portable reference implementation of Program. Every
// operation runs the same elementwise kernel a device would, parallelized
// across CPU workers, so the host and accelerated paths stay behaviorally
// identical. It doubles as the fallback when no device is available.
type HostProgram struct {
	logN  uint32
	omega fr.Element

	// live tracks outstanding buffers; single-consumer discipline means it
	// must return to zero after every evaluation.
	live atomic.Int64
}

// NewHostProgram binds a host program to the evaluation basis of size 2^logN
// generated by omega.
func NewHostProgram(logN uint32, omega fr.Element) *HostProgram {
	return &HostProgram{logN: logN, omega: omega}
}

// LiveBuffers reports the number of allocated-and-not-freed buffers.
func (p *HostProgram) LiveBuffers() int64 { return p.live.Load() }

func (p *HostProgram) Alloc(n int) (Buffer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: invalid size %d", ErrAllocation, n)
	}
	p.live.Add(1)
	return &hostBuffer{values: make([]fr.Element, n)}, nil
}

func (p *HostProgram) Upload(values []fr.Element) (Buffer, error) {
	buf := make([]fr.Element, len(values))
	copy(buf, values)
	p.live.Add(1)
	return &hostBuffer{values: buf}, nil
}

func (p *HostProgram) Read(buf Buffer, out []fr.Element) error {
	b, err := p.hostBuf(buf)
	if err != nil {
		return err
	}
	if len(out) != len(b.values) {
		return fmt.Errorf("%w: read of %d elements from buffer of %d", ErrLaunch, len(out), len(b.values))
	}
	copy(out, b.values)
	return nil
}

func (p *HostProgram) Free(buf Buffer) {
	if buf == nil {
		return
	}
	if b, ok := buf.(*hostBuffer); ok && b.values != nil {
		b.values = nil
		p.live.Add(-1)
	}
}

func (p *HostProgram) Fill(dst Buffer, c fr.Element) error {
	d, err := p.hostBuf(dst)
	if err != nil {
		return err
	}
	parallelize(len(d.values), func(start, end int) {
		for i := start; i < end; i++ {
			d.values[i] = c
		}
	})
	return nil
}

func (p *HostProgram) Binary(op Op, dst, a, b Buffer, aShift, bShift int32) error {
	d, da, db, err := p.ternaryArgs(dst, a, b)
	if err != nil {
		return err
	}
	n := len(d.values)
	switch op {
	case OpAdd:
		parallelize(n, func(start, end int) {
			for i := start; i < end; i++ {
				d.values[i].Add(&da.values[shiftIndex(i, aShift, n)], &db.values[shiftIndex(i, bShift, n)])
			}
		})
	case OpMul:
		parallelize(n, func(start, end int) {
			for i := start; i < end; i++ {
				d.values[i].Mul(&da.values[shiftIndex(i, aShift, n)], &db.values[shiftIndex(i, bShift, n)])
			}
		})
	default:
		return fmt.Errorf("%w: unknown elementwise op %d", ErrLaunch, op)
	}
	return nil
}

func (p *HostProgram) BinaryScaled(dst, a, b Buffer, aShift, bShift int32, s fr.Element) error {
	d, da, db, err := p.ternaryArgs(dst, a, b)
	if err != nil {
		return err
	}
	n := len(d.values)
	parallelize(n, func(start, end int) {
		var t fr.Element
		for i := start; i < end; i++ {
			t.Mul(&s, &db.values[shiftIndex(i, bShift, n)])
			d.values[i].Add(&da.values[shiftIndex(i, aShift, n)], &t)
		}
	})
	return nil
}

func (p *HostProgram) BroadcastAdd(dst, a Buffer, aShift int32, c fr.Element) error {
	d, err := p.hostBuf(dst)
	if err != nil {
		return err
	}
	da, err := p.hostBuf(a)
	if err != nil {
		return err
	}
	n := len(d.values)
	if len(da.values) != n {
		return fmt.Errorf("%w: operand size mismatch %d vs %d", ErrLaunch, len(da.values), n)
	}
	parallelize(n, func(start, end int) {
		for i := start; i < end; i++ {
			d.values[i].Add(&da.values[shiftIndex(i, aShift, n)], &c)
		}
	})
	return nil
}

func (p *HostProgram) hostBuf(buf Buffer) (*hostBuffer, error) {
	b, ok := buf.(*hostBuffer)
	if !ok || b == nil || b.values == nil {
		return nil, fmt.Errorf("%w: operand is not a live host buffer", ErrLaunch)
	}
	return b, nil
}

func (p *HostProgram) ternaryArgs(dst, a, b Buffer) (*hostBuffer, *hostBuffer, *hostBuffer, error) {
	d, err := p.hostBuf(dst)
	if err != nil {
		return nil, nil, nil, err
	}
	da, err := p.hostBuf(a)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := p.hostBuf(b)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(da.values) != len(d.values) || len(db.values) != len(d.values) {
		return nil, nil, nil, fmt.Errorf("%w: operand size mismatch %d/%d/%d",
			ErrLaunch, len(d.values), len(da.values), len(db.values))
	}
	return d, da, db, nil
}

func errLaunchSize(got, want int) error {
	return fmt.Errorf("%w: buffer of %d elements, transform needs %d", ErrLaunch, got, want)
}

// shiftIndex resolves a deferred cyclic rotation. n is a power of two.
func shiftIndex(i int, shift int32, n int) int {
	return (i + int(shift)) & (n - 1)
}
