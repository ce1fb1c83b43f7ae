//go:build icicle

package gpu

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	icicle_core "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/core"
	icicle_runtime "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/runtime"

	bn254_gpu "github.com/hyperoracle/halo2-gpu-specific/gpu/bn254"
)

const HasIcicle = true

type deviceBuffer struct {
	slice icicle_core.DeviceSlice
	n     int
	live  bool
}

func (b *deviceBuffer) Len() int { return b.n }

// DeviceProgram runs the evaluation kernels on an icicle device. Buffers are
// kept in canonical (non-Montgomery) representation on the device so the
// vecOps kernels combine them directly; conversion happens at the upload and
// read-back boundaries. Unit rotations are folded into the coefficient side
// before the device transform (ForwardTransformShifted) since icicle has no
// rotated-read kernel.
type DeviceProgram struct {
	device icicle_runtime.Device
	logN   uint32
	omega  fr.Element
}

// NewDeviceProgram initializes the device and its NTT domain for the
// evaluation basis of size 2^logN generated by omega.
func NewDeviceProgram(logN uint32, omega fr.Element) (Program, error) {
	if st := icicle_runtime.LoadBackendFromEnvOrDefault(); st != icicle_runtime.Success {
		return nil, fmt.Errorf("%w: load backend: %s", ErrDeviceUnavailable, st.AsString())
	}
	p := &DeviceProgram{
		device: icicle_runtime.CreateDevice("CUDA", 0),
		logN:   logN,
		omega:  omega,
	}
	var stInit icicle_runtime.EIcicleError
	p.run(func() { stInit = bn254_gpu.InitDomain(omega) })
	if stInit != icicle_runtime.Success {
		return nil, fmt.Errorf("%w: init ntt domain: %s", ErrCompile, stInit.AsString())
	}
	return p, nil
}

// run executes work pinned to the program's device and blocks until done.
func (p *DeviceProgram) run(work func()) {
	done := make(chan struct{})
	icicle_runtime.RunOnDevice(&p.device, func(args ...any) {
		defer close(done)
		work()
	})
	<-done
}

func (p *DeviceProgram) Alloc(n int) (Buffer, error) {
	return p.Upload(make([]fr.Element, n))
}

func (p *DeviceProgram) Upload(values []fr.Element) (Buffer, error) {
	buf := &deviceBuffer{n: len(values)}
	var st icicle_runtime.EIcicleError = icicle_runtime.Success
	p.run(func() {
		host := icicle_core.HostSliceFromElements(values)
		host.CopyToDevice(&buf.slice, true)
		st = bn254_gpu.MontConvOnDevice(buf.slice, false)
	})
	if st != icicle_runtime.Success {
		return nil, fmt.Errorf("%w: upload %d elements: %s", ErrAllocation, len(values), st.AsString())
	}
	buf.live = true
	return buf, nil
}

func (p *DeviceProgram) Read(buf Buffer, out []fr.Element) error {
	b, err := p.deviceBuf(buf)
	if err != nil {
		return err
	}
	if len(out) != b.n {
		return fmt.Errorf("%w: read of %d elements from buffer of %d", ErrLaunch, len(out), b.n)
	}
	var st icicle_runtime.EIcicleError = icicle_runtime.Success
	p.run(func() {
		if st = bn254_gpu.MontConvOnDevice(b.slice, true); st != icicle_runtime.Success {
			return
		}
		host := icicle_core.HostSliceFromElements(out)
		host.CopyFromDevice(&b.slice)
	})
	if st != icicle_runtime.Success {
		return fmt.Errorf("%w: read back: %s", ErrLaunch, st.AsString())
	}
	return nil
}

func (p *DeviceProgram) Free(buf Buffer) {
	b, ok := buf.(*deviceBuffer)
	if !ok || b == nil || !b.live {
		return
	}
	p.run(func() { b.slice.Free() })
	b.live = false
}

func (p *DeviceProgram) Fill(dst Buffer, c fr.Element) error {
	d, err := p.deviceBuf(dst)
	if err != nil {
		return err
	}
	values := make([]fr.Element, d.n)
	for i := range values {
		values[i] = c
	}
	tmp, err := p.Upload(values)
	if err != nil {
		return err
	}
	defer p.Free(tmp)
	// canonical copy via dst = tmp + 0 is wasteful; swap the slices instead
	t := tmp.(*deviceBuffer)
	d.slice, t.slice = t.slice, d.slice
	return nil
}

func (p *DeviceProgram) Binary(op Op, dst, a, b Buffer, aShift, bShift int32) error {
	d, err := p.deviceBuf(dst)
	if err != nil {
		return err
	}
	da, err := p.deviceBuf(a)
	if err != nil {
		return err
	}
	db, err := p.deviceBuf(b)
	if err != nil {
		return err
	}
	if aShift != 0 || bShift != 0 {
		// unit rotations are folded at transform time on this backend
		return fmt.Errorf("%w: device kernels take no deferred shift (got %d, %d)", ErrLaunch, aShift, bShift)
	}
	var icOp icicle_core.VecOps
	switch op {
	case OpAdd:
		icOp = icicle_core.Add
	case OpMul:
		icOp = icicle_core.Mul
	default:
		return fmt.Errorf("%w: unknown elementwise op %d", ErrLaunch, op)
	}
	var st icicle_runtime.EIcicleError
	p.run(func() { st = bn254_gpu.VecOpOnDevice(da.slice, db.slice, d.slice, icOp) })
	if st != icicle_runtime.Success {
		return fmt.Errorf("%w: vec op: %s", ErrLaunch, st.AsString())
	}
	return nil
}

func (p *DeviceProgram) BinaryScaled(dst, a, b Buffer, aShift, bShift int32, s fr.Element) error {
	d, err := p.deviceBuf(dst)
	if err != nil {
		return err
	}
	scaled, err := p.Alloc(d.n)
	if err != nil {
		return err
	}
	defer p.Free(scaled)
	if err := p.broadcastOp(OpMul, scaled, b, bShift, s); err != nil {
		return err
	}
	return p.Binary(OpAdd, dst, a, scaled, aShift, 0)
}

func (p *DeviceProgram) BroadcastAdd(dst, a Buffer, aShift int32, c fr.Element) error {
	return p.broadcastOp(OpAdd, dst, a, aShift, c)
}

// broadcastOp combines a buffer with a broadcast scalar through one vec op.
func (p *DeviceProgram) broadcastOp(op Op, dst, a Buffer, aShift int32, c fr.Element) error {
	d, err := p.deviceBuf(dst)
	if err != nil {
		return err
	}
	cBuf, err := p.Alloc(d.n)
	if err != nil {
		return err
	}
	defer p.Free(cBuf)
	if err := p.Fill(cBuf, c); err != nil {
		return err
	}
	return p.Binary(op, dst, a, cBuf, aShift, 0)
}

func (p *DeviceProgram) ForwardTransform(buf Buffer) (Buffer, error) {
	b, err := p.deviceBuf(buf)
	if err != nil {
		return nil, err
	}
	if b.n != 1<<p.logN {
		return nil, errLaunchSize(b.n, 1<<p.logN)
	}
	var st icicle_runtime.EIcicleError
	p.run(func() { st = bn254_gpu.NttForwardOnDevice(b.slice) })
	if st != icicle_runtime.Success {
		return nil, fmt.Errorf("%w: forward ntt: %s", ErrLaunch, st.AsString())
	}
	return b, nil
}

// ForwardTransformShifted scales the coefficients by powers of omega^shift
// before the transform, which equals rotating the evaluation form by shift
// positions. The returned buffer carries no deferred shift.
func (p *DeviceProgram) ForwardTransformShifted(buf Buffer, shift int32) (Buffer, error) {
	if shift == 0 {
		return p.ForwardTransform(buf)
	}
	b, err := p.deviceBuf(buf)
	if err != nil {
		return nil, err
	}

	n := int64(1) << p.logN
	s := int64(shift) % n
	if s < 0 {
		s += n
	}
	var g fr.Element
	g.Exp(p.omega, big.NewInt(s))

	powers := make([]fr.Element, b.n)
	powers[0].SetOne()
	for i := 1; i < b.n; i++ {
		powers[i].Mul(&powers[i-1], &g)
	}
	powBuf, err := p.Upload(powers)
	if err != nil {
		return nil, err
	}
	defer p.Free(powBuf)

	if err := p.Binary(OpMul, buf, buf, powBuf, 0, 0); err != nil {
		return nil, err
	}
	return p.ForwardTransform(buf)
}

func (p *DeviceProgram) deviceBuf(buf Buffer) (*deviceBuffer, error) {
	b, ok := buf.(*deviceBuffer)
	if !ok || b == nil || !b.live {
		return nil, fmt.Errorf("%w: operand is not a live device buffer", ErrLaunch)
	}
	return b, nil
}
