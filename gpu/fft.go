package gpu

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// The radix decomposition below matches the device kernel family: each pass
// consumes up to maxLog2Radix bits of the transform, and the pq/omegas tables
// are precomputed for radix degrees up to that bound.
const (
	maxLog2Radix    = 8
	log2MaxElements = 32
)

// ForwardTransform runs the iterative radix-decomposed forward transform over
// the buffer's multiplicative subgroup. Each pass is one kernel launch over
// n>>deg workgroups with local scratch of size 2^deg, ping-ponging between a
// source and a destination buffer; the pass degree is min(maxDeg, logN-logP).
// The output is the natural-order evaluation form of the input coefficients.
func (p *HostProgram) ForwardTransform(buf Buffer) (Buffer, error) {
	src, err := p.hostBuf(buf)
	if err != nil {
		return nil, err
	}
	logN := p.logN
	n := 1 << logN
	if len(src.values) != n {
		return nil, errLaunchSize(len(src.values), n)
	}

	dstBuf, err := p.Alloc(n)
	if err != nil {
		return nil, err
	}
	dst := dstBuf.(*hostBuffer)

	maxDeg := uint32(maxLog2Radix)
	if logN < maxDeg {
		maxDeg = logN
	}

	// pq[i] = t^i for t = omega^(n/2^maxDeg), one entry per butterfly twiddle
	// of the largest radix.
	pq := make([]fr.Element, 1<<(maxDeg-1))
	var twiddle fr.Element
	twiddle.Exp(p.omega, big.NewInt(int64(n>>maxDeg)))
	pq[0].SetOne()
	if maxDeg > 1 {
		pq[1] = twiddle
		for i := 2; i < len(pq); i++ {
			pq[i].Mul(&pq[i-1], &twiddle)
		}
	}

	// omegas[i] = omega^(2^i), the square-and-multiply ladder the kernel
	// looks exponents up in.
	var omegas [log2MaxElements]fr.Element
	omegas[0] = p.omega
	for i := 1; i < log2MaxElements; i++ {
		omegas[i].Square(&omegas[i-1])
	}

	logP := uint32(0)
	for logP < logN {
		deg := maxDeg
		if logN-logP < deg {
			deg = logN - logP
		}
		p.radixPass(src.values, dst.values, pq, &omegas, logN, logP, deg, maxDeg)
		logP += deg
		src, dst = dst, src
	}

	// src holds the terminal buffer after the last swap
	p.Free(dst)
	return src, nil
}

// radixPass dispatches one transform pass: n>>deg independent workgroups,
// each combining 2^deg strided elements through deg butterfly rounds in local
// scratch before scattering them bit-reversed into the destination.
func (p *HostProgram) radixPass(src, dst []fr.Element, pq []fr.Element, omegas *[log2MaxElements]fr.Element, logN, logP, deg, maxDeg uint32) {
	n := uint32(1) << logN
	groups := int(n >> deg)
	count := uint32(1) << deg

	parallelize(groups, func(start, end int) {
		u := make([]fr.Element, count)
		var tmp fr.Element
		for g := start; g < end; g++ {
			index := uint32(g)
			t := n >> deg
			pp := uint32(1) << logP
			k := index & (pp - 1)

			xBase := index            // stride t into src
			yBase := (index-k)<<deg + k // stride pp into dst

			twiddle := powLookup(omegas, uint64(n>>logP>>deg)*uint64(k))

			tmp.SetOne()
			for i := uint32(0); i < count; i++ {
				u[i].Mul(&tmp, &src[xBase+i*t])
				tmp.Mul(&tmp, &twiddle)
			}

			pqShift := maxDeg - deg
			for rnd := uint32(0); rnd < deg; rnd++ {
				bit := (count >> 1) >> rnd
				for i := uint32(0); i < count>>1; i++ {
					di := i & (bit - 1)
					i0 := (i << 1) - di
					i1 := i0 + bit
					tmp = u[i0]
					u[i0].Add(&u[i0], &u[i1])
					u[i1].Sub(&tmp, &u[i1])
					if di != 0 {
						u[i1].Mul(&u[i1], &pq[di<<rnd<<pqShift])
					}
				}
			}

			for i := uint32(0); i < count; i++ {
				dst[yBase+i*pp] = u[bitReverse(i, deg)]
			}
		}
	})
}

// powLookup computes omega^e from the omegas ladder by binary decomposition
// of the exponent.
func powLookup(omegas *[log2MaxElements]fr.Element, e uint64) fr.Element {
	var res fr.Element
	res.SetOne()
	for i := 0; e > 0; i, e = i+1, e>>1 {
		if e&1 == 1 {
			res.Mul(&res, &omegas[i])
		}
	}
	return res
}

// bitReverse reverses the low bits many bits of v.
func bitReverse(v, bits uint32) uint32 {
	var r uint32
	for i := uint32(0); i < bits; i++ {
		r = r<<1 | (v>>i)&1
	}
	return r
}
