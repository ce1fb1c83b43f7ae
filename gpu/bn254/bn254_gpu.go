//go:build icicle

// Thin wrappers over the icicle bn254 device primitives, keeping the
// status-code plumbing in one place.
package bn254_gpu

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	icicle_core "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/core"
	icicle_bn254 "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/curves/bn254"
	icicle_ntt "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/curves/bn254/ntt"
	icicle_vecops "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/curves/bn254/vecOps"
	icicle_runtime "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/runtime"
)

// RouFromElement converts a root of unity to the limb layout InitDomain
// expects.
func RouFromElement(g fr.Element) icicle_bn254.ScalarField {
	bits := g.Bits()
	limbs := icicle_core.ConvertUint64ArrToUint32Arr(bits[:])
	var rou icicle_bn254.ScalarField
	return rou.FromLimbs(limbs)
}

// InitDomain initializes the device NTT domain for the given root of unity.
func InitDomain(g fr.Element) icicle_runtime.EIcicleError {
	if st := icicle_ntt.ReleaseDomain(); st != icicle_runtime.Success {
		return st
	}
	return icicle_ntt.InitDomain(RouFromElement(g), icicle_core.GetDefaultNTTInitDomainConfig())
}

// NttForwardOnDevice runs an in-place forward NTT in natural ordering.
// The transform is linear, so it is representation-agnostic: canonical
// buffers stay canonical.
func NttForwardOnDevice(dev icicle_core.DeviceSlice) icicle_runtime.EIcicleError {
	cfg := icicle_ntt.GetDefaultNttConfig()
	cfg.Ordering = icicle_core.KNN
	return icicle_ntt.Ntt(dev, icicle_core.KForward, &cfg, dev)
}

// VecOpOnDevice computes out = a op b elementwise. Inputs must be in
// canonical (non-Montgomery) representation.
func VecOpOnDevice(a, b, out icicle_core.DeviceSlice, op icicle_core.VecOps) icicle_runtime.EIcicleError {
	cfg := icicle_core.DefaultVecOpsConfig()
	return icicle_vecops.VecOp(a, b, out, cfg, op)
}

// MontConvOnDevice converts a scalar array between representations in place.
// into=true converts to Montgomery, into=false to canonical.
func MontConvOnDevice(s icicle_core.DeviceSlice, into bool) icicle_runtime.EIcicleError {
	if into {
		return icicle_bn254.ToMontgomery(s)
	}
	return icicle_bn254.FromMontgomery(s)
}
