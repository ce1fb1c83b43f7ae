// Package halo2gpu evaluates the constraint expressions of a PLONK-style
// proving system over the extended evaluation domain, on an accelerator when
// one is available and on a behaviorally identical host program otherwise.
package halo2gpu

import (
	"errors"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/logger"

	"github.com/hyperoracle/halo2-gpu-specific/gpu"
	"github.com/hyperoracle/halo2-gpu-specific/plonk"
)

// NewProgram returns a program bound to the proving key's extended domain:
// the accelerated one when the binary carries the icicle backend and a device
// initializes, the host program otherwise. Device unavailability downgrades
// to the host path; any other device error is returned as-is.
func NewProgram(pk *plonk.ProvingKey) (gpu.Program, error) {
	log := logger.Logger()
	if gpu.HasIcicle {
		p, err := gpu.NewDeviceProgram(pk.Domain.ExtendedK, pk.Domain.ExtendedOmega)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gpu.ErrDeviceUnavailable) {
			return nil, err
		}
		log.Warn().Err(err).Msg("accelerator unavailable, falling back to host evaluation")
	}
	return gpu.NewHostProgram(pk.Domain.ExtendedK, pk.Domain.ExtendedOmega), nil
}

// EvaluateExpression evaluates one gate-combination tree and returns its
// values on the extended evaluation basis.
func EvaluateExpression(pk *plonk.ProvingKey, advice, instance [][]fr.Element, y fr.Element, e plonk.ProveExpression) ([]fr.Element, error) {
	program, err := NewProgram(pk)
	if err != nil {
		return nil, err
	}
	return plonk.NewEvaluator(program, pk, advice, instance, y).Evaluate(e)
}

// EvaluateLookupExpression evaluates one lookup operator chain under the
// challenges theta, beta and gamma.
func EvaluateLookupExpression(pk *plonk.ProvingKey, advice, instance [][]fr.Element, y, theta, beta, gamma fr.Element, e plonk.LookupProveExpression) ([]fr.Element, error) {
	program, err := NewProgram(pk)
	if err != nil {
		return nil, err
	}
	ev := plonk.NewEvaluator(program, pk, advice, instance, y)
	return plonk.NewLookupEvaluator(ev, theta, beta, gamma).EvaluateLookup(e)
}
