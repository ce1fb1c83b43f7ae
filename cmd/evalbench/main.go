// evalbench measures what the greedy refactoring buys on a synthetic
// multi-gate circuit: it compares the naive sum-of-products kernel count
// against the reconstructed tree's, then times host evaluations across a
// range of domain sizes.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	halo2gpu "github.com/hyperoracle/halo2-gpu-specific"
	"github.com/hyperoracle/halo2-gpu-specific/plonk"
	"github.com/hyperoracle/halo2-gpu-specific/poly"
)

func main() {
	kMin := flag.Uint("kmin", 8, "smallest log2 row count")
	kMax := flag.Uint("kmax", 14, "largest log2 row count")
	seed := flag.Int64("seed", 42, "witness seed")
	flag.Parse()

	gates := syntheticGates()
	composed := plonk.ComposeGates(gates)
	flat := plonk.Flatten(composed)
	tree := plonk.Reconstruct(flat)

	fmt.Printf("gates: %d\n", len(gates))
	fmt.Printf("naive kernels:         %d\n", flat.NaiveOperationCount())
	fmt.Printf("reconstructed kernels: %d\n", plonk.OperationCount(tree))

	maxDeg, _ := composed.GetDegree()
	bar := progressbar.Default(int64(*kMax-*kMin+1), "evaluating")
	for k := uint32(*kMin); k <= uint32(*kMax); k++ {
		domain, err := poly.NewEvaluationDomain(k, maxDeg)
		if err != nil {
			log.Fatalln(err)
		}
		pk, advice, instance := randomAssignment(domain, *seed)

		var y fr.Element
		y.SetUint64(2)

		var naiveTook, refactoredTook time.Duration
		g := new(errgroup.Group)
		g.Go(func() error {
			start := time.Now()
			_, err := halo2gpu.EvaluateExpression(pk, advice, instance, y, composed)
			naiveTook = time.Since(start)
			return err
		})
		g.Go(func() error {
			start := time.Now()
			_, err := halo2gpu.EvaluateExpression(pk, advice, instance, y, tree)
			refactoredTook = time.Since(start)
			return err
		})
		if err := g.Wait(); err != nil {
			log.Fatalln(err)
		}
		fmt.Printf("k=%2d extended_k=%2d naive=%s refactored=%s\n",
			k, domain.ExtendedK, naiveTook, refactoredTook)
		_ = bar.Add(1)
	}
}

// syntheticGates builds a small gate set exercising every column kind and a
// spread of rotations, so the factoring has shared units to pull out.
func syntheticGates() []plonk.ProveExpression {
	a0 := plonk.NewUnit(plonk.Advice, 0, poly.Cur())
	a1 := plonk.NewUnit(plonk.Advice, 1, poly.Cur())
	a0next := plonk.NewUnit(plonk.Advice, 0, poly.Next())
	a2prev := plonk.NewUnit(plonk.Advice, 2, poly.Prev())
	f0 := plonk.NewUnit(plonk.Fixed, 0, poly.Cur())
	i0 := plonk.NewUnit(plonk.Instance, 0, poly.Cur())

	var three fr.Element
	three.SetUint64(3)

	return []plonk.ProveExpression{
		// a0*a1 - a0(next)
		plonk.NewSum(plonk.NewProduct(a0, a1), plonk.NewNegated(a0next)),
		// f0 * (a0 + a1) * a0
		plonk.NewProduct(f0, plonk.NewProduct(plonk.NewSum(a0.Clone(), a1.Clone()), a0.Clone())),
		// a2(prev) * (a0*a1 + 3)
		plonk.NewProduct(a2prev, plonk.NewSum(plonk.NewProduct(a0.Clone(), a1.Clone()), plonk.NewConstant(three))),
		// i0 - a0
		plonk.NewSum(i0, plonk.NewNegated(a0.Clone())),
	}
}

func randomAssignment(domain *poly.EvaluationDomain, seed int64) (*plonk.ProvingKey, [][]fr.Element, [][]fr.Element) {
	rng := rand.New(rand.NewSource(seed))
	column := func() []fr.Element {
		values := make([]fr.Element, domain.Size())
		for i := range values {
			values[i].SetUint64(rng.Uint64())
		}
		return values
	}
	pk := &plonk.ProvingKey{
		Domain:      domain,
		FixedValues: [][]fr.Element{column()},
	}
	advice := [][]fr.Element{column(), column(), column()}
	instance := [][]fr.Element{column()}
	return pk, advice, instance
}
