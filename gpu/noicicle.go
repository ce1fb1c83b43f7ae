//go:build !icicle

package gpu

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

const HasIcicle = false

// NewDeviceProgram reports that no accelerator is available; callers fall
// back to the host program for the identical expression tree.
func NewDeviceProgram(logN uint32, omega fr.Element) (Program, error) {
	return nil, fmt.Errorf("%w: compiled without the icicle build tag", ErrDeviceUnavailable)
}
