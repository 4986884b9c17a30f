package grid

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Plan executes forward and inverse real transforms over layered fields on
// a fixed grid. The forward transform is unnormalized; the inverse carries
// the full 1/(Nx*Ny) factor, so Inverse(Forward(f)) reproduces f.
//
// A Plan owns a scratch buffer for the redundant spectral half and is not
// safe for concurrent use; allocate one plan per worker.
type Plan struct {
	g       *Grid
	nlayers int
	full    [][]complex128 // full Ny x Nx spectrum scratch
}

// NewPlan builds a transform plan tied to a layer count.
func NewPlan(g *Grid, nlayers int) (*Plan, error) {
	if nlayers < 1 {
		return nil, fmt.Errorf("plan needs at least one layer, got %d", nlayers)
	}
	full := make([][]complex128, g.Ny)
	for l := range full {
		full[l] = make([]complex128, g.Nx)
	}
	return &Plan{g: g, nlayers: nlayers, full: full}, nil
}

// NLayers reports the layer count the plan was built for.
func (p *Plan) NLayers() int { return p.nlayers }

// Forward transforms the layered physical field src into the half-complex
// spectral field dst. src is left untouched.
func (p *Plan) Forward(dst [][][]complex128, src [][][]float64) {
	for j := 0; j < p.nlayers; j++ {
		p.ForwardField(dst[j], src[j])
	}
}

// Inverse transforms the layered half-complex field src back to physical
// space in dst. src is left untouched.
func (p *Plan) Inverse(dst [][][]float64, src [][][]complex128) {
	for j := 0; j < p.nlayers; j++ {
		p.InverseField(dst[j], src[j])
	}
}

// ForwardField transforms a single Ny x Nx physical field into its
// half-complex spectrum, keeping the Nkr non-negative x-wavenumber columns.
func (p *Plan) ForwardField(dst [][]complex128, src [][]float64) {
	fullh := fft.FFT2Real(src)
	for l := 0; l < p.g.Nl; l++ {
		copy(dst[l], fullh[l][:p.g.Nkr])
	}
}

// InverseField reconstructs the redundant spectral half by Hermitian
// symmetry, inverse-transforms, and stores the real part into dst.
func (p *Plan) InverseField(dst [][]float64, src [][]complex128) {
	nx, ny, nkr := p.g.Nx, p.g.Ny, p.g.Nkr
	for l := 0; l < ny; l++ {
		copy(p.full[l][:nkr], src[l])
		for k := nkr; k < nx; k++ {
			lc := (ny - l) % ny
			p.full[l][k] = cmplx.Conj(src[lc][nx-k])
		}
	}
	out := fft.IFFT2(p.full)
	for l := 0; l < ny; l++ {
		for i := 0; i < nx; i++ {
			dst[l][i] = real(out[l][i])
		}
	}
}
