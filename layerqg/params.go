// Package layerqg implements the spectral core of a multi-layer
// quasi-geostrophic solver: inversion of potential vorticity for the
// streamfunction through the layer-coupling stretching matrices, the
// pseudospectral tendency consumed by a time integrator, and the energy and
// flux diagnostics. Layers are ordered top to bottom; the spectral PV field
// is the single authoritative state, everything else is derived from it.
package layerqg

import (
	"errors"
	"fmt"

	"github.com/mjibson/go-dsp/fft"

	"qgflow/grid"
	"qgflow/stepper"
)

// ForcingFunc fills the forcing buffer fqh with the spectral PV forcing at
// time t. It may read the current state sol and the scratch vars but must
// not modify them; any error it returns propagates unmodified to the caller
// of the tendency.
type ForcingFunc func(fqh, sol [][][]complex128, t float64, clk stepper.Clock, v *Vars, p *Params, g *grid.Grid) error

// Config collects the user-facing description of a layered problem.
type Config struct {
	NLayers int

	F0   float64 // Coriolis parameter
	Beta float64 // planetary vorticity gradient
	G    float64 // gravitational acceleration, sets the reduced gravities

	Rho []float64 // layer densities, strictly increasing downward
	H   []float64 // layer rest thicknesses, all positive

	// U is the imposed background zonal flow per layer: nil for a layer at
	// rest, a single value for uniform flow, or one value per y point.
	U [][]float64

	// Eta is the bottom-topography PV contribution, shaped [Ny][Nx].
	// Nil means a flat bottom.
	Eta [][]float64

	Mu  float64 // bottom linear drag coefficient
	Nu  float64 // small-scale (hyper)viscosity coefficient
	NNu int     // hyperviscosity order; 1 is a plain Laplacian

	Linear  bool        // evolve the equations linearized about U
	Forcing ForcingFunc // optional PV forcing; nil disables the hook
}

// Params holds the validated layer structure and every constant derived
// from it. All fields are set once at construction and never mutated.
type Params struct {
	NLayers int
	F0      float64
	Beta    float64
	G       float64
	Rho     []float64
	H       []float64
	SumH    float64
	U       [][]float64 // background flow broadcast to [NLayers][Ny]
	Eta     [][]float64 // [Ny][Nx], zeros for a flat bottom
	Mu      float64
	Nu      float64
	NNu     int

	// Interface coupling, NLayers-1 entries each. GPrime is the reduced
	// gravity g*(rho[i+1]-rho[i])/rho[i+1]; Fp couples an interface to the
	// layer below it, Fm to the layer above.
	GPrime []float64
	Fp, Fm []float64

	// Background PV gradients, [NLayers][Ny][Nx].
	Qx, Qy [][][]float64
}

func newParams(g *grid.Grid, cfg Config) (*Params, error) {
	n := cfg.NLayers
	if n < 1 {
		return nil, fmt.Errorf("need at least one layer, got %d", n)
	}
	if len(cfg.H) != n {
		return nil, fmt.Errorf("expected %d layer thicknesses, got %d", n, len(cfg.H))
	}
	if len(cfg.Rho) != n {
		return nil, fmt.Errorf("expected %d layer densities, got %d", n, len(cfg.Rho))
	}
	for j, h := range cfg.H {
		if h <= 0 {
			return nil, fmt.Errorf("layer %d thickness must be positive, got %g", j, h)
		}
	}
	for j := 1; j < n; j++ {
		if cfg.Rho[j] <= cfg.Rho[j-1] {
			return nil, fmt.Errorf("density must increase downward, layer %d has %g below %g", j, cfg.Rho[j], cfg.Rho[j-1])
		}
	}
	if n > 1 && cfg.G <= 0 {
		return nil, errors.New("multi-layer configurations need a positive gravitational acceleration")
	}
	if cfg.Mu < 0 {
		return nil, fmt.Errorf("bottom drag must be non-negative, got %g", cfg.Mu)
	}
	if cfg.Nu < 0 {
		return nil, fmt.Errorf("viscosity must be non-negative, got %g", cfg.Nu)
	}
	nnu := cfg.NNu
	if cfg.Nu > 0 && nnu < 1 {
		return nil, fmt.Errorf("hyperviscosity order must be at least 1, got %d", nnu)
	}

	u, err := broadcastFlow(cfg.U, n, g.Ny)
	if err != nil {
		return nil, err
	}
	eta, err := checkTopography(cfg.Eta, g)
	if err != nil {
		return nil, err
	}

	p := &Params{
		NLayers: n,
		F0:      cfg.F0,
		Beta:    cfg.Beta,
		G:       cfg.G,
		Rho:     append([]float64(nil), cfg.Rho...),
		H:       append([]float64(nil), cfg.H...),
		U:       u,
		Eta:     eta,
		Mu:      cfg.Mu,
		Nu:      cfg.Nu,
		NNu:     nnu,
	}
	for _, h := range p.H {
		p.SumH += h
	}

	if n > 1 {
		p.GPrime = make([]float64, n-1)
		p.Fp = make([]float64, n-1)
		p.Fm = make([]float64, n-1)
		for i := 0; i < n-1; i++ {
			p.GPrime[i] = cfg.G * (cfg.Rho[i+1] - cfg.Rho[i]) / cfg.Rho[i+1]
			p.Fp[i] = cfg.F0 * cfg.F0 / (p.GPrime[i] * cfg.H[i+1])
			p.Fm[i] = cfg.F0 * cfg.F0 / (p.GPrime[i] * cfg.H[i])
		}
	}

	return p, nil
}

// broadcastFlow expands the per-layer background flow spec to [n][ny].
func broadcastFlow(u [][]float64, n, ny int) ([][]float64, error) {
	if u != nil && len(u) != n {
		return nil, fmt.Errorf("expected background flow for %d layers, got %d", n, len(u))
	}
	out := make([][]float64, n)
	for j := range out {
		out[j] = make([]float64, ny)
		if u == nil || u[j] == nil {
			continue
		}
		switch len(u[j]) {
		case 1:
			for y := range out[j] {
				out[j][y] = u[j][0]
			}
		case ny:
			copy(out[j], u[j])
		default:
			return nil, fmt.Errorf("layer %d background flow has %d points, want 1 or %d", j, len(u[j]), ny)
		}
	}
	return out, nil
}

func checkTopography(eta [][]float64, g *grid.Grid) ([][]float64, error) {
	out := make([][]float64, g.Ny)
	for y := range out {
		out[y] = make([]float64, g.Nx)
	}
	if eta == nil {
		return out, nil
	}
	if len(eta) != g.Ny {
		return nil, fmt.Errorf("topography has %d rows, want %d", len(eta), g.Ny)
	}
	for y := range eta {
		if len(eta[y]) != g.Nx {
			return nil, fmt.Errorf("topography row %d has %d points, want %d", y, len(eta[y]), g.Nx)
		}
		copy(out[y], eta[y])
	}
	return out, nil
}

// deriveBackgroundPV fills Qx and Qy. Qy combines the planetary gradient,
// the meridional curvature of the background flow (differentiated in
// transform space), and the interface shear corrections; the bottom layer
// additionally carries the topography gradients, which are Qx's only
// contribution.
func (p *Params) deriveBackgroundPV(g *grid.Grid, plan *grid.Plan) {
	n := p.NLayers
	p.Qx = g.NewPhysicalField(n)
	p.Qy = g.NewPhysicalField(n)

	uyy := make([][]float64, n)
	for j := 0; j < n; j++ {
		uyy[j] = secondDerivativeY(p.U[j], g)
	}

	for j := 0; j < n; j++ {
		for y := 0; y < g.Ny; y++ {
			qy := p.Beta - uyy[j][y]
			if j > 0 {
				qy -= p.Fp[j-1] * (p.U[j-1][y] - p.U[j][y])
			}
			if j < n-1 {
				qy -= p.Fm[j] * (p.U[j+1][y] - p.U[j][y])
			}
			for x := 0; x < g.Nx; x++ {
				p.Qy[j][y][x] = qy
			}
		}
	}

	// Topography enters the bottom layer only.
	etah := make([][]complex128, g.Nl)
	etaxh := make([][]complex128, g.Nl)
	etayh := make([][]complex128, g.Nl)
	for l := range etah {
		etah[l] = make([]complex128, g.Nkr)
		etaxh[l] = make([]complex128, g.Nkr)
		etayh[l] = make([]complex128, g.Nkr)
	}
	plan.ForwardField(etah, p.Eta)
	for l := 0; l < g.Nl; l++ {
		for k := 0; k < g.Nkr; k++ {
			etaxh[l][k] = complex(0, g.Kr[k]) * etah[l][k]
			etayh[l][k] = complex(0, g.L[l]) * etah[l][k]
		}
	}
	bottom := n - 1
	etax := p.Qx[bottom] // fill the bottom layer in place
	plan.InverseField(etax, etaxh)
	etay := make([][]float64, g.Ny)
	for y := range etay {
		etay[y] = make([]float64, g.Nx)
	}
	plan.InverseField(etay, etayh)
	for y := 0; y < g.Ny; y++ {
		for x := 0; x < g.Nx; x++ {
			p.Qy[bottom][y][x] += etay[y][x]
		}
	}
}

// secondDerivativeY differentiates a y-profile twice by multiplying its
// transform by -l^2.
func secondDerivativeY(u []float64, g *grid.Grid) []float64 {
	uh := fft.FFTReal(u)
	for l := range uh {
		uh[l] *= complex(-g.L[l]*g.L[l], 0)
	}
	back := fft.IFFT(uh)
	out := make([]float64, len(u))
	for y := range out {
		out[y] = real(back[y])
	}
	return out
}
