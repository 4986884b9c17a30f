// Package grid provides the periodic horizontal domain, wavenumber arrays
// and real Fourier transform plans consumed by the spectral solvers.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Grid describes a doubly-periodic rectangular domain of Nx x Ny points and
// its transform-space counterpart. Spectral fields are stored half-complex:
// only the non-negative x-wavenumbers are kept (Nkr = Nx/2 + 1 of them),
// while the y-wavenumbers run over the full FFT ordering (Nl = Ny).
type Grid struct {
	Nx, Ny int
	Lx, Ly float64
	Dx, Dy float64

	// Cell-centred coordinates, x in [-Lx/2, Lx/2) and likewise for y.
	X, Y []float64

	Nkr, Nl int
	Kr      []float64 // non-negative x-wavenumbers, Kr[i] = 2*pi*i/Lx
	L       []float64 // y-wavenumbers in FFT order

	// Krsq[l][k] = Kr[k]^2 + L[l]^2, and its safe reciprocal with the
	// singular zero mode replaced by zero.
	Krsq    [][]float64
	InvKrsq [][]float64

	// aliased marks the wavenumbers outside the inner 2/3 of the spectrum.
	aliased [][]bool
}

// New constructs a grid for a domain of extent Lx x Ly resolved by nx x ny
// points. Both resolutions must be even so the half-complex spectrum has an
// unambiguous Nyquist column.
func New(nx, ny int, lx, ly float64) (*Grid, error) {
	if nx < 4 || ny < 4 {
		return nil, fmt.Errorf("grid resolution %dx%d too small, need at least 4x4", nx, ny)
	}
	if nx%2 != 0 || ny%2 != 0 {
		return nil, errors.New("grid resolutions must be even")
	}
	if lx <= 0 || ly <= 0 {
		return nil, errors.New("domain extents must be positive")
	}

	g := &Grid{
		Nx: nx, Ny: ny,
		Lx: lx, Ly: ly,
		Dx: lx / float64(nx),
		Dy: ly / float64(ny),
	}

	// Coordinates span [-L/2, L/2) without the right endpoint, so the
	// spacing is exactly L/n.
	g.X = make([]float64, nx)
	g.Y = make([]float64, ny)
	floats.Span(g.X, -lx/2, lx/2-g.Dx)
	floats.Span(g.Y, -ly/2, ly/2-g.Dy)

	g.Nkr = nx/2 + 1
	g.Nl = ny
	g.Kr = make([]float64, g.Nkr)
	for i := range g.Kr {
		g.Kr[i] = 2 * math.Pi * float64(i) / lx
	}
	g.L = fftWavenumbers(ny, ly)

	g.Krsq = make([][]float64, g.Nl)
	g.InvKrsq = make([][]float64, g.Nl)
	g.aliased = make([][]bool, g.Nl)
	for l := 0; l < g.Nl; l++ {
		g.Krsq[l] = make([]float64, g.Nkr)
		g.InvKrsq[l] = make([]float64, g.Nkr)
		g.aliased[l] = make([]bool, g.Nkr)
		for k := 0; k < g.Nkr; k++ {
			ksq := g.Kr[k]*g.Kr[k] + g.L[l]*g.L[l]
			g.Krsq[l][k] = ksq
			if ksq > 0 {
				g.InvKrsq[l][k] = 1 / ksq
			}
			g.aliased[l][k] = k > nx/3 || fftFreqMagnitude(l, ny) > ny/3
		}
	}

	return g, nil
}

// fftWavenumbers returns the n wavenumbers of an unnormalized length-n FFT
// along an axis of extent length, in the standard FFT ordering
// [0, 1, ..., n/2-1, -n/2, ..., -1] * 2*pi/length.
func fftWavenumbers(n int, length float64) []float64 {
	k := make([]float64, n)
	scale := 2 * math.Pi / length
	for i := 0; i < n; i++ {
		freq := float64(i)
		if i >= (n+1)/2 {
			freq = float64(i - n)
		}
		k[i] = freq * scale
	}
	return k
}

// fftFreqMagnitude returns |m| for the integer frequency m stored at FFT
// index i of a length-n transform.
func fftFreqMagnitude(i, n int) int {
	if i >= (n+1)/2 {
		return n - i
	}
	return i
}

// NewPhysicalField allocates a zeroed physical-space field with nlayers
// layers of Ny x Nx points.
func (g *Grid) NewPhysicalField(nlayers int) [][][]float64 {
	f := make([][][]float64, nlayers)
	for j := range f {
		f[j] = make([][]float64, g.Ny)
		for y := range f[j] {
			f[j][y] = make([]float64, g.Nx)
		}
	}
	return f
}

// NewSpectralField allocates a zeroed half-complex spectral field with
// nlayers layers of Nl x Nkr modes.
func (g *Grid) NewSpectralField(nlayers int) [][][]complex128 {
	f := make([][][]complex128, nlayers)
	for j := range f {
		f[j] = make([][]complex128, g.Nl)
		for l := range f[j] {
			f[j][l] = make([]complex128, g.Nkr)
		}
	}
	return f
}

// ParsevalSum returns the domain integral corresponding to the real summand
// fh defined over the half spectrum. Columns that stand for a conjugate
// pair in the full spectrum are counted twice; the k=0 and Nyquist columns
// are self-conjugate and counted once.
func (g *Grid) ParsevalSum(fh [][]float64) float64 {
	var sum float64
	for l := 0; l < g.Nl; l++ {
		row := fh[l]
		sum += row[0] + row[g.Nkr-1]
		for k := 1; k < g.Nkr-1; k++ {
			sum += 2 * row[k]
		}
	}
	// The forward transform is unnormalized, so Parseval carries 1/(Nx*Ny)
	// per direction; the Lx*Ly factor converts the mean to an integral.
	return sum * g.Lx * g.Ly / (float64(g.Nx) * float64(g.Nx) * float64(g.Ny) * float64(g.Ny))
}

// ParsevalSum2 returns the domain integral of |f|^2 computed from the
// half-complex spectrum of f.
func (g *Grid) ParsevalSum2(fh [][]complex128) float64 {
	var sum float64
	for l := 0; l < g.Nl; l++ {
		row := fh[l]
		sum += absSq(row[0]) + absSq(row[g.Nkr-1])
		for k := 1; k < g.Nkr-1; k++ {
			sum += 2 * absSq(row[k])
		}
	}
	return sum * g.Lx * g.Ly / (float64(g.Nx) * float64(g.Nx) * float64(g.Ny) * float64(g.Ny))
}

func absSq(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}

// Dealias zeroes every wavenumber of fh outside the inner 2/3 of the
// spectrum. It is offered to callers that form their own quadratic products;
// the solver core never applies it on its own.
func (g *Grid) Dealias(fh [][][]complex128) {
	for j := range fh {
		for l := 0; l < g.Nl; l++ {
			for k := 0; k < g.Nkr; k++ {
				if g.aliased[l][k] {
					fh[j][l][k] = 0
				}
			}
		}
	}
}
