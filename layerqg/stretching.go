package layerqg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"qgflow/grid"
)

// Stretching couples potential vorticity and streamfunction across layers.
// For every horizontal wavenumber it caches the dense relation
// qh = S * psih with S = -k^2*I + F, where F is the wavenumber-independent
// tridiagonal coupling built from Fp and Fm, together with the inverse
// relation psih = invS * qh. With a single layer the relation collapses to
// the scalar qh = -k^2*psih and no matrices are stored.
//
// The k^2 = 0 mode is singular: the inverse there is built from the k^2 = 1
// matrix and then zeroed, so the domain-mean PV never feeds the
// streamfunction.
type Stretching struct {
	nlayers int
	g       *grid.Grid

	// s[l][k] and invS[l][k] are nlayers x nlayers row-major matrices.
	// Both are nil in the single-layer case.
	s    [][][]float64
	invS [][][]float64
}

// NewStretching builds and caches the per-wavenumber matrices. fp and fm
// are the interface coupling coefficients; both must have nlayers-1 entries.
func NewStretching(g *grid.Grid, nlayers int, fp, fm []float64) (*Stretching, error) {
	if nlayers < 1 {
		return nil, fmt.Errorf("need at least one layer, got %d", nlayers)
	}
	st := &Stretching{nlayers: nlayers, g: g}
	if nlayers == 1 {
		return st, nil
	}
	if len(fp) != nlayers-1 || len(fm) != nlayers-1 {
		return nil, fmt.Errorf("expected %d interface coefficients, got Fp=%d Fm=%d",
			nlayers-1, len(fp), len(fm))
	}

	coupling := couplingMatrix(nlayers, fp, fm)

	n := nlayers
	st.s = make([][][]float64, g.Nl)
	st.invS = make([][][]float64, g.Nl)
	var inv mat.Dense
	for l := 0; l < g.Nl; l++ {
		st.s[l] = make([][]float64, g.Nkr)
		st.invS[l] = make([][]float64, g.Nkr)
		for k := 0; k < g.Nkr; k++ {
			ksq := g.Krsq[l][k]
			s := make([]float64, n*n)
			copy(s, coupling)
			for d := 0; d < n; d++ {
				s[d*n+d] -= ksq
			}
			st.s[l][k] = s

			// The zero mode is inverted with k^2 substituted by 1 and the
			// result discarded below, keeping the solve well posed.
			a := s
			if ksq == 0 {
				a = make([]float64, n*n)
				copy(a, coupling)
				for d := 0; d < n; d++ {
					a[d*n+d] -= 1
				}
			}
			if err := inv.Inverse(mat.NewDense(n, n, a)); err != nil {
				return nil, fmt.Errorf("stretching matrix singular at wavenumber (%d,%d): %w", k, l, err)
			}
			si := make([]float64, n*n)
			for r := 0; r < n; r++ {
				for c := 0; c < n; c++ {
					si[r*n+c] = inv.At(r, c)
				}
			}
			if ksq == 0 {
				for i := range si {
					si[i] = 0
				}
			}
			st.invS[l][k] = si
		}
	}
	return st, nil
}

// couplingMatrix assembles the tridiagonal layer coupling F in row-major
// form: row j couples to the layer above through Fp[j-1] and to the layer
// below through Fm[j].
func couplingMatrix(n int, fp, fm []float64) []float64 {
	f := make([]float64, n*n)
	for j := 0; j < n; j++ {
		var diag float64
		if j > 0 {
			f[j*n+j-1] = fp[j-1]
			diag -= fp[j-1]
		}
		if j < n-1 {
			f[j*n+j+1] = fm[j]
			diag -= fm[j]
		}
		f[j*n+j] = diag
	}
	return f
}

// PVFromStreamfunction applies S pointwise: qh[.][l][k] = S(l,k) * psih[.][l][k].
func (st *Stretching) PVFromStreamfunction(qh, psih [][][]complex128) {
	if st.nlayers == 1 {
		for l := 0; l < st.g.Nl; l++ {
			for k := 0; k < st.g.Nkr; k++ {
				qh[0][l][k] = complex(-st.g.Krsq[l][k], 0) * psih[0][l][k]
			}
		}
		return
	}
	st.apply(st.s, qh, psih)
}

// StreamfunctionFromPV applies the cached inverse pointwise:
// psih[.][l][k] = invS(l,k) * qh[.][l][k]. The zero mode of psih is always
// zero regardless of the PV supplied there.
func (st *Stretching) StreamfunctionFromPV(psih, qh [][][]complex128) {
	if st.nlayers == 1 {
		// InvKrsq vanishes at the zero mode, which pins psih(0,0) to zero.
		for l := 0; l < st.g.Nl; l++ {
			for k := 0; k < st.g.Nkr; k++ {
				psih[0][l][k] = complex(-st.g.InvKrsq[l][k], 0) * qh[0][l][k]
			}
		}
		return
	}
	st.apply(st.invS, psih, qh)
}

// apply performs the dense matrix-vector product across layers at every
// wavenumber: dst[.][l][k] = m(l,k) * src[.][l][k]. dst and src must not
// alias, since every layer of src is read for each layer of dst.
func (st *Stretching) apply(m [][][]float64, dst, src [][][]complex128) {
	n := st.nlayers
	for l := 0; l < st.g.Nl; l++ {
		for k := 0; k < st.g.Nkr; k++ {
			a := m[l][k]
			for r := 0; r < n; r++ {
				var acc complex128
				for c := 0; c < n; c++ {
					acc += complex(a[r*n+c], 0) * src[c][l][k]
				}
				dst[r][l][k] = acc
			}
		}
	}
}
