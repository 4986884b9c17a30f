package layerqg

// Energies returns the domain-integrated kinetic energy of every layer and,
// for multi-layer configurations, the potential energy of every interface.
// Single-layer problems return a one-element KE slice and a nil PE slice.
//
// The streamfunction is recomputed from the authoritative PV first, so the
// result never depends on stale scratch state.
func (prob *Problem) Energies() (ke, pe []float64) {
	v, p, g := prob.Vars, prob.Params, prob.Grid
	n := p.NLayers

	copySpectral(v.Qh, prob.Sol)
	prob.Stretch.StreamfunctionFromPV(v.Psih, v.Qh)

	summand := make([][]float64, g.Nl)
	for l := range summand {
		summand[l] = make([]float64, g.Nkr)
	}

	norm := 1 / (2 * g.Lx * g.Ly)

	ke = make([]float64, n)
	for j := 0; j < n; j++ {
		for l := 0; l < g.Nl; l++ {
			for k := 0; k < g.Nkr; k++ {
				summand[l][k] = g.Krsq[l][k] * modSq(v.Psih[j][l][k])
			}
		}
		ke[j] = norm * g.ParsevalSum(summand) * p.H[j] / p.SumH
	}
	if n == 1 {
		return ke, nil
	}

	pe = make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		for l := 0; l < g.Nl; l++ {
			for k := 0; k < g.Nkr; k++ {
				summand[l][k] = modSq(v.Psih[i+1][l][k] - v.Psih[i][l][k])
			}
		}
		pe[i] = norm * p.F0 * p.F0 / p.GPrime[i] * g.ParsevalSum(summand)
	}
	return ke, pe
}

// Fluxes returns the lateral eddy flux of every layer,
// <H*U*v*du/dy> weighted by layer thickness, and the vertical eddy flux of
// every interface, (f0^2/g')*(U_i - U_{i+1})*<v_{i+1}*psi_i>, both
// normalized by the total depth and the domain area. All physical fields
// are refreshed from the authoritative PV before anything is summed.
func (prob *Problem) Fluxes() (lateral, vertical []float64) {
	prob.UpdateVars()
	v, p, g := prob.Vars, prob.Params, prob.Grid
	n := p.NLayers

	// du/dy, differentiated in transform space.
	uyh := g.NewSpectralField(n)
	uy := g.NewPhysicalField(n)
	for j := 0; j < n; j++ {
		for l := 0; l < g.Nl; l++ {
			il := complex(0, g.L[l])
			for k := 0; k < g.Nkr; k++ {
				uyh[j][l][k] = il * v.Uh[j][l][k]
			}
		}
	}
	prob.Plan.Inverse(uy, uyh)

	norm := g.Dx * g.Dy / (g.Lx * g.Ly * p.SumH)

	lateral = make([]float64, n)
	for j := 0; j < n; j++ {
		var sum float64
		for y := 0; y < g.Ny; y++ {
			for x := 0; x < g.Nx; x++ {
				sum += p.U[j][y] * v.V[j][y][x] * uy[j][y][x]
			}
		}
		lateral[j] = p.H[j] * sum * norm
	}
	if n == 1 {
		return lateral, nil
	}

	vertical = make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		var sum float64
		for y := 0; y < g.Ny; y++ {
			shear := p.U[i][y] - p.U[i+1][y]
			for x := 0; x < g.Nx; x++ {
				sum += shear * v.V[i+1][y][x] * v.Psi[i][y][x]
			}
		}
		vertical[i] = p.F0 * p.F0 / p.GPrime[i] * sum * norm
	}
	return lateral, vertical
}

func modSq(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}
