package layerqg

import "qgflow/stepper"

// Tendency evaluates the time derivative of the spectral PV state sol,
// writing it into dst. It matches stepper.RHS, so a Problem plugs straight
// into the time integrator. sol is never mutated; the evaluation works on
// an internal copy and scribbles over the problem's Vars.
//
// The nonlinear and linearized variants share the inversion, the spectral
// velocities, the background-gradient terms, the bottom drag and the
// forcing hook; they differ only in how the eddy PV flux is formed.
func (prob *Problem) Tendency(dst, sol [][][]complex128, t float64, clk stepper.Clock) error {
	prob.advection(dst, sol)
	prob.addBottomDrag(dst)
	prob.addDissipation(dst)
	if prob.forcing != nil {
		if err := prob.forcing(prob.Vars.Fqh, sol, t, clk, prob.Vars, prob.Params, prob.Grid); err != nil {
			return err
		}
		for j := range dst {
			for l := range dst[j] {
				for k := range dst[j][l] {
					dst[j][l][k] += prob.Vars.Fqh[j][l][k]
				}
			}
		}
	}
	return nil
}

// advection accumulates the advective tendency into dst:
//
//	-(U+u) dQ/dx - v dQ/dy - d/dx[(U+u)q] - d/dy[vq]
//
// with the linearized variant advecting the PV anomaly by the background
// flow alone, -d/dx[Uq]. Derivatives are exact in transform space; the
// quadratic products are formed on the physical grid.
func (prob *Problem) advection(dst, sol [][][]complex128) {
	v, p, g := prob.Vars, prob.Params, prob.Grid
	n := p.NLayers

	copySpectral(v.Qh, sol)
	prob.Stretch.StreamfunctionFromPV(v.Psih, v.Qh)
	for j := 0; j < n; j++ {
		for l := 0; l < g.Nl; l++ {
			il := complex(0, g.L[l])
			for k := 0; k < g.Nkr; k++ {
				v.Uh[j][l][k] = -il * v.Psih[j][l][k]
				v.Vh[j][l][k] = complex(0, g.Kr[k]) * v.Psih[j][l][k]
			}
		}
	}
	prob.Plan.Inverse(v.U, v.Uh)
	prob.Plan.Inverse(v.V, v.Vh)

	// The zonal velocity carries the background flow from here on.
	for j := 0; j < n; j++ {
		for y := 0; y < g.Ny; y++ {
			uy := p.U[j][y]
			for x := 0; x < g.Nx; x++ {
				v.U[j][y][x] += uy
			}
		}
	}

	// -(U+u) dQ/dx, reusing v.Q as the physical product and v.Uh as its
	// transform. v.Qh still holds the PV copy for later.
	for j := 0; j < n; j++ {
		for y := 0; y < g.Ny; y++ {
			for x := 0; x < g.Nx; x++ {
				v.Q[j][y][x] = v.U[j][y][x] * p.Qx[j][y][x]
			}
		}
	}
	prob.Plan.Forward(v.Uh, v.Q)
	for j := 0; j < n; j++ {
		for l := 0; l < g.Nl; l++ {
			for k := 0; k < g.Nkr; k++ {
				dst[j][l][k] = -v.Uh[j][l][k]
			}
		}
	}

	// -v dQ/dy
	for j := 0; j < n; j++ {
		for y := 0; y < g.Ny; y++ {
			for x := 0; x < g.Nx; x++ {
				v.Q[j][y][x] = v.V[j][y][x] * p.Qy[j][y][x]
			}
		}
	}
	prob.Plan.Forward(v.Vh, v.Q)
	for j := 0; j < n; j++ {
		for l := 0; l < g.Nl; l++ {
			for k := 0; k < g.Nkr; k++ {
				dst[j][l][k] -= v.Vh[j][l][k]
			}
		}
	}

	// Eddy PV flux divergence. Recover the physical PV, form the products
	// in place over the velocity fields, transform, and subtract
	// i*kr*(uq)^ + i*l*(vq)^.
	prob.Plan.Inverse(v.Q, v.Qh)
	if prob.linear {
		for j := 0; j < n; j++ {
			for y := 0; y < g.Ny; y++ {
				uy := p.U[j][y]
				for x := 0; x < g.Nx; x++ {
					v.U[j][y][x] = uy
				}
			}
		}
	}
	for j := 0; j < n; j++ {
		for y := 0; y < g.Ny; y++ {
			for x := 0; x < g.Nx; x++ {
				v.U[j][y][x] *= v.Q[j][y][x]
			}
		}
	}
	prob.Plan.Forward(v.Uh, v.U)
	for j := 0; j < n; j++ {
		for l := 0; l < g.Nl; l++ {
			for k := 0; k < g.Nkr; k++ {
				dst[j][l][k] -= complex(0, g.Kr[k]) * v.Uh[j][l][k]
			}
		}
	}
	if !prob.linear {
		for j := 0; j < n; j++ {
			for y := 0; y < g.Ny; y++ {
				for x := 0; x < g.Nx; x++ {
					v.V[j][y][x] *= v.Q[j][y][x]
				}
			}
		}
		prob.Plan.Forward(v.Vh, v.V)
		for j := 0; j < n; j++ {
			for l := 0; l < g.Nl; l++ {
				il := complex(0, g.L[l])
				for k := 0; k < g.Nkr; k++ {
					dst[j][l][k] -= il * v.Vh[j][l][k]
				}
			}
		}
	}
}

// addBottomDrag adds mu*k^2*psih to the bottom-layer tendency. The
// streamfunction in Vars is current because advection always runs first.
func (prob *Problem) addBottomDrag(dst [][][]complex128) {
	if prob.Params.Mu == 0 {
		return
	}
	g := prob.Grid
	bottom := prob.Params.NLayers - 1
	for l := 0; l < g.Nl; l++ {
		for k := 0; k < g.Nkr; k++ {
			dst[bottom][l][k] += complex(prob.Params.Mu*g.Krsq[l][k], 0) * prob.Vars.Psih[bottom][l][k]
		}
	}
}

// addDissipation adds the small-scale dissipation -nu*k^(2*nnu)*qh.
func (prob *Problem) addDissipation(dst [][][]complex128) {
	if prob.diss == nil {
		return
	}
	g := prob.Grid
	for j := 0; j < prob.Params.NLayers; j++ {
		for l := 0; l < g.Nl; l++ {
			for k := 0; k < g.Nkr; k++ {
				dst[j][l][k] -= complex(prob.diss[l][k], 0) * prob.Vars.Qh[j][l][k]
			}
		}
	}
}
