package layerqg

import (
	"fmt"

	"qgflow/grid"
)

// Problem ties a grid, the validated parameters, the cached stretching
// matrices and one set of scratch variables together. Sol is the
// authoritative spectral PV field that the external time stepper advances;
// every other field can be recomputed from it at any moment and must never
// be treated as independently authoritative.
type Problem struct {
	Grid    *grid.Grid
	Plan    *grid.Plan
	Params  *Params
	Vars    *Vars
	Stretch *Stretching

	// Sol is the spectral PV, [NLayers][Nl][Nkr].
	Sol [][][]complex128

	linear  bool
	forcing ForcingFunc

	// diss caches Nu * k^(2*NNu); nil when Nu is zero.
	diss [][]float64
}

// NewProblem validates cfg against the grid and precomputes everything the
// tendency needs: the background PV gradients, the per-wavenumber
// stretching matrices and their inverses, and the dissipation coefficients.
func NewProblem(g *grid.Grid, cfg Config) (*Problem, error) {
	p, err := newParams(g, cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid layer configuration: %w", err)
	}
	plan, err := grid.NewPlan(g, p.NLayers)
	if err != nil {
		return nil, err
	}
	p.deriveBackgroundPV(g, plan)

	st, err := NewStretching(g, p.NLayers, p.Fp, p.Fm)
	if err != nil {
		return nil, err
	}

	prob := &Problem{
		Grid:    g,
		Plan:    plan,
		Params:  p,
		Vars:    NewVars(g, p.NLayers, cfg.Forcing != nil),
		Stretch: st,
		Sol:     g.NewSpectralField(p.NLayers),
		linear:  cfg.Linear,
		forcing: cfg.Forcing,
	}
	if p.Nu > 0 {
		prob.diss = make([][]float64, g.Nl)
		for l := range prob.diss {
			prob.diss[l] = make([]float64, g.Nkr)
			for k := range prob.diss[l] {
				c := 1.0
				for i := 0; i < p.NNu; i++ {
					c *= g.Krsq[l][k]
				}
				prob.diss[l][k] = p.Nu * c
			}
		}
	}
	return prob, nil
}

// Forced reports whether a forcing callback is installed.
func (prob *Problem) Forced() bool { return prob.forcing != nil }

// SetPV forward-transforms the physical PV field q, removes the domain
// mean in every layer, stores the result as the authoritative state and
// refreshes all derived fields.
func (prob *Problem) SetPV(q [][][]float64) error {
	if err := prob.checkShape(len(q), "pv"); err != nil {
		return err
	}
	prob.Plan.Forward(prob.Sol, q)
	for j := range prob.Sol {
		prob.Sol[j][0][0] = 0
	}
	prob.UpdateVars()
	return nil
}

// SetStreamfunction derives the PV consistent with the physical
// streamfunction psi and stores it through SetPV.
func (prob *Problem) SetStreamfunction(psi [][][]float64) error {
	if err := prob.checkShape(len(psi), "streamfunction"); err != nil {
		return err
	}
	v := prob.Vars
	prob.Plan.Forward(v.Psih, psi)
	prob.Stretch.PVFromStreamfunction(v.Qh, v.Psih)
	prob.Plan.Inverse(v.Q, v.Qh)
	return prob.SetPV(v.Q)
}

// UpdateVars recomputes the physical and spectral q, psi, u, v scratch
// fields from the authoritative spectral PV. Sol itself is untouched.
func (prob *Problem) UpdateVars() {
	v, g := prob.Vars, prob.Grid
	copySpectral(v.Qh, prob.Sol)
	prob.Stretch.StreamfunctionFromPV(v.Psih, v.Qh)
	for j := 0; j < prob.Params.NLayers; j++ {
		for l := 0; l < g.Nl; l++ {
			il := complex(0, g.L[l])
			for k := 0; k < g.Nkr; k++ {
				v.Uh[j][l][k] = -il * v.Psih[j][l][k]
				v.Vh[j][l][k] = complex(0, g.Kr[k]) * v.Psih[j][l][k]
			}
		}
	}
	prob.Plan.Inverse(v.Q, v.Qh)
	prob.Plan.Inverse(v.Psi, v.Psih)
	prob.Plan.Inverse(v.U, v.Uh)
	prob.Plan.Inverse(v.V, v.Vh)
}

func (prob *Problem) checkShape(nlayers int, what string) error {
	if nlayers != prob.Params.NLayers {
		return fmt.Errorf("%s field has %d layers, want %d", what, nlayers, prob.Params.NLayers)
	}
	return nil
}
