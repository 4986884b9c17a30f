package layerqg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// SetPV must reproduce the supplied physical PV up to the removed layer
// means, and the stored state must have exactly zero domain mean.
func TestSetPVRoundTrip(t *testing.T) {
	g := testGrid(t)
	prob, err := NewProblem(g, Config{
		NLayers: 2,
		F0:      1.0,
		G:       9.81,
		Rho:     []float64{1.0, 1.05},
		H:       []float64{0.5, 0.5},
	})
	require.NoError(t, err)

	q := randomPV(g, 2, 9, 0.5)
	// Bias one layer so mean removal is actually exercised.
	for y := range q[0] {
		for x := range q[0][y] {
			q[0][y][x] += 0.37
		}
	}

	means := make([]float64, 2)
	for j := range q {
		var sum float64
		for y := range q[j] {
			for x := range q[j][y] {
				sum += q[j][y][x]
			}
		}
		means[j] = sum / float64(g.Nx*g.Ny)
	}

	require.NoError(t, prob.SetPV(q))
	require.Equal(t, complex128(0), prob.Sol[0][0][0])
	require.Equal(t, complex128(0), prob.Sol[1][0][0])

	prob.UpdateVars()
	for j := range q {
		for y := range q[j] {
			for x := range q[j][y] {
				require.InDelta(t, q[j][y][x]-means[j], prob.Vars.Q[j][y][x], 1e-10)
			}
		}
	}
}

func TestSetStreamfunctionIsConsistent(t *testing.T) {
	g := testGrid(t)
	prob, err := NewProblem(g, Config{
		NLayers: 1,
		Rho:     []float64{1},
		H:       []float64{1},
	})
	require.NoError(t, err)

	// A zero-mean streamfunction survives the psi -> q -> psi trip.
	psi := g.NewPhysicalField(1)
	for y := range psi[0] {
		for x := range psi[0][y] {
			psi[0][y][x] = math.Sin(2*g.X[x]) * math.Cos(3*g.Y[y])
		}
	}
	require.NoError(t, prob.SetStreamfunction(psi))

	for y := range psi[0] {
		for x := range psi[0][y] {
			require.InDelta(t, psi[0][y][x], prob.Vars.Psi[0][y][x], 1e-10)
		}
	}

	// q = del^2 psi = -(2^2+3^2) psi for this single mode.
	for y := range psi[0] {
		for x := range psi[0][y] {
			require.InDelta(t, -13*psi[0][y][x], prob.Vars.Q[0][y][x], 1e-9)
		}
	}
}

func TestUpdateVarsVelocities(t *testing.T) {
	g := testGrid(t)
	prob, err := NewProblem(g, Config{
		NLayers: 1,
		Rho:     []float64{1},
		H:       []float64{1},
	})
	require.NoError(t, err)

	// psi = sin(x): u = -dpsi/dy = 0, v = dpsi/dx = cos(x).
	psi := g.NewPhysicalField(1)
	for y := range psi[0] {
		for x := range psi[0][y] {
			psi[0][y][x] = math.Sin(g.X[x])
		}
	}
	require.NoError(t, prob.SetStreamfunction(psi))

	for y := 0; y < g.Ny; y++ {
		for x := 0; x < g.Nx; x++ {
			require.InDelta(t, 0.0, prob.Vars.U[0][y][x], 1e-10)
			require.InDelta(t, math.Cos(g.X[x]), prob.Vars.V[0][y][x], 1e-10)
		}
	}
}

// A single spectral mode with known amplitude has a closed-form kinetic
// energy under the Parseval convention of the grid.
func TestSingleModeKineticEnergy(t *testing.T) {
	g := testGrid(t)
	prob, err := NewProblem(g, Config{
		NLayers: 1,
		Rho:     []float64{1},
		H:       []float64{1},
	})
	require.NoError(t, err)

	const (
		k0 = 1
		l0 = 2
		a  = 3.0
	)
	ksq := g.Krsq[l0][k0]
	// Plant psih(k0,l0) = a through the PV relation qh = -k^2 psih.
	prob.Sol[0][l0][k0] = complex(-ksq*a, 0)

	ke, pe := prob.Energies()
	require.Nil(t, pe, "single-layer energies carry no potential energy")

	// KE = 1/(2 Lx Ly) * 2*k^2*a^2 * Lx*Ly/(nx^2 ny^2), the factor 2 from
	// the conjugate mode the half spectrum omits.
	nx2ny2 := float64(g.Nx) * float64(g.Nx) * float64(g.Ny) * float64(g.Ny)
	want := ksq * a * a / nx2ny2
	require.InDelta(t, want, ke[0], 1e-12*want)
}

func TestInterfacePotentialEnergy(t *testing.T) {
	g := testGrid(t)
	prob, err := NewProblem(g, Config{
		NLayers: 2,
		F0:      1.5,
		G:       10.0,
		Rho:     []float64{1.0, 1.25},
		H:       []float64{0.5, 0.5},
	})
	require.NoError(t, err)
	p := prob.Params

	// Prescribe a streamfunction that differs across the interface at one
	// mode and read the state back through the stretching relation.
	const (
		k0 = 2
		l0 = 1
	)
	psih := g.NewSpectralField(2)
	psih[0][l0][k0] = complex(1.0, 0)
	psih[1][l0][k0] = complex(-0.5, 0)
	prob.Stretch.PVFromStreamfunction(prob.Sol, psih)

	_, pe := prob.Energies()
	require.Len(t, pe, 1)

	diff := 1.5 * 1.5 // |psih1 - psih2|^2 = 1.5^2
	nx2ny2 := float64(g.Nx) * float64(g.Nx) * float64(g.Ny) * float64(g.Ny)
	want := 1 / (2 * g.Lx * g.Ly) * p.F0 * p.F0 / p.GPrime[0] * 2 * diff * g.Lx * g.Ly / nx2ny2
	require.InDelta(t, want, pe[0], 1e-12*want)
}

// Without background shear there is nothing to extract energy from: both
// flux diagnostics must vanish.
func TestFluxesVanishWithoutShear(t *testing.T) {
	g := testGrid(t)
	prob, err := NewProblem(g, Config{
		NLayers: 2,
		F0:      1.0,
		G:       9.81,
		Rho:     []float64{1.0, 1.05},
		H:       []float64{0.5, 0.5},
	})
	require.NoError(t, err)
	require.NoError(t, prob.SetPV(randomPV(g, 2, 21, 0.4)))

	lateral, vertical := prob.Fluxes()
	require.Len(t, lateral, 2)
	require.Len(t, vertical, 1)
	for _, f := range lateral {
		require.InDelta(t, 0.0, f, 1e-13)
	}
	require.InDelta(t, 0.0, vertical[0], 1e-13)
}

func TestFluxesSingleLayer(t *testing.T) {
	g := testGrid(t)
	prob, err := NewProblem(g, Config{
		NLayers: 1,
		Rho:     []float64{1},
		H:       []float64{1},
		U:       [][]float64{{0.1}},
	})
	require.NoError(t, err)
	require.NoError(t, prob.SetPV(randomPV(g, 1, 22, 0.4)))

	lateral, vertical := prob.Fluxes()
	require.Len(t, lateral, 1)
	require.Nil(t, vertical)
}
