package grid

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

const twoPi = 2 * math.Pi

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(63, 64, twoPi, twoPi)
	require.Error(t, err, "odd nx must be rejected")

	_, err = New(64, 2, twoPi, twoPi)
	require.Error(t, err, "tiny ny must be rejected")

	_, err = New(64, 64, -1, twoPi)
	require.Error(t, err, "negative extent must be rejected")
}

func TestWavenumberLayout(t *testing.T) {
	g, err := New(8, 8, twoPi, twoPi)
	require.NoError(t, err)

	require.Equal(t, 5, g.Nkr)
	require.Equal(t, 8, g.Nl)

	// On a 2*pi domain the wavenumbers are integers.
	require.InDelta(t, 0.0, g.Kr[0], 1e-14)
	require.InDelta(t, 1.0, g.Kr[1], 1e-14)
	require.InDelta(t, 4.0, g.Kr[4], 1e-14)

	require.InDelta(t, 0.0, g.L[0], 1e-14)
	require.InDelta(t, 1.0, g.L[1], 1e-14)
	require.InDelta(t, -4.0, g.L[4], 1e-14)
	require.InDelta(t, -1.0, g.L[7], 1e-14)

	require.InDelta(t, 2.0, g.Krsq[1][1], 1e-14)
	require.Equal(t, 0.0, g.InvKrsq[0][0], "zero mode reciprocal must be pinned to zero")
	require.InDelta(t, 0.5, g.InvKrsq[1][1], 1e-14)
}

func TestCoordinatesSpanDomain(t *testing.T) {
	g, err := New(16, 16, 4.0, 2.0)
	require.NoError(t, err)

	require.InDelta(t, -2.0, g.X[0], 1e-14)
	require.InDelta(t, 2.0-g.Dx, g.X[15], 1e-12)
	require.InDelta(t, 0.25, g.Dx, 1e-14)
	require.InDelta(t, 0.125, g.Dy, 1e-14)
}

func TestParsevalSum2MatchesPhysicalIntegral(t *testing.T) {
	g, err := New(32, 32, twoPi, 2.0)
	require.NoError(t, err)
	p, err := NewPlan(g, 1)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	f := g.NewPhysicalField(1)
	var direct float64
	for y := 0; y < g.Ny; y++ {
		for x := 0; x < g.Nx; x++ {
			f[0][y][x] = 2*rng.Float64() - 1
			direct += f[0][y][x] * f[0][y][x] * g.Dx * g.Dy
		}
	}

	fh := g.NewSpectralField(1)
	p.Forward(fh, f)
	require.InDelta(t, direct, g.ParsevalSum2(fh[0]), 1e-10*math.Abs(direct))
}

func TestDealiasZeroesOuterThird(t *testing.T) {
	g, err := New(12, 12, twoPi, twoPi)
	require.NoError(t, err)

	fh := g.NewSpectralField(1)
	for l := 0; l < g.Nl; l++ {
		for k := 0; k < g.Nkr; k++ {
			fh[0][l][k] = 1
		}
	}
	g.Dealias(fh)

	// nx/3 = 4: kr index 4 survives, index 5 and beyond do not.
	require.Equal(t, complex128(1), fh[0][0][4])
	require.Equal(t, complex128(0), fh[0][0][5])
	// l index 6 holds frequency -6, |m| > 4.
	require.Equal(t, complex128(0), fh[0][6][0])
	require.Equal(t, complex128(1), fh[0][4][0])
	require.Equal(t, complex128(1), fh[0][8][0]) // frequency -4 survives
}
