package layerqg

import "qgflow/grid"

// Vars owns the physical and spectral scratch fields a problem works
// through. One Vars belongs to exactly one Problem; the tendency and the
// diagnostics overwrite these fields freely, so callers must not hold onto
// their contents across calls. UpdateVars leaves every field consistent
// with the authoritative spectral PV; any other call may leave them in an
// intermediate state.
type Vars struct {
	// Physical-space fields, [NLayers][Ny][Nx].
	Q   [][][]float64 // potential vorticity
	Psi [][][]float64 // streamfunction
	U   [][][]float64 // zonal velocity
	V   [][][]float64 // meridional velocity

	// Spectral counterparts, [NLayers][Nl][Nkr].
	Qh   [][][]complex128
	Psih [][][]complex128
	Uh   [][][]complex128
	Vh   [][][]complex128

	// Fqh is the forcing transform buffer; nil unless forcing is enabled.
	Fqh [][][]complex128
}

// NewVars allocates zeroed scratch fields for nlayers layers.
func NewVars(g *grid.Grid, nlayers int, forced bool) *Vars {
	v := &Vars{
		Q:    g.NewPhysicalField(nlayers),
		Psi:  g.NewPhysicalField(nlayers),
		U:    g.NewPhysicalField(nlayers),
		V:    g.NewPhysicalField(nlayers),
		Qh:   g.NewSpectralField(nlayers),
		Psih: g.NewSpectralField(nlayers),
		Uh:   g.NewSpectralField(nlayers),
		Vh:   g.NewSpectralField(nlayers),
	}
	if forced {
		v.Fqh = g.NewSpectralField(nlayers)
	}
	return v
}

// copySpectral copies src into dst layer by layer.
func copySpectral(dst, src [][][]complex128) {
	for j := range dst {
		for l := range dst[j] {
			copy(dst[j][l], src[j][l])
		}
	}
}
