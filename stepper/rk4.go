// Package stepper provides explicit time integrators over layered spectral
// state. The integrator owns the clock and repeatedly evaluates a
// caller-supplied tendency; it knows nothing about the equations being
// stepped.
package stepper

import (
	"errors"
	"fmt"
)

// Clock tracks the integration time of one problem.
type Clock struct {
	T    float64 // current time
	Dt   float64 // step size
	Step int     // completed steps
}

// RHS evaluates the time derivative of a layered spectral state at time t,
// writing it into dst without modifying sol.
type RHS func(dst, sol [][][]complex128, t float64, clk Clock) error

// RK4 is the classic fourth-order Runge-Kutta scheme. All stage storage is
// allocated once at construction; a stepper instance is tied to one state
// shape and is not safe for concurrent use.
type RK4 struct {
	rhs   RHS
	clock Clock

	k1, k2, k3, k4 [][][]complex128
	stage          [][][]complex128
}

// NewRK4 builds a stepper for states of shape [nlayers][nl][nkr].
func NewRK4(rhs RHS, dt float64, nlayers, nl, nkr int) (*RK4, error) {
	if rhs == nil {
		return nil, errors.New("stepper needs a tendency function")
	}
	if dt <= 0 {
		return nil, fmt.Errorf("time step must be positive, got %g", dt)
	}
	if nlayers < 1 || nl < 1 || nkr < 1 {
		return nil, fmt.Errorf("invalid state shape [%d][%d][%d]", nlayers, nl, nkr)
	}
	return &RK4{
		rhs:   rhs,
		clock: Clock{Dt: dt},
		k1:    newState(nlayers, nl, nkr),
		k2:    newState(nlayers, nl, nkr),
		k3:    newState(nlayers, nl, nkr),
		k4:    newState(nlayers, nl, nkr),
		stage: newState(nlayers, nl, nkr),
	}, nil
}

// Clock returns the current clock state.
func (s *RK4) Clock() Clock { return s.clock }

// Step advances sol in place by one time step. On a tendency error the
// state and clock are left as they were.
func (s *RK4) Step(sol [][][]complex128) error {
	c := s.clock
	dt := c.Dt

	if err := s.rhs(s.k1, sol, c.T, c); err != nil {
		return err
	}
	axpy(s.stage, sol, s.k1, dt/2)
	if err := s.rhs(s.k2, s.stage, c.T+dt/2, c); err != nil {
		return err
	}
	axpy(s.stage, sol, s.k2, dt/2)
	if err := s.rhs(s.k3, s.stage, c.T+dt/2, c); err != nil {
		return err
	}
	axpy(s.stage, sol, s.k3, dt)
	if err := s.rhs(s.k4, s.stage, c.T+dt, c); err != nil {
		return err
	}

	w := complex(dt/6, 0)
	for j := range sol {
		for l := range sol[j] {
			for k := range sol[j][l] {
				sol[j][l][k] += w * (s.k1[j][l][k] + 2*s.k2[j][l][k] + 2*s.k3[j][l][k] + s.k4[j][l][k])
			}
		}
	}

	s.clock.T += dt
	s.clock.Step++
	return nil
}

// axpy computes dst = base + a*incr elementwise.
func axpy(dst, base, incr [][][]complex128, a float64) {
	ca := complex(a, 0)
	for j := range dst {
		for l := range dst[j] {
			for k := range dst[j][l] {
				dst[j][l][k] = base[j][l][k] + ca*incr[j][l][k]
			}
		}
	}
}

func newState(nlayers, nl, nkr int) [][][]complex128 {
	s := make([][][]complex128, nlayers)
	for j := range s {
		s[j] = make([][]complex128, nl)
		for l := range s[j] {
			s[j][l] = make([]complex128, nkr)
		}
	}
	return s
}
