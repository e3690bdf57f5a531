package core

import (
	"fmt"
	"math"

	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/framecheck/model"
	"github.com/signalsfoundry/framecheck/timectrl"
)

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// j2000Year is the reference epoch of the ICRF realisation, as a Julian year.
const j2000Year = 2000.0

// FrameSet holds the rotations linking TEME, ITRF and ICRF at one epoch.
//
// TEME -> ITRF rotates by GMST about the pole (polar motion ignored).
// TEME -> ICRF undoes the equation of the equinoxes, IAU-1980 nutation and
// IAU-1976 precession; the J2000/ICRF frame bias is neglected.
type FrameSet struct {
	Epoch timectrl.Epoch

	GMST      float64 // rad
	EqEquinox float64 // rad
	DeltaPsi  float64 // rad
	DeltaEps  float64 // rad
	MeanObliq float64 // rad

	temeToITRF *mat.Dense
	temeToICRF *mat.Dense
}

// NewFrameSet evaluates the frame rotations at epoch.
func NewFrameSet(epoch timectrl.Epoch) *FrameSet {
	gmst := sidereal.Mean(epoch.JDUTC).Rad()

	dPsi, dEps := nutation.Nutation(epoch.JDTT)
	eps := nutation.MeanObliquity(epoch.JDTT)
	eqeq := dPsi.Rad() * math.Cos(eps.Rad())

	// MOD -> TOD
	nut := product(
		rotX(-(eps.Rad() + dEps.Rad())),
		rotZ(-dPsi.Rad()),
		rotX(eps.Rad()),
	)
	// J2000 -> MOD
	prec := precessionMatrix(j2000Year, epoch.JulianYearTT())
	// TEME -> TOD
	temeToTOD := rotZ(-eqeq)

	return &FrameSet{
		Epoch:      epoch,
		GMST:       gmst,
		EqEquinox:  eqeq,
		DeltaPsi:   dPsi.Rad(),
		DeltaEps:   dEps.Rad(),
		MeanObliq:  eps.Rad(),
		temeToITRF: rotZ(gmst),
		temeToICRF: product(prec.T(), nut.T(), temeToTOD),
	}
}

// Transform converts a state into the requested frame. The state epoch is
// assumed to match the FrameSet epoch.
func (fs *FrameSet) Transform(sv model.StateVector, to model.Frame) (model.StateVector, error) {
	if sv.Frame == to {
		return sv, nil
	}
	teme, err := fs.toTEME(sv)
	if err != nil {
		return model.StateVector{}, err
	}
	return fs.fromTEME(teme, to)
}

func (fs *FrameSet) toTEME(sv model.StateVector) (model.StateVector, error) {
	out := model.StateVector{Frame: model.FrameTEME, Epoch: sv.Epoch}
	switch sv.Frame {
	case model.FrameTEME:
		return sv, nil
	case model.FrameITRF:
		rot := fs.temeToITRF.T()
		out.Position = apply(rot, sv.Position)
		out.Velocity = apply(rot, sv.Velocity.Add(earthSpin(sv.Position)))
	case model.FrameICRF:
		rot := fs.temeToICRF.T()
		out.Position = apply(rot, sv.Position)
		out.Velocity = apply(rot, sv.Velocity)
	default:
		return model.StateVector{}, fmt.Errorf("%w: %q", model.ErrUnknownFrame, sv.Frame)
	}
	return out, nil
}

func (fs *FrameSet) fromTEME(sv model.StateVector, to model.Frame) (model.StateVector, error) {
	out := model.StateVector{Frame: to, Epoch: sv.Epoch}
	switch to {
	case model.FrameTEME:
		return sv, nil
	case model.FrameITRF:
		out.Position = apply(fs.temeToITRF, sv.Position)
		out.Velocity = apply(fs.temeToITRF, sv.Velocity).Sub(earthSpin(out.Position))
	case model.FrameICRF:
		out.Position = apply(fs.temeToICRF, sv.Position)
		out.Velocity = apply(fs.temeToICRF, sv.Velocity)
	default:
		return model.StateVector{}, fmt.Errorf("%w: %q", model.ErrUnknownFrame, to)
	}
	return out, nil
}

// earthSpin returns ω⊕ × r for a position in an Earth-fixed frame.
func earthSpin(r model.Vector) model.Vector {
	return model.Vector{X: -OmegaEarth * r.Y, Y: OmegaEarth * r.X}
}

// precessionMatrix builds the rotation taking mean-equator vectors at
// epochFrom to mean-equator vectors at epochTo (Julian years). Its columns
// are the precessed images of the source basis vectors.
func precessionMatrix(epochFrom, epochTo float64) *mat.Dense {
	p := precess.NewPrecessor(epochFrom, epochTo)

	precessed := func(ra, dec float64) model.Vector {
		from := &coord.Equatorial{RA: unit.RAFromRad(ra), Dec: unit.Angle(dec)}
		to := p.Precess(from, &coord.Equatorial{})
		return unitVector(to.RA.Rad(), to.Dec.Rad())
	}
	x := precessed(0, 0)
	y := precessed(math.Pi/2, 0)
	z := x.Cross(y)

	return mat.NewDense(3, 3, []float64{
		x.X, y.X, z.X,
		x.Y, y.Y, z.Y,
		x.Z, y.Z, z.Z,
	})
}

func unitVector(ra, dec float64) model.Vector {
	sd, cd := math.Sincos(dec)
	sa, ca := math.Sincos(ra)
	return model.Vector{X: cd * ca, Y: cd * sa, Z: sd}
}

// rotX is the frame rotation R1(a).
func rotX(a float64) *mat.Dense {
	s, c := math.Sincos(a)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, s,
		0, -s, c,
	})
}

// rotZ is the frame rotation R3(a).
func rotZ(a float64) *mat.Dense {
	s, c := math.Sincos(a)
	return mat.NewDense(3, 3, []float64{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	})
}

func product(factors ...mat.Matrix) *mat.Dense {
	var m mat.Dense
	m.Product(factors...)
	return &m
}

func apply(m mat.Matrix, v model.Vector) model.Vector {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return model.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}
