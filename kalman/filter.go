package kalman

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNonPositiveDeltaT is returned by Predict for a non-positive elapsed
// time; the state is left untouched.
var ErrNonPositiveDeltaT = errors.New("prediction interval must be positive")

// ErrSingularInnovation is returned by Correct when the innovation
// covariance is singular to numerical tolerance; the state is left
// untouched so the caller may retry with a later measurement.
var ErrSingularInnovation = errors.New("innovation covariance is singular")

// Filter is an extended Kalman filter over a state representation and a
// process model. It owns both; a filter instance is reusable indefinitely
// through any sequence of Predict and Correct calls.
type Filter[S State, P ProcessModel[S]] struct {
	state   S
	process P
}

// NewFilter returns a filter owning the given state and process model.
func NewFilter[S State, P ProcessModel[S]](state S, process P) *Filter[S, P] {
	return &Filter[S, P]{state: state, process: process}
}

// State returns the owned state.
func (f *Filter[S, P]) State() S { return f.state }

// Process returns the owned process model.
func (f *Filter[S, P]) Process() P { return f.process }

// Predict runs the EKF time update over dt seconds: the process model
// advances the state mean, and the covariance becomes F·P·Fᵀ + Q.
func (f *Filter[S, P]) Predict(dt float64) error {
	if dt <= 0 {
		return ErrNonPositiveDeltaT
	}

	bigF := f.process.TransitionMatrix(f.state, dt)
	bigQ := f.process.ProcessNoise(f.state, dt)

	var p mat.Dense
	p.Product(bigF, f.state.ErrorCovariance(), bigF.T())
	p.Add(&p, bigQ)
	symmetrize(&p)

	f.process.Predict(f.state, dt)
	f.state.SetErrorCovariance(&p)
	return nil
}

// Correct runs the EKF measurement update. The measurement covariance must
// be positive definite and the innovation covariance must be invertible;
// either failing leaves the state unmodified and returns an error. The
// covariance update uses the Joseph form, which keeps the covariance
// positive semi-definite under repeated corrections.
func (f *Filter[S, P]) Correct(m Measurement[S]) error {
	bigR := m.Covariance()
	var rChol mat.Cholesky
	if ok := rChol.Factorize(bigR); !ok {
		return errors.New("measurement covariance is not positive definite")
	}

	y := m.Residual(f.state)
	bigH := m.Jacobian(f.state)
	p := f.state.ErrorCovariance()

	// S = H·P·Hᵀ + R
	var pht mat.Dense
	pht.Mul(p, bigH.T())
	var sDense mat.Dense
	sDense.Mul(bigH, &pht)
	sDense.Add(&sDense, bigR)

	dim, _ := sDense.Dims()
	bigS := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			bigS.SetSym(i, j, (sDense.At(i, j)+sDense.At(j, i))/2)
		}
	}

	var sChol mat.Cholesky
	if ok := sChol.Factorize(bigS); !ok {
		return ErrSingularInnovation
	}

	// K = P·Hᵀ·S⁻¹, via solving S·Kᵀ = (P·Hᵀ)ᵀ.
	var kt mat.Dense
	if err := sChol.SolveTo(&kt, pht.T()); err != nil {
		return errors.Wrap(ErrSingularInnovation, err.Error())
	}
	k := kt.T()

	var delta mat.VecDense
	delta.MulVec(k, y)

	// Joseph form: P' = (I−KH)·P·(I−KH)ᵀ + K·R·Kᵀ.
	n := f.state.Dim()
	var kh mat.Dense
	kh.Mul(k, bigH)
	ikh := identity(n)
	ikh.Sub(ikh, &kh)

	var pNew mat.Dense
	pNew.Product(ikh, p, ikh.T())
	var krk mat.Dense
	krk.Product(k, bigR, k.T())
	pNew.Add(&pNew, &krk)
	symmetrize(&pNew)

	f.state.ApplyCorrection(&delta)
	f.state.SetErrorCovariance(&pNew)
	return nil
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// symmetrize averages a matrix with its transpose in place, countering the
// numerical drift that would otherwise accumulate in the covariance.
func symmetrize(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			v := (m.At(i, j) + m.At(j, i)) / 2
			m.Set(i, j, v)
			m.Set(j, i, v)
		}
	}
}
