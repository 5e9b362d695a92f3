package optimization

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/rs/zerolog"

	"github.com/invexis/invexis/pkg/formulas"
)

// minViewUncertainty keeps Ω invertible when a view carries full confidence.
const minViewUncertainty = 1e-6

// BlackLitterman blends the market-implied equilibrium prior with investor
// views into posterior return and covariance estimates.
type BlackLitterman struct {
	tau float64
	log zerolog.Logger
}

// NewBlackLitterman creates a blender with the given uncertainty scaling τ.
func NewBlackLitterman(tau float64, log zerolog.Logger) *BlackLitterman {
	return &BlackLitterman{
		tau: tau,
		log: log.With().Str("component", "black_litterman").Logger(),
	}
}

// Blend computes the Black-Litterman posterior.
//
// With views:
//
//	E[R] = [(τΣ)^-1 + P'Ω^-1P]^-1 * [(τΣ)^-1·Π + P'Ω^-1·Q]
//	Cov  = Σ + [(τΣ)^-1 + P'Ω^-1P]^-1
//
// With an empty ViewSet P/Q/Ω are empty and the posterior collapses exactly
// to the prior: returns = Π, covariance = Σ. That passthrough is an explicit
// code path, not a degenerate run of the matrix algebra.
//
// A singular τΣ is handled with diagonal loading; if regularization cannot
// make it invertible the blender downgrades to the prior and flags the
// result degraded rather than failing the request.
func (bl *BlackLitterman) Blend(prior []float64, cov *mat.SymDense, views ViewSet, symbols []string) (*Posterior, error) {
	n := len(symbols)
	if len(prior) != n || cov.SymmetricDim() != n {
		return nil, fmt.Errorf("dimension mismatch: %d symbols, %d prior entries, %dx%d covariance",
			n, len(prior), cov.SymmetricDim(), cov.SymmetricDim())
	}

	if len(views) == 0 {
		return &Posterior{
			Returns: append([]float64(nil), prior...),
			Cov:     cloneSym(cov),
		}, nil
	}

	P, Q, err := bl.buildViewMatrices(views, symbols)
	if err != nil {
		return nil, err
	}
	omega := bl.buildOmega(views, P, cov)

	// τΣ and its inverse, with diagonal loading on numerical singularity.
	tauSigma := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			tauSigma.SetSym(i, j, bl.tau*cov.At(i, j))
		}
	}
	tauSigmaInv, loading, err := formulas.RegularizedInverse(tauSigma)
	if err != nil {
		bl.log.Warn().Err(err).Msg("τΣ not invertible even after regularization, downgrading to prior")
		return &Posterior{
			Returns:  append([]float64(nil), prior...),
			Cov:      cloneSym(cov),
			Degraded: true,
		}, nil
	}
	degraded := loading > 0
	if degraded {
		bl.log.Warn().Float64("diagonal_loading", loading).Msg("Applied diagonal loading to τΣ")
	}

	m := len(views)

	// Ω^-1 is trivial: Ω is diagonal with strictly positive entries.
	omegaInv := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		omegaInv.Set(i, i, 1.0/omega[i])
	}

	// P'Ω^-1 and P'Ω^-1P
	var pTransOmegaInv mat.Dense
	pTransOmegaInv.Mul(P.T(), omegaInv)
	var pTransOmegaInvP mat.Dense
	pTransOmegaInvP.Mul(&pTransOmegaInv, P)

	// M = (τΣ)^-1 + P'Ω^-1P and its inverse
	var M mat.Dense
	M.Add(tauSigmaInv, &pTransOmegaInvP)
	var MInv mat.Dense
	if err := MInv.Inverse(&M); err != nil {
		bl.log.Warn().Err(err).Msg("Posterior precision matrix not invertible, downgrading to prior")
		return &Posterior{
			Returns:  append([]float64(nil), prior...),
			Cov:      cloneSym(cov),
			Degraded: true,
		}, nil
	}

	// rhs = (τΣ)^-1·Π + P'Ω^-1·Q
	pi := mat.NewVecDense(n, prior)
	var tauSigmaInvPi mat.VecDense
	tauSigmaInvPi.MulVec(tauSigmaInv, pi)
	var pTransOmegaInvQ mat.VecDense
	pTransOmegaInvQ.MulVec(&pTransOmegaInv, Q)
	var rhs mat.VecDense
	rhs.AddVec(&tauSigmaInvPi, &pTransOmegaInvQ)

	var posteriorVec mat.VecDense
	posteriorVec.MulVec(&MInv, &rhs)

	returns := make([]float64, n)
	for i := 0; i < n; i++ {
		returns[i] = posteriorVec.AtVec(i)
	}

	// Posterior covariance Σ + M^-1, symmetrized to absorb float asymmetry.
	postCov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			postCov.SetSym(i, j, cov.At(i, j)+0.5*(MInv.At(i, j)+MInv.At(j, i)))
		}
	}

	return &Posterior{Returns: returns, Cov: postCov, Degraded: degraded}, nil
}

// buildViewMatrices constructs the pick matrix P (views × symbols) and view
// value vector Q.
func (bl *BlackLitterman) buildViewMatrices(views ViewSet, symbols []string) (*mat.Dense, *mat.VecDense, error) {
	n := len(symbols)
	m := len(views)
	index := make(map[string]int, n)
	for i, s := range symbols {
		index[s] = i
	}

	P := mat.NewDense(m, n, nil)
	Q := mat.NewVecDense(m, nil)
	for i, view := range views {
		Q.SetVec(i, view.Return)
		switch view.Type {
		case ViewAbsolute:
			j, ok := index[view.Symbol]
			if !ok {
				return nil, nil, fmt.Errorf("view references unknown symbol %q", view.Symbol)
			}
			P.Set(i, j, 1.0)
		case ViewRelative:
			j1, ok1 := index[view.Symbol1]
			j2, ok2 := index[view.Symbol2]
			if !ok1 || !ok2 {
				return nil, nil, fmt.Errorf("relative view references unknown symbols %q/%q", view.Symbol1, view.Symbol2)
			}
			P.Set(i, j1, 1.0)
			P.Set(i, j2, -1.0)
		default:
			return nil, nil, fmt.Errorf("unknown view type %q", view.Type)
		}
	}
	return P, Q, nil
}

// buildOmega derives the diagonal view-uncertainty matrix. Each entry scales
// the view's portfolio variance by τ and the inverse of its confidence:
//
//	ω_i = τ · (PΣP')_ii · (1 - c_i) / c_i
//
// so a fully confident view approaches zero uncertainty (clamped to keep Ω
// invertible) and a weak view is dominated by the prior.
func (bl *BlackLitterman) buildOmega(views ViewSet, P *mat.Dense, cov *mat.SymDense) []float64 {
	m := len(views)
	var pSigma mat.Dense
	pSigma.Mul(P, cov)
	var pSigmaPT mat.Dense
	pSigmaPT.Mul(&pSigma, P.T())

	omega := make([]float64, m)
	for i := 0; i < m; i++ {
		conf := views[i].Confidence
		if conf <= 0 || conf > 1 {
			conf = 0.5
		}
		u := bl.tau * pSigmaPT.At(i, i) * (1 - conf) / conf
		if u < minViewUncertainty {
			u = minViewUncertainty
		}
		omega[i] = u
	}
	return omega
}

func cloneSym(s *mat.SymDense) *mat.SymDense {
	n := s.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.CopySym(s)
	return out
}
