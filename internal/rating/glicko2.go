// Package rating implements Glicko-2 rating updates for finished games.
// Multi-player results are approximated as one match against the average of
// the other seats, iterated so phi and sigma converge.
package rating

import "math"

const (
	// Scale converts between the display (1500-based) scale and Glicko-2 mu.
	Scale = 173.7178
	// DefaultRating is the baseline rating new players start at.
	DefaultRating = 1500.0
	// DefaultRD is the baseline rating deviation.
	DefaultRD = 350.0
	// DefaultSigma is the baseline volatility.
	DefaultSigma = 0.06
	// Tau constrains how fast volatility may change.
	Tau = 0.5
	// Epsilon stops the volatility iteration.
	Epsilon = 0.000001
)

// Glicko2 holds one player's rating in Glicko-2 space.
type Glicko2 struct {
	Mu    float64
	Phi   float64
	Sigma float64
}

// FromRating converts a display-scale rating into Glicko-2 space.
func FromRating(rating, rd, sigma float64) Glicko2 {
	return Glicko2{
		Mu:    (rating - DefaultRating) / Scale,
		Phi:   rd / Scale,
		Sigma: sigma,
	}
}

// Rating converts back to the display scale.
func (r Glicko2) Rating() float64 {
	return r.Mu*Scale + DefaultRating
}

// Update applies one match against opp with the given score (1 win, 0 loss,
// 0.5 draw) and returns the updated rating.
func Update(r, opp Glicko2, score float64) Glicko2 {
	gVal := g(opp.Phi)
	eVal := expectation(r.Mu, opp.Mu, opp.Phi)
	v := 1.0 / (gVal * gVal * eVal * (1 - eVal))
	delta := v * gVal * (score - eVal)

	newSigma := solveSigma(r.Phi, r.Sigma, v, delta)
	phiStar := math.Sqrt(r.Phi*r.Phi + newSigma*newSigma)
	phiPrime := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	muPrime := r.Mu + phiPrime*phiPrime*gVal*(score-eVal)

	return Glicko2{Mu: muPrime, Phi: phiPrime, Sigma: newSigma}
}

// solveSigma runs the Illinois-style iteration from the Glicko-2 paper to
// find the new volatility.
func solveSigma(phi, sigma, v, delta float64) float64 {
	a := math.Log(sigma * sigma)
	fn := func(x float64) float64 {
		ex := math.Exp(x)
		num := ex * (delta*delta - phi*phi - v - ex)
		den := 2 * (phi*phi + v + ex) * (phi*phi + v + ex)
		return num/den - (x-a)/(Tau*Tau)
	}

	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for fn(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := fn(A), fn(B)
	for math.Abs(B-A) > Epsilon {
		C := A + (A-B)*fA/(fB-fA)
		fC := fn(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2)
}

func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/(math.Pi*math.Pi))
}

func expectation(mu, oppMu, oppPhi float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(oppPhi)*(mu-oppMu)))
}
