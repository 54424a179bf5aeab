package solver

// Loss reweights a residual term by its squared norm s = ||r||^2, the way
// a robust M-estimator down-weights outliers. Weight returns w such that
// the term's residual and Jacobian are scaled by sqrt(w) before being
// folded into the normal equations — the standard IRLS reformulation of
// a robust loss, since it lets every downstream solve stay a plain
// weighted least squares.
type Loss interface {
	Weight(s float64) float64
}

// NoLoss applies no reweighting.
type NoLoss struct{}

// Weight always returns 1.
func (NoLoss) Weight(float64) float64 { return 1 }

// CauchyLoss is rho(s) = b^2*log(1+s/b^2), the loss used throughout
// GridEstimate with b=1. Its IRLS weight is rho'(s) = 1/(1+s/b^2).
type CauchyLoss struct {
	B float64
}

// NewCauchyLoss returns a CauchyLoss with scale b.
func NewCauchyLoss(b float64) CauchyLoss {
	return CauchyLoss{B: b}
}

// Weight returns rho'(s) = 1/(1+s/b^2).
func (c CauchyLoss) Weight(s float64) float64 {
	b2 := c.B * c.B
	return 1 / (1 + s/b2)
}
