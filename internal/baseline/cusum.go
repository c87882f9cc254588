package baseline

// CUSUMState holds the two running sums of the CUSUM detector (§3, §4.3.4).
// It is owned by a single baseline entry and updated under that entry's
// lock, so its methods assume single-writer access.
type CUSUMState struct {
	Pos float64 // S+
	Neg float64 // S-
}

// Update advances both arms given an observation x against baseline mean mu,
// stddev sigma, drift kappa. It returns the current (pos, neg) after the
// update; it does not decide whether to flag — that is the CUSUM detector's
// job, operating on a read-only preview obtained via Store.PeekCUSUM.
func (c *CUSUMState) Update(x, mu, sigma, kappa float64) (pos, neg float64) {
	drift := kappa * sigma
	c.Pos = maxFloat(0, c.Pos+(x-mu)-drift)
	c.Neg = maxFloat(0, c.Neg+(mu-x)-drift)
	return c.Pos, c.Neg
}

// Reset zeroes both arms. Called by the engine (via Store.ResetCUSUM)
// immediately after an update crosses the CUSUM threshold, so a single
// regime change produces one anomaly, not a run (§4.3.4,
// testable property 5).
func (c *CUSUMState) Reset() {
	c.Pos = 0
	c.Neg = 0
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
