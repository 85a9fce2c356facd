// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stableswap

import "math/big"

// maxSolverIterations bounds the Newton iteration in getD/getY/getYD.
// Convergence is quadratic for realistic inputs; exhausting this cap is
// treated as a hard failure rather than returning a stale estimate.
const maxSolverIterations = 255

var one = big.NewInt(1)

// getD solves the StableSwap invariant
//
//	Ann * S + D = Ann * D + D^(N+1) / (N^N * Prod(xp))
//
// for D, given normalized reserves xp and the current amplification A, by
// Newton iteration. Every consumer of this engine relies on the exact
// truncation (integer divide = floor) at each step, not merely on
// convergence to the mathematical root.
func getD(xp [N]*big.Int, a *big.Int) (*big.Int, error) {
	s := new(big.Int)
	for i := 0; i < N; i++ {
		s.Add(s, xp[i])
	}
	if s.Sign() == 0 {
		return new(big.Int), nil
	}
	for i := 0; i < N; i++ {
		if xp[i].Sign() == 0 {
			// dP's accumulation divides by each xp[i] in turn; a zero
			// reserve alongside a nonzero sum has no invariant to solve
			// for. Curve's own get_D reverts on exactly this input.
			return nil, ErrZeroReserve
		}
	}

	d := new(big.Int).Set(s)
	ann := new(big.Int).Mul(a, big.NewInt(N))

	nTerm := big.NewInt(N)
	annMinus1 := new(big.Int).Sub(ann, one)
	nPlus1 := big.NewInt(N + 1)

	for iter := 0; iter < maxSolverIterations; iter++ {
		dP := new(big.Int).Set(d)
		for i := 0; i < N; i++ {
			denom := new(big.Int).Mul(xp[i], nTerm)
			dP.Mul(dP, d)
			dP.Div(dP, denom)
		}

		dPrev := new(big.Int).Set(d)

		numer := new(big.Int).Mul(ann, s)
		numer.Add(numer, new(big.Int).Mul(dP, nTerm))
		numer.Mul(numer, d)

		denom := new(big.Int).Mul(annMinus1, d)
		denom.Add(denom, new(big.Int).Mul(nPlus1, dP))

		d.Div(numer, denom)

		if absDiff(d, dPrev).Cmp(one) <= 0 {
			return d, nil
		}
	}
	return nil, ErrSolverDidNotConverge
}

// getY computes y = xp[j] such that, after setting xp[i] <- xNew, the
// invariant D computed from balances before the trade is preserved. i and j
// must be distinct indices in [0, N).
func getY(i, j int, xNew *big.Int, xp [N]*big.Int, a *big.Int) (*big.Int, error) {
	d, err := getD(xp, a)
	if err != nil {
		return nil, err
	}
	return solveY(i, j, xNew, xp, a, d)
}

// getYD computes the new y = xp[i] consistent with a target invariant
// dNew, holding every other reserve at its current value. Used by
// single-asset withdrawal.
func getYD(i int, dNew *big.Int, xp [N]*big.Int, a *big.Int) (*big.Int, error) {
	return solveY(i, -1, nil, xp, a, dNew)
}

// solveY is the shared Newton iteration behind getY and getYD. When j is a
// valid index (getY's case) it is excluded from the accumulation and xp[i]
// is replaced by xNew; when j is -1 (getYD's case) only xp[i] is excluded
// and d is the caller-supplied target invariant rather than one derived
// from xp.
func solveY(i, j int, xNew *big.Int, xp [N]*big.Int, a, d *big.Int) (*big.Int, error) {
	ann := new(big.Int).Mul(a, big.NewInt(N))
	nTerm := big.NewInt(N)

	c := new(big.Int).Set(d)
	s := new(big.Int)

	excluded := i
	if j >= 0 {
		excluded = j
	}

	for k := 0; k < N; k++ {
		if k == excluded {
			continue
		}
		var xk *big.Int
		if j >= 0 && k == i {
			xk = xNew
		} else {
			xk = xp[k]
		}
		if xk.Sign() == 0 {
			return nil, ErrZeroReserve
		}
		s.Add(s, xk)

		c.Mul(c, d)
		c.Div(c, new(big.Int).Mul(xk, nTerm))
	}

	c.Mul(c, d)
	c.Div(c, new(big.Int).Mul(ann, nTerm))

	b := new(big.Int).Add(s, new(big.Int).Div(d, ann))

	y := new(big.Int).Set(d)
	for iter := 0; iter < maxSolverIterations; iter++ {
		yPrev := new(big.Int).Set(y)

		numer := new(big.Int).Mul(y, y)
		numer.Add(numer, c)

		denom := new(big.Int).Lsh(y, 1)
		denom.Add(denom, b)
		denom.Sub(denom, d)

		y.Div(numer, denom)

		if absDiff(y, yPrev).Cmp(one) <= 0 {
			return y, nil
		}
	}
	return nil, ErrSolverDidNotConverge
}
