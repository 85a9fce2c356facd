// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stableswap

import "math/big"

// RateForDecimals computes the RATES entry for an asset carrying the given
// number of native decimals, such that balance * RATE / Precision yields an
// 18-decimal normalized amount. DAI at 18 decimals needs factor 1 (RATE =
// 10^18); USDC/USDT at 6 decimals need factor 10^12 (RATE = 10^30).
func RateForDecimals(decimals uint) *big.Int {
	exp := int64(36) - int64(decimals)
	if exp < 0 {
		exp = 0
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
}

// normalize maps raw reserve balances into the common 18-decimal x-space
// via the pool's RATES. Division truncates; this exact truncation is part
// of the contract consumers rely on, per spec §4.1 / §9.
func normalize(balances [N]*big.Int, rates [N]*big.Int) [N]*big.Int {
	var xp [N]*big.Int
	for i := 0; i < N; i++ {
		xp[i] = new(big.Int).Mul(balances[i], rates[i])
		xp[i].Div(xp[i], Precision)
	}
	return xp
}

// denormalizeAmount converts an 18-decimal x-space amount back into the
// native precision of the asset whose RATES entry is rate. Used wherever a solver output (always
// in x-space) must be expressed as a token amount.
func denormalizeAmount(amount *big.Int, rate *big.Int) *big.Int {
	out := new(big.Int).Mul(amount, Precision)
	out.Div(out, rate)
	return out
}
