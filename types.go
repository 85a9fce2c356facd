// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package stableswap implements a constant-function market maker for three
// assets whose intrinsic values are nominally equal (a "stable" basket,
// conventionally DAI/USDC/USDT). The invariant is the StableSwap curve: a
// hybrid of constant-sum and constant-product that concentrates liquidity
// near equal-balance points while degrading gracefully to a constant-product
// curve in the tails.
package stableswap

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// N is the fixed number of assets this engine supports. Non-goal: any
// other pool size or dynamic asset membership.
const N = 3

// Fixed-point constants, per spec §3.
var (
	// Precision is the common 18-decimal "x-space" unit every normalized
	// reserve is expressed in.
	Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	// FeeDenominator is the denominator of the fee and admin_fee fractions.
	FeeDenominator = new(big.Int).Exp(big.NewInt(10), big.NewInt(10), nil)
)

// MaxA is the upper bound on the amplification coefficient.
const MaxA uint64 = 1_000_000

// MaxAChange bounds how far a single ramp may move A, as a multiplicative
// factor in either direction.
const MaxAChange uint64 = 10

// MinRampTime is the minimum wall-clock duration of a ramp, in seconds.
const MinRampTime uint64 = 86400

// Common errors. Grouped here because they're raised across every
// component (normalizer, solver, pool, admin) rather than owned by one.
var (
	ErrInvalidAddress         = errors.New("stableswap: null asset address")
	ErrCantSwapSameToken      = errors.New("stableswap: cannot swap a token for itself")
	ErrInvalidToken           = errors.New("stableswap: invalid token index")
	ErrAmountZero             = errors.New("stableswap: amount must be nonzero")
	ErrBurnAmountZero         = errors.New("stableswap: burn amount must be nonzero")
	ErrSlippageTooHigh        = errors.New("stableswap: result violates slippage bound")
	ErrInvariantDMustIncrease = errors.New("stableswap: invariant D did not increase")
	ErrInsufficientBalance    = errors.New("stableswap: insufficient balance")
	ErrSolverDidNotConverge   = errors.New("stableswap: solver did not converge")
	ErrZeroReserve            = errors.New("stableswap: solver input has a zero reserve alongside nonzero reserves")
	ErrTransferFailed         = errors.New("stableswap: token transfer failed")
	ErrReentrancy             = errors.New("stableswap: reentrant call")
	ErrUnauthorized           = errors.New("stableswap: caller is not the owner")
)

// AssetToken is the ambient token-transfer capability for one of the three
// pool assets. It is an external collaborator: the engine never implements
// transfer semantics itself, only calls through this interface. Per spec
// §6, a failing transfer must propagate as a fatal error, and a
// less-than-requested movement (fee-on-transfer tokens) must be rejected —
// both are the responsibility of the concrete implementation behind this
// interface, not the engine.
type AssetToken interface {
	BalanceOf(addr common.Address) *uint256.Int
	Transfer(to common.Address, amount *uint256.Int) error
	TransferFrom(from, to common.Address, amount *uint256.Int) error
}

// ShareToken is the ambient pool-share capability ("Curve.fi DAI/USDC/USDT",
// symbol "3CRV"). Typically implemented by the engine's host, but modeled
// here purely as a capability so the core stays free of ERC-20 bookkeeping.
type ShareToken interface {
	Mint(addr common.Address, amount *uint256.Int)
	Burn(addr common.Address, amount *uint256.Int) error
	BalanceOf(addr common.Address) *uint256.Int
	TotalSupply() *uint256.Int
}

// OwnerOracle gates admin-only operations (ramp control, admin-fee sweep).
// Ownership transferability is out of scope for this engine.
type OwnerOracle interface {
	IsOwner(caller common.Address) bool
}

// Clock is the ambient wall-clock capability the A-ramp reads from.
type Clock interface {
	Now() uint64
}

// u256ToBig widens a capability-boundary uint256 into the big-integer
// abstraction the solvers operate on. nil is treated as zero.
func u256ToBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

// bigToU256 narrows an internal *big.Int back down to the 256-bit
// capability-boundary type. The solvers never produce values anywhere
// near 2^256 for realistic reserves, so overflow here indicates a
// construction-time misconfiguration (e.g. a RATES entry chosen far too
// large) rather than a normal runtime condition.
func bigToU256(v *big.Int) *uint256.Int {
	u, overflow := uint256.FromBig(v)
	if overflow {
		// Saturate rather than panic: the caller's slippage/fee bounds
		// will reject the resulting nonsense value long before it is
		// used for anything security relevant.
		return new(uint256.Int).SetAllOne()
	}
	return u
}

func absDiff(a, b *big.Int) *big.Int {
	d := new(big.Int).Sub(a, b)
	return d.Abs(d)
}
