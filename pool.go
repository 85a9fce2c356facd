// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stableswap

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/zeebo/blake3"
)

// lockState is the reentrancy guard's state enum (§9 design note). The
// guard spans exactly one public entry point: it is acquired at the start
// of every state-mutating method and released on every exit path via
// defer, mirroring the teacher's PoolManager.Lock flash-accounting guard.
type lockState int32

const (
	stateIdle lockState = iota
	stateEntered
)

// PoolConfig carries the constructor inputs from spec §6.
type PoolConfig struct {
	Assets      [N]common.Address
	AssetTokens [N]AssetToken
	Decimals    [N]uint // used to derive RATES; see RateForDecimals

	Share ShareToken
	Owner OwnerOracle
	Clock Clock

	InitialA uint64
	Fee      *big.Int // fraction of FeeDenominator
	AdminFee *big.Int // fraction of FeeDenominator, applied to Fee

	Events EventSink
	Log    log.Logger
}

// Pool is the single-pool CFMM engine: it owns the reserve vector, the
// A-ramp, and the fee parameters, and drives the normalizer/solver/ramp
// components to service swaps, deposits and withdrawals. Persistence,
// access control and the token/share capabilities themselves are the
// host's responsibility; the Pool only calls through the interfaces it was
// constructed with.
type Pool struct {
	mu     sync.Mutex
	locked lockState

	assets      [N]common.Address
	assetTokens [N]AssetToken
	rates       [N]*big.Int

	balances [N]*big.Int // native precision, per asset

	share ShareToken
	owner OwnerOracle
	clock Clock

	fee      *big.Int
	adminFee *big.Int

	amp ampRamp

	events EventSink
	log    log.Logger

	address common.Address // derived pool identifier; the account the pool's asset tokens are held under
}

// NewPool validates cfg and constructs a Pool with zero reserves. Deposits
// begin with the first call to AddLiquidity.
func NewPool(cfg PoolConfig) (*Pool, error) {
	for i := 0; i < N; i++ {
		if cfg.Assets[i] == (common.Address{}) || cfg.AssetTokens[i] == nil {
			return nil, ErrInvalidAddress
		}
	}
	if cfg.Share == nil || cfg.Owner == nil || cfg.Clock == nil {
		return nil, fmt.Errorf("stableswap: missing required capability")
	}
	if cfg.InitialA == 0 || cfg.InitialA > MaxA {
		return nil, ErrRampParameterOutOfRange
	}
	if cfg.Fee == nil {
		cfg.Fee = new(big.Int)
	}
	if cfg.AdminFee == nil {
		cfg.AdminFee = new(big.Int)
	}

	events := cfg.Events
	if events == nil {
		events = noopEventSink{}
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.NewTestLogger(log.InfoLevel)
	}

	p := &Pool{
		assets:      cfg.Assets,
		assetTokens: cfg.AssetTokens,
		share:       cfg.Share,
		owner:       cfg.Owner,
		clock:       cfg.Clock,
		fee:         new(big.Int).Set(cfg.Fee),
		adminFee:    new(big.Int).Set(cfg.AdminFee),
		events:      events,
		log:         logger,
	}
	for i := 0; i < N; i++ {
		p.rates[i] = RateForDecimals(cfg.Decimals[i])
		p.balances[i] = new(big.Int)
	}
	p.amp = newAmpRamp(cfg.InitialA, cfg.Clock.Now())
	p.address = derivePoolAddress(cfg.Assets)
	return p, nil
}

func derivePoolAddress(assets [N]common.Address) common.Address {
	h := blake3.New()
	for _, a := range assets {
		h.Write(a.Bytes())
	}
	var sum [32]byte
	h.Digest().Read(sum[:])
	return common.BytesToAddress(sum[:20])
}

// enter acquires the reentrancy guard or fails immediately, per spec §5:
// concurrent reentrant calls fail rather than block or deadlock.
func (p *Pool) enter() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.locked == stateEntered {
		return ErrReentrancy
	}
	p.locked = stateEntered
	return nil
}

func (p *Pool) exit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked = stateIdle
}

func (p *Pool) xp() [N]*big.Int {
	return normalize(p.balances, p.rates)
}

func (p *Pool) currentA() *big.Int {
	return new(big.Int).SetUint64(p.amp.currentA(p.clock.Now()))
}

// validateIndices checks i, j are distinct valid asset indices.
func validateIndices(i, j int) error {
	if i < 0 || i >= N || j < 0 || j >= N {
		return fmt.Errorf("%w: %d,%d", ErrInvalidToken, i, j)
	}
	if i == j {
		return ErrCantSwapSameToken
	}
	return nil
}

// imbalanceFee returns fee * N / (4*(N-1)), the imbalance-fee
// fraction applied to deposits/withdrawals that change pool composition.
func (p *Pool) imbalanceFee() *big.Int {
	f := new(big.Int).Mul(p.fee, big.NewInt(N))
	f.Div(f, big.NewInt(4*(N-1)))
	return f
}

// Swap exchanges dx of asset i for asset j, failing if the resulting
// output is below minDy. Per spec §4.6 / §5, the reserve update is
// committed before the external token calls are made.
func (p *Pool) Swap(caller common.Address, i, j int, dx *uint256.Int, minDy *uint256.Int) (*uint256.Int, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.exit()

	if err := validateIndices(i, j); err != nil {
		return nil, err
	}
	dxBig := u256ToBig(dx)
	if dxBig.Sign() == 0 {
		return nil, ErrAmountZero
	}

	xp := p.xp()
	dxNorm := new(big.Int).Mul(dxBig, p.rates[i])
	dxNorm.Div(dxNorm, Precision)
	xNew := new(big.Int).Add(xp[i], dxNorm)

	yNew, err := getY(i, j, xNew, xp, p.currentA())
	if err != nil {
		p.log.Warn("stableswap: swap solver failed", "i", i, "j", j)
		return nil, err
	}

	dyGross := denormalizeAmount(new(big.Int).Sub(xp[j], yNew), p.rates[j])

	feeAmt := new(big.Int).Mul(dyGross, p.fee)
	feeAmt.Div(feeAmt, FeeDenominator)
	dy := new(big.Int).Sub(dyGross, feeAmt)

	adminCut := new(big.Int).Mul(feeAmt, p.adminFee)
	adminCut.Div(adminCut, FeeDenominator)

	minDyBig := u256ToBig(minDy)
	if dy.Cmp(minDyBig) < 0 {
		return nil, ErrSlippageTooHigh
	}

	p.balances[i].Add(p.balances[i], dxBig)
	p.balances[j].Sub(p.balances[j], new(big.Int).Add(dy, adminCut))

	if err := p.assetTokens[i].TransferFrom(caller, p.address, dx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	dyU256 := bigToU256(dy)
	if err := p.assetTokens[j].Transfer(caller, dyU256); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	p.events.TokenSwap(caller, i, dxBig, j, dy)
	p.log.Debug("stableswap: swap", "i", i, "j", j, "dx", dxBig.String(), "dy", dy.String())
	return dyU256, nil
}

// AddLiquidity deposits amounts[0..N) and mints pool shares proportional to
// the resulting increase in the invariant D, per spec §4.7.
func (p *Pool) AddLiquidity(caller common.Address, amounts [N]*uint256.Int, minMint *uint256.Int) (*uint256.Int, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.exit()

	old := [N]*big.Int{}
	for i := range old {
		old[i] = new(big.Int).Set(p.balances[i])
	}
	a := p.currentA()
	d0, err := getD(normalize(old, p.rates), a)
	if err != nil {
		return nil, err
	}

	var amountsBig [N]*big.Int
	newBalances := [N]*big.Int{}
	for i := 0; i < N; i++ {
		amountsBig[i] = u256ToBig(amounts[i])
		newBalances[i] = new(big.Int).Add(old[i], amountsBig[i])
	}

	d1, err := getD(normalize(newBalances, p.rates), a)
	if err != nil {
		return nil, err
	}
	if d1.Cmp(d0) <= 0 {
		return nil, ErrInvariantDMustIncrease
	}

	totalSupply := u256ToBig(p.share.TotalSupply())

	var d2 *big.Int
	var fees [N]*big.Int
	if totalSupply.Sign() > 0 {
		imbalFee := p.imbalanceFee()
		reD := [N]*big.Int{}
		committed := [N]*big.Int{}
		for i := 0; i < N; i++ {
			ideal := new(big.Int).Mul(d1, old[i])
			ideal.Div(ideal, d0)
			diff := absDiff(newBalances[i], ideal)

			feeI := new(big.Int).Mul(imbalFee, diff)
			feeI.Div(feeI, FeeDenominator)
			fees[i] = feeI

			adminCutI := new(big.Int).Mul(feeI, p.adminFee)
			adminCutI.Div(adminCutI, FeeDenominator)

			committed[i] = new(big.Int).Sub(newBalances[i], adminCutI)
			reD[i] = new(big.Int).Sub(newBalances[i], feeI)
		}
		d2, err = getD(normalize(reD, p.rates), a)
		if err != nil {
			return nil, err
		}
		p.balances = committed
	} else {
		p.balances = newBalances
		d2 = d1
		fees = [N]*big.Int{new(big.Int), new(big.Int), new(big.Int)}
	}

	var minted *big.Int
	if totalSupply.Sign() == 0 {
		minted = new(big.Int).Set(d2)
	} else {
		minted = new(big.Int).Sub(d2, d0)
		minted.Mul(minted, totalSupply)
		minted.Div(minted, d0)
	}

	if minted.Cmp(u256ToBig(minMint)) < 0 {
		return nil, ErrSlippageTooHigh
	}

	for i := 0; i < N; i++ {
		if amountsBig[i].Sign() == 0 {
			continue
		}
		if err := p.assetTokens[i].TransferFrom(caller, p.address, amounts[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	mintedU256 := bigToU256(minted)
	p.share.Mint(caller, mintedU256)

	p.events.AddLiquidity(caller, amountsBig, fees, d2, new(big.Int).Add(totalSupply, minted))
	p.log.Debug("stableswap: add_liquidity", "minted", minted.String())
	return mintedU256, nil
}

// RemoveLiquidity burns shares for a pro-rata share of every reserve, with
// no fee, per spec §4.8.
func (p *Pool) RemoveLiquidity(caller common.Address, burn *uint256.Int, minAmounts [N]*uint256.Int) ([N]*uint256.Int, error) {
	var zero [N]*uint256.Int
	if err := p.enter(); err != nil {
		return zero, err
	}
	defer p.exit()

	burnBig := u256ToBig(burn)
	if burnBig.Sign() == 0 {
		return zero, ErrBurnAmountZero
	}
	callerShares := u256ToBig(p.share.BalanceOf(caller))
	if callerShares.Cmp(burnBig) < 0 {
		return zero, ErrInsufficientBalance
	}

	totalSupply := u256ToBig(p.share.TotalSupply())

	var amounts [N]*big.Int
	for i := 0; i < N; i++ {
		amt := new(big.Int).Mul(p.balances[i], burnBig)
		amt.Div(amt, totalSupply)
		if amt.Cmp(u256ToBig(minAmounts[i])) < 0 {
			return zero, ErrSlippageTooHigh
		}
		amounts[i] = amt
	}

	for i := 0; i < N; i++ {
		p.balances[i].Sub(p.balances[i], amounts[i])
	}
	if err := p.share.Burn(caller, burn); err != nil {
		return zero, err
	}

	var out [N]*uint256.Int
	for i := 0; i < N; i++ {
		out[i] = bigToU256(amounts[i])
		if amounts[i].Sign() > 0 {
			if err := p.assetTokens[i].Transfer(caller, out[i]); err != nil {
				return zero, fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
		}
	}

	p.events.RemoveLiquidity(caller, amounts, new(big.Int).Sub(totalSupply, burnBig))
	return out, nil
}

// RemoveLiquidityOneCoin withdraws the caller's burn entirely in asset i,
// per spec §4.9.
func (p *Pool) RemoveLiquidityOneCoin(caller common.Address, burn *uint256.Int, i int, minAmount *uint256.Int) (*uint256.Int, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.exit()

	if i < 0 || i >= N {
		return nil, fmt.Errorf("%w: %d", ErrInvalidToken, i)
	}
	burnBig := u256ToBig(burn)
	if burnBig.Sign() == 0 {
		return nil, ErrBurnAmountZero
	}
	callerShares := u256ToBig(p.share.BalanceOf(caller))
	if callerShares.Cmp(burnBig) < 0 {
		return nil, ErrInsufficientBalance
	}

	dy, adminCut, totalSupply, err := p.calcWithdrawOneCoin(burnBig, i)
	if err != nil {
		return nil, err
	}
	if dy.Cmp(u256ToBig(minAmount)) < 0 {
		return nil, ErrSlippageTooHigh
	}

	p.balances[i].Sub(p.balances[i], new(big.Int).Add(dy, adminCut))
	if err := p.share.Burn(caller, burn); err != nil {
		return nil, err
	}

	dyU256 := bigToU256(dy)
	if err := p.assetTokens[i].Transfer(caller, dyU256); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	p.events.RemoveLiquidityOne(caller, burnBig, dy, new(big.Int).Sub(totalSupply, burnBig))
	return dyU256, nil
}

// calcWithdrawOneCoin is the math shared by RemoveLiquidityOneCoin (which
// mutates state) and CalcWithdrawOneCoin (the pure view), returning the net
// payout, the admin cut and the pre-withdrawal total supply.
func (p *Pool) calcWithdrawOneCoin(burn *big.Int, i int) (dy, adminCut, totalSupply *big.Int, err error) {
	xp := p.xp()
	a := p.currentA()
	d0, err := getD(xp, a)
	if err != nil {
		return nil, nil, nil, err
	}
	totalSupply = u256ToBig(p.share.TotalSupply())

	d1 := new(big.Int).Mul(burn, d0)
	d1.Div(d1, totalSupply)
	d1.Sub(d0, d1)

	yNew, err := getYD(i, d1, xp, a)
	if err != nil {
		return nil, nil, nil, err
	}
	dyGross := denormalizeAmount(new(big.Int).Sub(xp[i], yNew), p.rates[i])

	ideal := new(big.Int).Mul(p.balances[i], burn)
	ideal.Div(ideal, totalSupply)
	diff := absDiff(dyGross, ideal)

	feeAmt := new(big.Int).Mul(p.imbalanceFee(), diff)
	feeAmt.Div(feeAmt, FeeDenominator)

	dy = new(big.Int).Sub(dyGross, feeAmt)
	adminCut = new(big.Int).Mul(feeAmt, p.adminFee)
	adminCut.Div(adminCut, FeeDenominator)
	return dy, adminCut, totalSupply, nil
}

// RemoveLiquidityImbalance burns just enough shares to withdraw exactly
// amounts[0..N), per spec §4.10.
func (p *Pool) RemoveLiquidityImbalance(caller common.Address, amounts [N]*uint256.Int, maxBurn *uint256.Int) (*uint256.Int, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.exit()

	old := [N]*big.Int{}
	for i := range old {
		old[i] = new(big.Int).Set(p.balances[i])
	}

	var amountsBig [N]*big.Int
	newBalances := [N]*big.Int{}
	for i := 0; i < N; i++ {
		amountsBig[i] = u256ToBig(amounts[i])
		if amountsBig[i].Cmp(old[i]) > 0 {
			return nil, ErrInsufficientBalance
		}
		newBalances[i] = new(big.Int).Sub(old[i], amountsBig[i])
	}

	a := p.currentA()
	d0, err := getD(normalize(old, p.rates), a)
	if err != nil {
		return nil, err
	}
	d1, err := getD(normalize(newBalances, p.rates), a)
	if err != nil {
		return nil, err
	}

	imbalFee := p.imbalanceFee()
	committed := [N]*big.Int{}
	reD := [N]*big.Int{}
	fees := [N]*big.Int{}
	for i := 0; i < N; i++ {
		ideal := new(big.Int).Mul(d1, old[i])
		ideal.Div(ideal, d0)
		diff := absDiff(newBalances[i], ideal)

		feeI := new(big.Int).Mul(imbalFee, diff)
		feeI.Div(feeI, FeeDenominator)
		fees[i] = feeI

		adminCutI := new(big.Int).Mul(feeI, p.adminFee)
		adminCutI.Div(adminCutI, FeeDenominator)

		committed[i] = new(big.Int).Sub(newBalances[i], adminCutI)
		reD[i] = new(big.Int).Sub(newBalances[i], feeI)
	}
	d2, err := getD(normalize(reD, p.rates), a)
	if err != nil {
		return nil, err
	}

	totalSupply := u256ToBig(p.share.TotalSupply())
	burn := new(big.Int).Sub(d0, d2)
	burn.Mul(burn, totalSupply)
	burn.Div(burn, d0)
	if burn.Sign() <= 0 {
		return nil, ErrBurnAmountZero
	}
	burn.Add(burn, one)

	if burn.Cmp(u256ToBig(maxBurn)) > 0 {
		return nil, ErrSlippageTooHigh
	}
	callerShares := u256ToBig(p.share.BalanceOf(caller))
	if callerShares.Cmp(burn) < 0 {
		return nil, ErrInsufficientBalance
	}

	p.balances = committed
	burnU256 := bigToU256(burn)
	if err := p.share.Burn(caller, burnU256); err != nil {
		return nil, err
	}

	for i := 0; i < N; i++ {
		if amountsBig[i].Sign() == 0 {
			continue
		}
		if err := p.assetTokens[i].Transfer(caller, amounts[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	p.events.RemoveLiquidityImbalance(caller, amountsBig, fees, d2, new(big.Int).Sub(totalSupply, burn))
	return burnU256, nil
}

// ---------------------------------------------------------------------
// Views (§4.12) — pure, no state mutation, no external token calls.
// ---------------------------------------------------------------------

// GetDy is the pure variant of Swap: it omits the admin-cut side effects
// and subtracts one ulp before rate conversion so the quoted output never
// exceeds what Swap would actually pay out (§9 open question).
func (p *Pool) GetDy(i, j int, dx *uint256.Int) (*big.Int, error) {
	if err := validateIndices(i, j); err != nil {
		return nil, err
	}
	xp := p.xp()
	a := p.currentA()

	dxNorm := new(big.Int).Mul(u256ToBig(dx), p.rates[i])
	dxNorm.Div(dxNorm, Precision)
	xNew := new(big.Int).Add(xp[i], dxNorm)

	y, err := getY(i, j, xNew, xp, a)
	if err != nil {
		return nil, err
	}

	diff := new(big.Int).Sub(xp[j], y)
	diff.Sub(diff, one)
	dyGross := denormalizeAmount(diff, p.rates[j])

	feeAmt := new(big.Int).Mul(dyGross, p.fee)
	feeAmt.Div(feeAmt, FeeDenominator)
	return new(big.Int).Sub(dyGross, feeAmt), nil
}

// VirtualPrice returns D * Precision / totalSupply, or Precision itself
// before the first deposit (§4.12, I3).
func (p *Pool) VirtualPrice() (*big.Int, error) {
	totalSupply := u256ToBig(p.share.TotalSupply())
	if totalSupply.Sign() == 0 {
		return new(big.Int).Set(Precision), nil
	}
	d, err := getD(p.xp(), p.currentA())
	if err != nil {
		return nil, err
	}
	vp := new(big.Int).Mul(d, Precision)
	vp.Div(vp, totalSupply)
	return vp, nil
}

// CalcTokenAmount is the fee-free estimate of the shares minted/burned by a
// deposit/withdrawal of amounts.
func (p *Pool) CalcTokenAmount(amounts [N]*uint256.Int, isDeposit bool) (*big.Int, error) {
	a := p.currentA()
	d0, err := getD(p.xp(), a)
	if err != nil {
		return nil, err
	}

	newBalances := [N]*big.Int{}
	for i := 0; i < N; i++ {
		amt := u256ToBig(amounts[i])
		if isDeposit {
			newBalances[i] = new(big.Int).Add(p.balances[i], amt)
		} else {
			newBalances[i] = new(big.Int).Sub(p.balances[i], amt)
		}
	}
	d1, err := getD(normalize(newBalances, p.rates), a)
	if err != nil {
		return nil, err
	}

	totalSupply := u256ToBig(p.share.TotalSupply())
	if totalSupply.Sign() == 0 {
		return new(big.Int).Set(d1), nil
	}
	diff := absDiff(d1, d0)
	diff.Mul(diff, totalSupply)
	diff.Div(diff, d0)
	return diff, nil
}

// CalcWithdrawOneCoin is the pure view behind RemoveLiquidityOneCoin.
func (p *Pool) CalcWithdrawOneCoin(burn *uint256.Int, i int) (*big.Int, error) {
	if i < 0 || i >= N {
		return nil, fmt.Errorf("%w: %d", ErrInvalidToken, i)
	}
	dy, _, _, err := p.calcWithdrawOneCoin(u256ToBig(burn), i)
	return dy, err
}

// Balances returns a defensive copy of the current reserve vector.
func (p *Pool) Balances() [N]*uint256.Int {
	var out [N]*uint256.Int
	for i := 0; i < N; i++ {
		out[i] = bigToU256(p.balances[i])
	}
	return out
}
