// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stableswap

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// RampA begins a linear ramp of the amplification coefficient toward
// target, completing at deadline. Owner-only; see spec §4.5 for the
// guardrails (MinRampTime cooldown, MaxAChange bound).
func (p *Pool) RampA(caller common.Address, target uint64, deadline uint64) error {
	if !p.owner.IsOwner(caller) {
		return ErrUnauthorized
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.exit()

	now := p.clock.Now()
	oldA := p.amp.currentA(now)
	if err := p.amp.beginRamp(target, deadline, now); err != nil {
		return err
	}

	p.events.RampA(oldA, target, now, deadline)
	p.log.Info("stableswap: ramp_a", "target", target, "deadline", deadline)
	return nil
}

// StopRampA freezes A at its current interpolated value, ending any ramp
// in progress. Owner-only.
func (p *Pool) StopRampA(caller common.Address) error {
	if !p.owner.IsOwner(caller) {
		return ErrUnauthorized
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.exit()

	now := p.clock.Now()
	a := p.amp.stopRamp(now)

	p.events.StopRampA(a, now)
	p.log.Info("stableswap: stop_ramp_a", "a", a)
	return nil
}

// WithdrawAdminFee sweeps the accrued admin-fee surplus — the gap between
// each asset's on-chain token balance and the pool's accounted balances —
// to recipient. Owner-only. No invariant recomputation is required: the
// accounted balances are already net of every admin cut (§4.11).
func (p *Pool) WithdrawAdminFee(caller common.Address, recipient common.Address) error {
	if !p.owner.IsOwner(caller) {
		return ErrUnauthorized
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.exit()

	for i := 0; i < N; i++ {
		onChain := u256ToBig(p.assetTokens[i].BalanceOf(p.address))
		surplus := new(big.Int).Sub(onChain, p.balances[i])
		if surplus.Sign() <= 0 {
			continue
		}
		if err := p.assetTokens[i].Transfer(recipient, bigToU256(surplus)); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	return nil
}
