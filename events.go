// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stableswap

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// EventSink is the ambient notification capability. Events are
// fire-and-forget: the engine never branches on whether emission
// "succeeded", it's a sink, not a collaborator with its own failure mode.
type EventSink interface {
	TokenSwap(buyer common.Address, soldID int, tokensSold *big.Int, boughtID int, tokensBought *big.Int)
	AddLiquidity(provider common.Address, tokenAmounts [N]*big.Int, fees [N]*big.Int, invariant, tokenSupply *big.Int)
	RemoveLiquidity(provider common.Address, tokenAmounts [N]*big.Int, tokenSupply *big.Int)
	RemoveLiquidityOne(provider common.Address, tokenAmount, coinAmount, tokenSupply *big.Int)
	RemoveLiquidityImbalance(provider common.Address, tokenAmounts [N]*big.Int, fees [N]*big.Int, invariant, tokenSupply *big.Int)
	RampA(oldA, newA uint64, initialTime, futureTime uint64)
	StopRampA(a uint64, time uint64)
}

// noopEventSink discards every event. It is the default when a PoolConfig
// doesn't supply one, so the engine stays usable standalone (e.g. in tests)
// without requiring a real observer collaborator.
type noopEventSink struct{}

func (noopEventSink) TokenSwap(common.Address, int, *big.Int, int, *big.Int)                  {}
func (noopEventSink) AddLiquidity(common.Address, [N]*big.Int, [N]*big.Int, *big.Int, *big.Int) {}
func (noopEventSink) RemoveLiquidity(common.Address, [N]*big.Int, *big.Int)                    {}
func (noopEventSink) RemoveLiquidityOne(common.Address, *big.Int, *big.Int, *big.Int)         {}
func (noopEventSink) RemoveLiquidityImbalance(common.Address, [N]*big.Int, [N]*big.Int, *big.Int, *big.Int) {
}
func (noopEventSink) RampA(uint64, uint64, uint64, uint64) {}
func (noopEventSink) StopRampA(uint64, uint64)             {}
