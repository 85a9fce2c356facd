// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stableswap

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestRampARequiresOwner(t *testing.T) {
	tp := newTestPool(t)
	err := tp.pool.RampA(bob, 400, tp.clock.t+MinRampTime)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRampAMovesCurrentAOverTime(t *testing.T) {
	tp := newTestPool(t)
	start := tp.clock.t
	deadline := start + MinRampTime

	err := tp.pool.RampA(tp.owner, 400, deadline)
	require.NoError(t, err)
	require.Equal(t, uint64(200), tp.pool.currentA().Uint64())

	tp.clock.t = start + MinRampTime/2
	mid := tp.pool.currentA().Uint64()
	require.True(t, mid > 200 && mid < 400, "A should be interpolating, got %d", mid)

	tp.clock.t = deadline
	require.Equal(t, uint64(400), tp.pool.currentA().Uint64())
}

func TestStopRampARequiresOwner(t *testing.T) {
	tp := newTestPool(t)
	err := tp.pool.StopRampA(bob)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestStopRampAFreezesA(t *testing.T) {
	tp := newTestPool(t)
	start := tp.clock.t
	require.NoError(t, tp.pool.RampA(tp.owner, 400, start+MinRampTime))

	tp.clock.t = start + MinRampTime/2
	require.NoError(t, tp.pool.StopRampA(tp.owner))
	frozen := tp.pool.currentA().Uint64()

	tp.clock.t = start + MinRampTime*10
	require.Equal(t, frozen, tp.pool.currentA().Uint64())
}

func TestWithdrawAdminFeeRequiresOwner(t *testing.T) {
	tp := newTestPool(t)
	err := tp.pool.WithdrawAdminFee(bob, bob)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestWithdrawAdminFeeSweepsAccruedSurplus(t *testing.T) {
	tp := newTestPool(t)
	depositEqual(t, tp, alice)

	dx := mustU256("100000000000000000000")
	tp.tokens[0].setBalance(bob, dx)
	_, err := tp.pool.Swap(bob, 0, 1, dx, new(uint256.Int))
	require.NoError(t, err)

	recipient := common.HexToAddress("0x00000000000000000000000000000000000fee")
	require.NoError(t, tp.pool.WithdrawAdminFee(tp.owner, recipient))

	swept := tp.tokens[1].BalanceOf(recipient)
	require.True(t, swept.Sign() > 0, "expected a nonzero admin-fee surplus to be swept")

	// a second sweep with nothing new accrued moves nothing
	before := tp.tokens[1].BalanceOf(recipient)
	require.NoError(t, tp.pool.WithdrawAdminFee(tp.owner, recipient))
	require.Equal(t, before, tp.tokens[1].BalanceOf(recipient))
}
