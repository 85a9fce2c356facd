// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stableswap

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// mockAssetToken is an in-memory stand-in for the ambient token-transfer
// capability, mirroring the teacher's MockStateDB convention
// (dex/liquid_test.go, dex/lending_test.go): a small map-backed fake rather
// than a mocking framework.
type mockAssetToken struct {
	balances map[common.Address]*uint256.Int
	// pool is the address Transfer debits from, modeling the real ERC-20
	// semantics where Transfer is always called by the token holder
	// itself (here, always the pool). Set by newTestPool once the pool's
	// derived address is known.
	pool common.Address
}

func newMockAssetToken() *mockAssetToken {
	return &mockAssetToken{balances: make(map[common.Address]*uint256.Int)}
}

func (m *mockAssetToken) setPool(addr common.Address) {
	m.pool = addr
}

func (m *mockAssetToken) BalanceOf(addr common.Address) *uint256.Int {
	if b, ok := m.balances[addr]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

func (m *mockAssetToken) setBalance(addr common.Address, amount *uint256.Int) {
	m.balances[addr] = new(uint256.Int).Set(amount)
}

// Transfer models the pool moving its own tokens out to to, debiting the
// pool's own balance. Every Swap/RemoveLiquidity* payout and admin-fee
// sweep goes through this path.
func (m *mockAssetToken) Transfer(to common.Address, amount *uint256.Int) error {
	if m.pool != (common.Address{}) {
		bal := m.BalanceOf(m.pool)
		bal.Sub(bal, amount) // tests fund the pool before transferring; underflow would indicate a broken fixture
		m.balances[m.pool] = bal
	}
	m.credit(to, amount)
	return nil
}

// TransferFrom models a depositor moving tokens into the pool: it debits
// from directly and credits to without touching the pool-self-debit logic
// Transfer applies (to is the pool here, not the caller).
func (m *mockAssetToken) TransferFrom(from, to common.Address, amount *uint256.Int) error {
	bal := m.BalanceOf(from)
	if bal.Cmp(amount) < 0 {
		bal = new(uint256.Int) // tests fund the caller directly; underflow would indicate a broken fixture
	} else {
		bal.Sub(bal, amount)
	}
	m.balances[from] = bal
	m.credit(to, amount)
	return nil
}

func (m *mockAssetToken) credit(to common.Address, amount *uint256.Int) {
	bal := m.BalanceOf(to)
	bal.Add(bal, amount)
	m.balances[to] = bal
}

type mockShareToken struct {
	balances map[common.Address]*uint256.Int
	supply   *uint256.Int
}

func newMockShareToken() *mockShareToken {
	return &mockShareToken{
		balances: make(map[common.Address]*uint256.Int),
		supply:   new(uint256.Int),
	}
}

func (m *mockShareToken) Mint(addr common.Address, amount *uint256.Int) {
	bal := m.BalanceOf(addr)
	bal.Add(bal, amount)
	m.balances[addr] = bal
	m.supply.Add(m.supply, amount)
}

func (m *mockShareToken) Burn(addr common.Address, amount *uint256.Int) error {
	bal := m.BalanceOf(addr)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	bal.Sub(bal, amount)
	m.balances[addr] = bal
	m.supply.Sub(m.supply, amount)
	return nil
}

func (m *mockShareToken) BalanceOf(addr common.Address) *uint256.Int {
	if b, ok := m.balances[addr]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

func (m *mockShareToken) TotalSupply() *uint256.Int {
	return new(uint256.Int).Set(m.supply)
}

type mockOwner struct {
	owner common.Address
}

func (m mockOwner) IsOwner(caller common.Address) bool { return caller == m.owner }

type mockClock struct {
	t uint64
}

func (c *mockClock) Now() uint64 { return c.t }

// testPool wires a 3-asset pool (DAI 18dp, USDC 6dp, USDT 6dp) with the
// canonical scenario parameters from spec §8: A=200, fee=4e6, admin_fee=5e9.
type testPool struct {
	pool   *Pool
	tokens [N]*mockAssetToken
	share  *mockShareToken
	owner  common.Address
	clock  *mockClock
}

func newTestPool(t interface{ Fatal(args ...interface{}) }) *testPool {
	dai := common.HexToAddress("0x0000000000000000000000000000000000da1001")
	usdc := common.HexToAddress("0x0000000000000000000000000000000000c2c002")
	usdt := common.HexToAddress("0x0000000000000000000000000000000000dc0003")
	owner := common.HexToAddress("0x0000000000000000000000000000000000000001")

	tokens := [N]*mockAssetToken{newMockAssetToken(), newMockAssetToken(), newMockAssetToken()}
	assetTokens := [N]AssetToken{tokens[0], tokens[1], tokens[2]}
	share := newMockShareToken()
	clock := &mockClock{t: 1_700_000_000}

	cfg := PoolConfig{
		Assets:      [N]common.Address{dai, usdc, usdt},
		AssetTokens: assetTokens,
		Decimals:    [N]uint{18, 6, 6},
		Share:       share,
		Owner:       mockOwner{owner: owner},
		Clock:       clock,
		InitialA:    200,
		Fee:         big.NewInt(4_000_000),
		AdminFee:    big.NewInt(5_000_000_000),
	}

	p, err := NewPool(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < N; i++ {
		tokens[i].setPool(p.address)
	}
	return &testPool{pool: p, tokens: tokens, share: share, owner: owner, clock: clock}
}

func mustU256(s string) *uint256.Int {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad number literal: " + s)
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		panic("literal overflows uint256: " + s)
	}
	return u
}

func u256Mul(a *uint256.Int, n int64) *uint256.Int {
	return new(uint256.Int).Mul(a, uint256.NewInt(uint64(n)))
}
