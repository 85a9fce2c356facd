// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stableswap

import (
	"errors"
	"math/big"
)

// ampRamp holds the linear-in-time interpolation anchors for the
// amplification coefficient A. The zero value (all fields zero) is not a
// valid ramp state; callers must initialize it via newAmpRamp.
type ampRamp struct {
	initialA     uint64
	futureA      uint64
	initialATime uint64
	futureATime  uint64
}

// newAmpRamp returns a ramp with both anchors pinned at initialA — i.e. no
// ramp in progress, current A is simply initialA forever.
func newAmpRamp(initialA uint64, now uint64) ampRamp {
	return ampRamp{
		initialA:     initialA,
		futureA:      initialA,
		initialATime: now,
		futureATime:  now,
	}
}

// currentA returns A at the given wall-clock time by linear interpolation
// between (initialA, initialATime) and (futureA, futureATime). Division
// truncates.
func (r ampRamp) currentA(now uint64) uint64 {
	if now >= r.futureATime {
		return r.futureA
	}

	span := new(big.Int).SetUint64(r.futureATime - r.initialATime)
	elapsed := new(big.Int).SetUint64(now - r.initialATime)

	if r.futureA >= r.initialA {
		delta := new(big.Int).SetUint64(r.futureA - r.initialA)
		delta.Mul(delta, elapsed)
		delta.Div(delta, span)
		return r.initialA + delta.Uint64()
	}

	delta := new(big.Int).SetUint64(r.initialA - r.futureA)
	delta.Mul(delta, elapsed)
	delta.Div(delta, span)
	return r.initialA - delta.Uint64()
}

// Ramp-specific errors (§7).
var (
	ErrRampingTooSoon          = errors.New("stableswap: ramp requested too soon")
	ErrRampParameterOutOfRange = errors.New("stableswap: ramp target out of range")
	ErrAChangeTooBig           = errors.New("stableswap: ramp change exceeds MaxAChange")
)

// beginRamp validates and commits a new ramp, per spec §4.5. The "ramping
// too soon" predicate follows the implementer's choice documented in
// DESIGN.md: a new ramp is disallowed while now < futureATime and
// now < initialATime + MinRampTime, i.e. only during the first MinRampTime
// of a ramp that is still in progress. Once that ramp has finished, or
// MinRampTime has passed since it began, a new ramp is accepted.
func (r *ampRamp) beginRamp(target uint64, deadline uint64, now uint64) error {
	if target == 0 || target > MaxA {
		return ErrRampParameterOutOfRange
	}
	if deadline < now+MinRampTime {
		return ErrRampingTooSoon
	}
	if now < r.futureATime && now < r.initialATime+MinRampTime {
		return ErrRampingTooSoon
	}

	aNow := r.currentA(now)

	if target >= aNow {
		if target > aNow*MaxAChange {
			return ErrAChangeTooBig
		}
	} else {
		if target*MaxAChange < aNow {
			return ErrAChangeTooBig
		}
	}

	r.initialA = aNow
	r.futureA = target
	r.initialATime = now
	r.futureATime = deadline
	return nil
}

// stopRamp snapshots the current A into both endpoints, ending any ramp in
// progress immediately.
func (r *ampRamp) stopRamp(now uint64) uint64 {
	aNow := r.currentA(now)
	r.initialA = aNow
	r.futureA = aNow
	r.initialATime = now
	r.futureATime = now
	return aNow
}
