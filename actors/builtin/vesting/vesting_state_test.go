package vesting_test

import (
	"context"
	"strings"
	"testing"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vestral/vesting-actors/actors/builtin/vesting"
	"github.com/vestral/vesting-actors/actors/util/adt"
	"github.com/vestral/vesting-actors/support/mock"
	tutil "github.com/vestral/vesting-actors/support/testing"
)

func TestScheduleIDDerivation(t *testing.T) {
	holder := tutil.NewIDAddr(t, 101)
	other := tutil.NewIDAddr(t, 102)

	t.Run("deterministic", func(t *testing.T) {
		a := vesting.ScheduleIDFor(holder, 0)
		b := vesting.ScheduleIDFor(holder, 0)
		assert.True(t, a.Equals(b))
		assert.Len(t, []byte(a), vesting.ScheduleIDLength)
	})

	t.Run("distinct per index", func(t *testing.T) {
		assert.False(t, vesting.ScheduleIDFor(holder, 0).Equals(vesting.ScheduleIDFor(holder, 1)))
	})

	t.Run("distinct per holder", func(t *testing.T) {
		assert.False(t, vesting.ScheduleIDFor(holder, 0).Equals(vesting.ScheduleIDFor(other, 0)))
	})
}

func TestStateSchedules(t *testing.T) {
	admin := tutil.NewIDAddr(t, 101)
	holder := tutil.NewIDAddr(t, 102)

	newSchedule := func(beneficiary addr.Address, amount int64) *vesting.VestingSchedule {
		return &vesting.VestingSchedule{
			Beneficiary: beneficiary,
			Start:       vesting.VestingStartEpoch,
			Cliff:       vesting.VestingStartEpoch + vesting.CliffDuration,
			Duration:    vesting.VestingDuration,
			Revocable:   false,
			Revoked:     false,
			AmountTotal: abi.NewTokenAmount(amount),
			Released:    big.Zero(),
		}
	}

	setup := func(t *testing.T) (adt.Store, *vesting.State) {
		rt := mock.NewBuilder(context.Background(), tutil.NewIDAddr(t, 100)).Build(t)
		store := adt.AsStore(rt)
		st, err := vesting.ConstructState(store, admin, nil)
		require.NoError(t, err)
		return store, st
	}

	t.Run("insert and retrieve", func(t *testing.T) {
		store, st := setup(t)

		id := vesting.ScheduleIDFor(holder, 0)
		require.NoError(t, st.InsertSchedule(store, id, newSchedule(holder, 100)))

		sched, found, err := st.GetSchedule(store, id)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, holder, sched.Beneficiary)
		assert.Equal(t, abi.NewTokenAmount(100), sched.AmountTotal)

		count, err := st.ScheduleCountFor(store, holder)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count)
		assert.Equal(t, uint64(1), st.ScheduleCount)
	})

	t.Run("missing schedule is not found", func(t *testing.T) {
		store, st := setup(t)

		_, found, err := st.GetSchedule(store, vesting.ScheduleIDFor(holder, 0))
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("duplicate insertion is rejected", func(t *testing.T) {
		store, st := setup(t)

		id := vesting.ScheduleIDFor(holder, 0)
		require.NoError(t, st.InsertSchedule(store, id, newSchedule(holder, 100)))
		assert.Error(t, st.InsertSchedule(store, id, newSchedule(holder, 200)))
	})

	t.Run("identifier log preserves creation order", func(t *testing.T) {
		store, st := setup(t)

		first := vesting.ScheduleIDFor(holder, 0)
		second := vesting.ScheduleIDFor(holder, 1)
		require.NoError(t, st.InsertSchedule(store, first, newSchedule(holder, 100)))
		require.NoError(t, st.InsertSchedule(store, second, newSchedule(holder, 200)))

		got, found, err := st.ScheduleIDAt(store, 0)
		require.NoError(t, err)
		require.True(t, found)
		assert.True(t, first.Equals(got))

		got, found, err = st.ScheduleIDAt(store, 1)
		require.NoError(t, err)
		require.True(t, found)
		assert.True(t, second.Equals(got))

		_, found, err = st.ScheduleIDAt(store, 2)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestReleasable(t *testing.T) {
	holder := tutil.NewIDAddr(t, 101)

	schedule := func(amount int64) *vesting.VestingSchedule {
		return &vesting.VestingSchedule{
			Beneficiary: holder,
			Start:       1000,
			Cliff:       1000 + vesting.CliffDuration,
			Duration:    vesting.VestingDuration,
			AmountTotal: abi.NewTokenAmount(amount),
			Released:    big.Zero(),
		}
	}

	t.Run("zero before the cliff", func(t *testing.T) {
		s := schedule(100)
		assert.Equal(t, big.Zero(), s.Releasable(0))
		assert.Equal(t, big.Zero(), s.Releasable(s.Cliff-1))
	})

	t.Run("half at the midpoint", func(t *testing.T) {
		s := schedule(100)
		assert.Equal(t, abi.NewTokenAmount(50), s.Releasable(s.Start+s.Duration/2))
	})

	t.Run("everything after the window", func(t *testing.T) {
		s := schedule(100)
		assert.Equal(t, abi.NewTokenAmount(100), s.Releasable(s.Start+s.Duration))
		assert.Equal(t, abi.NewTokenAmount(100), s.Releasable(s.Start+s.Duration+1e6))
	})

	t.Run("fractional proportions are floored", func(t *testing.T) {
		s := schedule(0)
		s.AmountTotal = big.Mul(big.NewInt(99), big.NewInt(1e18))
		got := s.Releasable(s.Cliff + 1)
		assert.Equal(t, big.MustFromString("49500006365740740740"), got)
	})

	t.Run("released amounts are subtracted", func(t *testing.T) {
		s := schedule(100)
		s.Released = abi.NewTokenAmount(30)
		assert.Equal(t, abi.NewTokenAmount(20), s.Releasable(s.Start+s.Duration/2))
		assert.Equal(t, abi.NewTokenAmount(70), s.Releasable(s.Start+s.Duration))
	})

	t.Run("zero once revoked", func(t *testing.T) {
		s := schedule(100)
		s.Revocable = true
		s.Revoked = true
		assert.Equal(t, big.Zero(), s.Releasable(s.Start+s.Duration))
	})
}

func TestCheckStateInvariants(t *testing.T) {
	admin := tutil.NewIDAddr(t, 101)
	holder := tutil.NewIDAddr(t, 102)

	setup := func(t *testing.T) (adt.Store, *vesting.State) {
		rt := mock.NewBuilder(context.Background(), tutil.NewIDAddr(t, 100)).Build(t)
		store := adt.AsStore(rt)
		st, err := vesting.ConstructState(store, admin, nil)
		require.NoError(t, err)
		return store, st
	}

	t.Run("well-formed state is clean", func(t *testing.T) {
		store, st := setup(t)
		require.NoError(t, st.InsertSchedule(store, vesting.ScheduleIDFor(holder, 0), &vesting.VestingSchedule{
			Beneficiary: holder,
			Start:       1000,
			Cliff:       1000 + vesting.CliffDuration,
			Duration:    vesting.VestingDuration,
			AmountTotal: abi.NewTokenAmount(100),
			Released:    big.Zero(),
		}))
		st.TotalLocked = abi.NewTokenAmount(100)

		acc, summary := vesting.CheckStateInvariants(st, store)
		assert.True(t, acc.IsEmpty(), strings.Join(acc.Messages(), "\n"))
		assert.Equal(t, uint64(1), summary.ScheduleCount)
	})

	t.Run("cliff at or past the window end is reported", func(t *testing.T) {
		store, st := setup(t)
		require.NoError(t, st.InsertSchedule(store, vesting.ScheduleIDFor(holder, 0), &vesting.VestingSchedule{
			Beneficiary: holder,
			Start:       1000,
			Cliff:       1000 + 100,
			Duration:    100,
			AmountTotal: abi.NewTokenAmount(100),
			Released:    big.Zero(),
		}))
		st.TotalLocked = abi.NewTokenAmount(100)

		acc, _ := vesting.CheckStateInvariants(st, store)
		require.False(t, acc.IsEmpty())
		assert.Contains(t, strings.Join(acc.Messages(), "\n"), "cliff")
	})
}

func TestWithdrawableBalance(t *testing.T) {
	st := &vesting.State{TotalLocked: abi.NewTokenAmount(100)}

	assert.Equal(t, abi.NewTokenAmount(50), st.WithdrawableBalance(abi.NewTokenAmount(150)))
	assert.True(t, big.Zero().Equals(st.WithdrawableBalance(abi.NewTokenAmount(100))))
	// A balance below the locked pool reports nothing withdrawable rather than a
	// negative amount.
	assert.Equal(t, big.Zero(), st.WithdrawableBalance(abi.NewTokenAmount(99)))
}
