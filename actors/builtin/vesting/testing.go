package vesting

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	cbg "github.com/whyrusleeping/cbor-gen"

	"github.com/vestral/vesting-actors/actors/builtin"
	"github.com/vestral/vesting-actors/actors/util/adt"
)

type StateSummary struct {
	ScheduleCount uint64
	RevokedCount  uint64
	PendingTotal  abi.TokenAmount
}

// Checks internal invariants of vesting state.
func CheckStateInvariants(st *State, store adt.Store) (*builtin.MessageAccumulator, *StateSummary) {
	acc := &builtin.MessageAccumulator{}

	pendingTotal := big.Zero()
	scheduleCount := uint64(0)
	revokedCount := uint64(0)
	found := map[string]bool{}

	schedules := adt.AsMap(store, st.Schedules)
	var schedule VestingSchedule
	err := schedules.ForEach(&schedule, func(key string) error {
		scheduleCount++
		found[key] = true

		acc.Require(len(key) == ScheduleIDLength, "schedule key %x has length %d", []byte(key), len(key))
		acc.Require(schedule.Beneficiary != addr.Undef, "schedule %x has no beneficiary", []byte(key))
		acc.Require(schedule.AmountTotal.GreaterThan(big.Zero()), "schedule %x has non-positive total %v", []byte(key), schedule.AmountTotal)
		acc.Require(schedule.Released.GreaterThanEqual(big.Zero()), "schedule %x has negative released %v", []byte(key), schedule.Released)
		acc.Require(schedule.Released.LessThanEqual(schedule.AmountTotal), "schedule %x released %v exceeds total %v",
			[]byte(key), schedule.Released, schedule.AmountTotal)
		acc.Require(schedule.Duration > 0, "schedule %x has non-positive duration %d", []byte(key), schedule.Duration)
		acc.Require(schedule.Cliff >= schedule.Start, "schedule %x cliff %d precedes start %d", []byte(key), schedule.Cliff, schedule.Start)
		acc.Require(schedule.Cliff < schedule.Start+schedule.Duration, "schedule %x cliff %d at or past window end %d",
			[]byte(key), schedule.Cliff, schedule.Start+schedule.Duration)
		acc.Require(schedule.Revocable || !schedule.Revoked, "irrevocable schedule %x is marked revoked", []byte(key))

		if schedule.Revoked {
			revokedCount++
		} else {
			pendingTotal = big.Add(pendingTotal, schedule.Unreleased())
		}
		return nil
	})
	acc.Require(err == nil, "error iterating schedules: %v", err)

	acc.Require(scheduleCount == st.ScheduleCount, "%d schedules in table, expected %d", scheduleCount, st.ScheduleCount)
	acc.Require(pendingTotal.Equals(st.TotalLocked), "sum of pending amounts %v does not equal total locked %v",
		pendingTotal, st.TotalLocked)

	ids := adt.AsArray(store, st.ScheduleIDs)
	idCount, err := ids.Length()
	acc.Require(err == nil, "error loading identifier log: %v", err)
	acc.Require(idCount == st.ScheduleCount, "identifier log has %d entries, expected %d", idCount, st.ScheduleCount)

	var id ScheduleID
	err = ids.ForEach(&id, func(i int64) error {
		acc.Require(found[id.Key()], "logged identifier %x at index %d has no schedule", id, i)
		return nil
	})
	acc.Require(err == nil, "error iterating identifier log: %v", err)

	holderTotal := uint64(0)
	holders := adt.AsMap(store, st.HolderCounts)
	var count cbg.CborInt
	err = holders.ForEach(&count, func(key string) error {
		holder, err := addr.NewFromBytes([]byte(key))
		if err != nil {
			return err
		}
		acc.Require(count > 0, "holder %v has non-positive schedule count %d", holder, count)
		holderTotal += uint64(count)

		// Every identifier a holder's count implies must be present.
		for i := uint64(0); i < uint64(count); i++ {
			acc.Require(found[ScheduleIDFor(holder, i).Key()], "derived identifier for holder %v index %d has no schedule", holder, i)
		}
		return nil
	})
	acc.Require(err == nil, "error iterating holder counts: %v", err)
	acc.Require(holderTotal == st.ScheduleCount, "holder counts sum to %d, expected %d", holderTotal, st.ScheduleCount)

	return acc, &StateSummary{
		ScheduleCount: scheduleCount,
		RevokedCount:  revokedCount,
		PendingTotal:  pendingTotal,
	}
}
