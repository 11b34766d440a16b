package main

import (
	vesting "github.com/vestral/vesting-actors/actors/builtin/vesting"

	gen "github.com/whyrusleeping/cbor-gen"
)

func main() {
	if err := gen.WriteTupleEncodersToFile("./actors/builtin/vesting/cbor_gen.go", "vesting",
		// actor state
		vesting.State{},
		vesting.VestingSchedule{},
		// method params and returns
		vesting.ConstructorParams{},
		vesting.CreateRevocableScheduleParams{},
		vesting.CreateScheduleReturn{},
		vesting.ReleaseParams{},
		vesting.ScheduleIDParams{},
		vesting.ScheduleIndexParams{},
		vesting.WithdrawParams{},
		// notification payloads
		vesting.ScheduleCreatedNotification{},
		vesting.ReleasedNotification{},
		vesting.WithdrawnNotification{},
	); err != nil {
		panic(err)
	}
}
