package vesting

import (
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/vestral/vesting-actors/actors/builtin"
)

// The epoch before which zero amount of a schedule is releasable, counted from its start.
const CliffDuration = abi.ChainEpoch(90 * builtin.EpochsInDay) // PARAM_SPEC

// The length of the linear unlock window, counted from a schedule's start.
// Must exceed CliffDuration or nothing would ever vest linearly.
const VestingDuration = abi.ChainEpoch(180 * builtin.EpochsInDay) // PARAM_SPEC

// The epoch at which all early schedules begin vesting. Schedules created before this
// epoch share a common unlock clock; schedules created later start immediately.
// A var rather than a const so that deployments can override it at build time.
var VestingStartEpoch = abi.ChainEpoch(120 * builtin.EpochsInDay) // PARAM_SPEC
