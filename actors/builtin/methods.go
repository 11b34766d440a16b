package builtin

import (
	"github.com/filecoin-project/go-state-types/abi"
)

const (
	MethodSend        = abi.MethodNum(0)
	MethodConstructor = abi.MethodNum(1)
)

type vestingMethods struct {
	Constructor             abi.MethodNum
	CreateSchedule          abi.MethodNum
	CreateRevocableSchedule abi.MethodNum
	Release                 abi.MethodNum
	Revoke                  abi.MethodNum
	Withdraw                abi.MethodNum
	GetScheduleID           abi.MethodNum
}

var MethodsVesting = vestingMethods{MethodConstructor, 2, 3, 4, 5, 6, 7}

// Methods of the notification sink actor the vesting actor reports to.
// The sink is an external collaborator; only the method numbers are fixed here.
type vestingSinkMethods struct {
	Constructor       abi.MethodNum
	OnScheduleCreated abi.MethodNum
	OnReleased        abi.MethodNum
	OnRevoked         abi.MethodNum
	OnWithdrawn       abi.MethodNum
}

var MethodsVestingSink = vestingSinkMethods{MethodConstructor, 2, 3, 4, 5}
