package builtin

import (
	addr "github.com/filecoin-project/go-address"
)

// Addresses of the system singleton actors.
var (
	SystemActorAddr     = mustMakeAddress(0)
	InitActorAddr       = mustMakeAddress(1)
	BurntFundsActorAddr = mustMakeAddress(99)
)

func mustMakeAddress(id uint64) addr.Address {
	address, err := addr.NewIDAddress(id)
	if err != nil {
		panic(err)
	}
	return address
}
