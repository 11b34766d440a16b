package mock

import (
	"context"
	"testing"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	cid "github.com/ipfs/go-cid"
)

// Build for fluent initialization of a mock runtime.
type RuntimeBuilder struct {
	rt *Runtime
}

// Initializes a new builder with a receiving actor address.
func NewBuilder(ctx context.Context, receiver addr.Address) *RuntimeBuilder {
	m := &Runtime{
		ctx:          ctx,
		epoch:        0,
		receiver:     receiver,
		caller:       addr.Address{},
		callerType:   cid.Undef,

		state: cid.Undef,
		store: make(map[cid.Cid][]byte),

		balance:       abi.NewTokenAmount(0),
		valueReceived: abi.NewTokenAmount(0),

		actorCodeCIDs: make(map[addr.Address]cid.Cid),

		t:                        nil, // Initialized at Build()
		expectValidateCallerAny:  false,
		expectValidateCallerAddr: nil,
		expectValidateCallerType: nil,

		expectSends: make([]*expectedMessage, 0),
	}
	return &RuntimeBuilder{m}
}

// Builds a new runtime object with the configured values.
func (b *RuntimeBuilder) Build(t testing.TB) *Runtime {
	cpy := *b.rt

	// Deep copy the mutable values.
	cpy.store = make(map[cid.Cid][]byte)
	for k, v := range b.rt.store {
		cpy.store[k] = v
	}

	cpy.t = t
	return &cpy
}

func (b *RuntimeBuilder) WithEpoch(epoch abi.ChainEpoch) *RuntimeBuilder {
	b.rt.epoch = epoch
	return b
}

func (b *RuntimeBuilder) WithCaller(address addr.Address, code cid.Cid) *RuntimeBuilder {
	b.rt.caller = address
	b.rt.callerType = code
	return b
}

func (b *RuntimeBuilder) WithBalance(balance, received abi.TokenAmount) *RuntimeBuilder {
	b.rt.balance = balance
	b.rt.valueReceived = received
	return b
}
