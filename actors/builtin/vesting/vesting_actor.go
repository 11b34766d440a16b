package vesting

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/vestral/vesting-actors/actors/builtin"
	vmr "github.com/vestral/vesting-actors/actors/runtime"
	"github.com/vestral/vesting-actors/actors/util/adt"
)

// Actor-specific exit codes. Every failure mode surfaces as a distinct code so that
// callers can react precisely (retry after the cliff, prompt re-approval, etc).
const (
	ErrAmountMustBePositive = exitcode.ExitCode(32) + iota
	ErrScheduleNotFound
	ErrScheduleRevoked
	ErrNotRevocable
	ErrNotBeneficiaryOrOwner
	ErrInsufficientReleasable
	ErrNotEnoughWithdrawableFunds
	ErrDuplicateSchedule
	ErrIndexOutOfBounds
)

type Actor struct{}

func (a Actor) Exports() []interface{} {
	return []interface{}{
		builtin.MethodConstructor: a.Constructor,
		2:                         a.CreateSchedule,
		3:                         a.CreateRevocableSchedule,
		4:                         a.Release,
		5:                         a.Revoke,
		6:                         a.Withdraw,
		7:                         a.GetScheduleID,
	}
}

var _ vmr.Invokee = Actor{}

type Runtime = vmr.Runtime

////////////////////////////////////////////////////////////////////////////////
// Actor methods
////////////////////////////////////////////////////////////////////////////////

type ConstructorParams struct {
	// The administrator capability holder.
	Admin addr.Address
	// Actor to receive ledger notifications, or nil to disable them.
	NotifySink *addr.Address
}

func (a Actor) Constructor(rt Runtime, params *ConstructorParams) *adt.EmptyValue {
	rt.ValidateImmediateCallerIs(builtin.InitActorAddr)

	if params.Admin == addr.Undef {
		rt.Abortf(exitcode.ErrIllegalArgument, "administrator address is undefined")
	}

	st, err := ConstructState(adt.AsStore(rt), params.Admin, params.NotifySink)
	builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to construct state")
	rt.State().Create(st)
	return nil
}

type CreateScheduleReturn struct {
	ID ScheduleID
}

// CreateSchedule locks the value attached to the message under a new irrevocable schedule
// for the caller. The transfer into custody is the message value itself, so it is atomic
// with this call; if the method aborts, no value moves and no schedule is created.
//
// Schedules created before the global vesting start epoch share that epoch as their common
// unlock clock; later ones start at the current epoch.
func (a Actor) CreateSchedule(rt Runtime, _ *adt.EmptyValue) *CreateScheduleReturn {
	rt.ValidateImmediateCallerType(builtin.CallerTypesSignable...)
	caller := rt.Message().Caller()
	amount := rt.Message().ValueReceived()

	id := a.createSchedule(rt, caller, amount, false)
	return &CreateScheduleReturn{ID: id}
}

type CreateRevocableScheduleParams struct {
	Beneficiary addr.Address
}

// CreateRevocableSchedule is the administrative creation path: it locks the attached value
// for the named beneficiary under a schedule the administrator may later revoke. This is
// the only source of revocable schedules.
func (a Actor) CreateRevocableSchedule(rt Runtime, params *CreateRevocableScheduleParams) *CreateScheduleReturn {
	rt.ValidateImmediateCallerAcceptAny()

	var st State
	rt.State().Readonly(&st)
	if rt.Message().Caller() != st.Admin {
		rt.Abortf(exitcode.ErrForbidden, "caller %v is not the administrator %v", rt.Message().Caller(), st.Admin)
	}
	if params.Beneficiary == addr.Undef {
		rt.Abortf(exitcode.ErrIllegalArgument, "beneficiary address is undefined")
	}

	amount := rt.Message().ValueReceived()
	id := a.createSchedule(rt, params.Beneficiary, amount, true)
	return &CreateScheduleReturn{ID: id}
}

type ReleaseParams struct {
	ID     ScheduleID
	Amount abi.TokenAmount
}

// Release pays out `Amount` of the schedule's vested-but-unreleased funds to its
// beneficiary. Callable by the beneficiary or the administrator.
//
// The bookkeeping (Released, TotalLocked) commits in the state transaction before the
// outbound transfer, so a re-entrant release during the transfer observes the updated
// Released value and finds nothing further releasable.
func (a Actor) Release(rt Runtime, params *ReleaseParams) *adt.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	caller := rt.Message().Caller()

	var st State
	var beneficiary addr.Address
	rt.State().Transaction(&st, func() interface{} {
		store := adt.AsStore(rt)
		sched := mustGetSchedule(rt, &st, store, params.ID)

		if sched.Revoked {
			rt.Abortf(ErrScheduleRevoked, "schedule %x has been revoked", params.ID)
		}
		if caller != sched.Beneficiary && caller != st.Admin {
			rt.Abortf(ErrNotBeneficiaryOrOwner, "caller %v is neither beneficiary %v nor administrator %v",
				caller, sched.Beneficiary, st.Admin)
		}

		releasable := sched.Releasable(rt.CurrEpoch())
		if params.Amount.LessThanEqual(big.Zero()) || params.Amount.GreaterThan(releasable) {
			rt.Abortf(ErrInsufficientReleasable, "cannot release %v of schedule %x, %v releasable at epoch %d",
				params.Amount, params.ID, releasable, rt.CurrEpoch())
		}

		sched.Released = big.Add(sched.Released, params.Amount)
		err := st.PutSchedule(store, params.ID, sched)
		builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to update schedule %x", params.ID)

		st.TotalLocked = big.Sub(st.TotalLocked, params.Amount)
		beneficiary = sched.Beneficiary
		return nil
	})

	_, code := rt.Send(beneficiary, builtin.MethodSend, nil, params.Amount)
	builtin.RequireSuccess(rt, code, "failed to send released funds to %v", beneficiary)

	notify(rt, st.NotifySink, builtin.MethodsVestingSink.OnReleased, &ReleasedNotification{
		ID:          params.ID,
		Beneficiary: beneficiary,
		Amount:      params.Amount,
	})
	return nil
}

type ScheduleIDParams struct {
	ID ScheduleID
}

// Revoke cancels the unvested remainder of a revocable schedule. Administrator only.
// Any currently releasable amount is paid to the beneficiary first, so revocation never
// claws back already-vested funds; only the unvested remainder is removed from
// TotalLocked and becomes withdrawable.
func (a Actor) Revoke(rt Runtime, params *ScheduleIDParams) *adt.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	caller := rt.Message().Caller()

	var st State
	var beneficiary addr.Address
	var payout abi.TokenAmount
	rt.State().Transaction(&st, func() interface{} {
		if caller != st.Admin {
			rt.Abortf(exitcode.ErrForbidden, "caller %v is not the administrator %v", caller, st.Admin)
		}

		store := adt.AsStore(rt)
		sched := mustGetSchedule(rt, &st, store, params.ID)

		if sched.Revoked {
			rt.Abortf(ErrScheduleRevoked, "schedule %x has already been revoked", params.ID)
		}
		if !sched.Revocable {
			rt.Abortf(ErrNotRevocable, "schedule %x is not revocable", params.ID)
		}

		payout = sched.Releasable(rt.CurrEpoch())
		if payout.GreaterThan(big.Zero()) {
			sched.Released = big.Add(sched.Released, payout)
			st.TotalLocked = big.Sub(st.TotalLocked, payout)
		}

		// The remainder is forfeited: it leaves the locked pool and stays in the
		// actor's balance as withdrawable funds.
		forfeited := sched.Unreleased()
		sched.Revoked = true
		st.TotalLocked = big.Sub(st.TotalLocked, forfeited)

		err := st.PutSchedule(store, params.ID, sched)
		builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to update schedule %x", params.ID)

		beneficiary = sched.Beneficiary
		return nil
	})

	if payout.GreaterThan(big.Zero()) {
		_, code := rt.Send(beneficiary, builtin.MethodSend, nil, payout)
		builtin.RequireSuccess(rt, code, "failed to send vested funds to %v", beneficiary)
	}

	notify(rt, st.NotifySink, builtin.MethodsVestingSink.OnRevoked, &ScheduleIDParams{ID: params.ID})
	return nil
}

type WithdrawParams struct {
	Amount abi.TokenAmount
}

// Withdraw transfers unallocated funds (balance not committed to any non-revoked
// schedule) to the administrator. TotalLocked is untouched: withdrawal only ever draws
// from the free remainder.
func (a Actor) Withdraw(rt Runtime, params *WithdrawParams) *adt.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	caller := rt.Message().Caller()

	var st State
	rt.State().Readonly(&st)
	if caller != st.Admin {
		rt.Abortf(exitcode.ErrForbidden, "caller %v is not the administrator %v", caller, st.Admin)
	}
	if params.Amount.LessThanEqual(big.Zero()) {
		rt.Abortf(exitcode.ErrIllegalArgument, "non-positive withdrawal %v", params.Amount)
	}

	available := st.WithdrawableBalance(rt.CurrentBalance())
	if params.Amount.GreaterThan(available) {
		rt.Abortf(ErrNotEnoughWithdrawableFunds, "cannot withdraw %v, %v unallocated", params.Amount, available)
	}

	_, code := rt.Send(st.Admin, builtin.MethodSend, nil, params.Amount)
	builtin.RequireSuccess(rt, code, "failed to send withdrawn funds to %v", st.Admin)

	notify(rt, st.NotifySink, builtin.MethodsVestingSink.OnWithdrawn, &WithdrawnNotification{
		To:     st.Admin,
		Amount: params.Amount,
	})
	return nil
}

type ScheduleIndexParams struct {
	Index uint64
}

// GetScheduleID returns the identifier at the given position in global creation order.
// A read-only enumeration hook for on-chain collaborators; off-chain callers can walk
// the identifier log directly.
func (a Actor) GetScheduleID(rt Runtime, params *ScheduleIndexParams) *CreateScheduleReturn {
	rt.ValidateImmediateCallerAcceptAny()

	var st State
	rt.State().Readonly(&st)

	id, found, err := st.ScheduleIDAt(adt.AsStore(rt), params.Index)
	builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load schedule id at %d", params.Index)
	if !found {
		rt.Abortf(ErrIndexOutOfBounds, "index %d out of bounds, %d schedules created", params.Index, st.ScheduleCount)
	}
	return &CreateScheduleReturn{ID: id}
}

////////////////////////////////////////////////////////////////////////////////
// Internal
////////////////////////////////////////////////////////////////////////////////

func (a Actor) createSchedule(rt Runtime, beneficiary addr.Address, amount abi.TokenAmount, revocable bool) ScheduleID {
	if amount.LessThanEqual(big.Zero()) {
		rt.Abortf(ErrAmountMustBePositive, "cannot lock non-positive amount %v", amount)
	}

	start := rt.CurrEpoch()
	if start < VestingStartEpoch {
		start = VestingStartEpoch
	}

	var st State
	var id ScheduleID
	sched := &VestingSchedule{
		Beneficiary: beneficiary,
		Start:       start,
		Cliff:       start + CliffDuration,
		Duration:    VestingDuration,
		Revocable:   revocable,
		Revoked:     false,
		AmountTotal: amount,
		Released:    abi.NewTokenAmount(0),
	}
	rt.State().Transaction(&st, func() interface{} {
		store := adt.AsStore(rt)

		index, err := st.ScheduleCountFor(store, beneficiary)
		builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to get schedule count for %v", beneficiary)
		id = DeriveScheduleID(rt.Syscalls().HashBlake2b, beneficiary, index)

		_, found, err := st.GetSchedule(store, id)
		builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to check schedule %x", id)
		if found {
			rt.Abortf(ErrDuplicateSchedule, "schedule %x already exists", id)
		}

		err = st.InsertSchedule(store, id, sched)
		builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to insert schedule %x", id)

		st.TotalLocked = big.Add(st.TotalLocked, amount)
		return nil
	})

	notify(rt, st.NotifySink, builtin.MethodsVestingSink.OnScheduleCreated, &ScheduleCreatedNotification{
		ID:          id,
		Beneficiary: beneficiary,
		Start:       sched.Start,
		Cliff:       sched.Cliff,
		Duration:    sched.Duration,
		Revocable:   revocable,
		Amount:      amount,
	})
	return id
}

func mustGetSchedule(rt Runtime, st *State, store adt.Store, id ScheduleID) *VestingSchedule {
	sched, found, err := st.GetSchedule(store, id)
	builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to load schedule %x", id)
	if !found {
		rt.Abortf(ErrScheduleNotFound, "no schedule with id %x", id)
	}
	return sched
}

// Fire-and-forget notification to the configured sink actor, if any. The exit code is
// deliberately ignored: observers cannot veto or unwind ledger operations.
func notify(rt Runtime, sink *addr.Address, method abi.MethodNum, params vmr.CBORMarshaler) {
	if sink == nil {
		return
	}
	_, _ = rt.Send(*sink, method, params, big.Zero())
}

////////////////////////////////////////////////////////////////////////////////
// Notifications
////////////////////////////////////////////////////////////////////////////////

type ScheduleCreatedNotification struct {
	ID          ScheduleID
	Beneficiary addr.Address
	Start       abi.ChainEpoch
	Cliff       abi.ChainEpoch
	Duration    abi.ChainEpoch
	Revocable   bool
	Amount      abi.TokenAmount
}

type ReleasedNotification struct {
	ID          ScheduleID
	Beneficiary addr.Address
	Amount      abi.TokenAmount
}

type WithdrawnNotification struct {
	To     addr.Address
	Amount abi.TokenAmount
}
