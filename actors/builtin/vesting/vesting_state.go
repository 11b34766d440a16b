package vesting

import (
	"encoding/binary"
	"io"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	cid "github.com/ipfs/go-cid"
	"github.com/minio/blake2b-simd"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"

	"github.com/vestral/vesting-actors/actors/util/adt"
)

// State is the vesting ledger: the set of schedules, their per-holder indexing, and the
// pool-accounting counter separating funds committed to schedules from the freely
// withdrawable remainder of the actor's balance.
type State struct {
	// The administrator capability. May release on behalf of beneficiaries, revoke
	// revocable schedules, and withdraw unallocated funds.
	Admin addr.Address

	// Actor to notify of ledger operations, or nil to disable notifications.
	NotifySink *addr.Address

	// Schedules keyed by ScheduleID (HAMT[ScheduleID]VestingSchedule).
	Schedules cid.Cid

	// Append-only log of every schedule identifier ever created (AMT[]ScheduleID).
	ScheduleIDs cid.Cid

	// Total number of schedules ever created. Equals the length of ScheduleIDs.
	ScheduleCount uint64

	// Number of schedules created per beneficiary (HAMT[addr]int64).
	// Drives identifier derivation for the next schedule of each holder.
	HolderCounts cid.Cid

	// Sum of (AmountTotal - Released) over all non-revoked schedules.
	TotalLocked abi.TokenAmount
}

// VestingSchedule is a single lock-and-unlock record for one beneficiary.
// Beneficiary, Start, Cliff, Duration, Revocable and AmountTotal are fixed at creation;
// Released only ever increases, and Revoked flips to true at most once.
type VestingSchedule struct {
	Beneficiary addr.Address
	Start       abi.ChainEpoch
	Cliff       abi.ChainEpoch
	Duration    abi.ChainEpoch
	Revocable   bool
	Revoked     bool
	AmountTotal abi.TokenAmount
	Released    abi.TokenAmount
}

// ScheduleID is the blake2b-256 digest of a (beneficiary, per-holder index) pair.
// The derivation is injective over the pair, so identifiers are never reused and one
// holder's identifiers cannot collide with another's.
type ScheduleID []byte

const ScheduleIDLength = 32

// Key implements adt.Keyer for use as a HAMT key.
func (id ScheduleID) Key() string {
	return string(id)
}

func (id ScheduleID) Equals(other ScheduleID) bool {
	if len(id) != len(other) {
		return false
	}
	for i := range id {
		if id[i] != other[i] {
			return false
		}
	}
	return true
}

// CBOR encoding as a plain byte string, for storage as an AMT value.
// Hand-written because cbor-gen only generates encoders for struct types.
func (id ScheduleID) MarshalCBOR(w io.Writer) error {
	if err := cbg.WriteMajorTypeHeader(w, cbg.MajByteString, uint64(len(id))); err != nil {
		return err
	}
	_, err := w.Write(id)
	return err
}

func (id *ScheduleID) UnmarshalCBOR(r io.Reader) error {
	br := cbg.GetPeeker(r)
	maj, extra, err := cbg.CborReadHeader(br)
	if err != nil {
		return err
	}
	if maj != cbg.MajByteString {
		return xerrors.Errorf("schedule id must be a byte string, got major type %d", maj)
	}
	if extra > cbg.ByteArrayMaxLen {
		return xerrors.Errorf("schedule id too long (%d)", extra)
	}
	buf := make([]byte, extra)
	if _, err := io.ReadFull(br, buf); err != nil {
		return err
	}
	*id = buf
	return nil
}

func ConstructState(store adt.Store, admin addr.Address, notifySink *addr.Address) (*State, error) {
	emptySchedules, err := adt.MakeEmptyMap(store)
	if err != nil {
		return nil, xerrors.Errorf("failed to create empty schedules map: %w", err)
	}
	emptyIDs, err := adt.MakeEmptyArray(store)
	if err != nil {
		return nil, xerrors.Errorf("failed to create empty schedule id log: %w", err)
	}
	emptyCounts, err := adt.MakeEmptyMap(store)
	if err != nil {
		return nil, xerrors.Errorf("failed to create empty holder counts map: %w", err)
	}

	return &State{
		Admin:         admin,
		NotifySink:    notifySink,
		Schedules:     emptySchedules.Root(),
		ScheduleIDs:   emptyIDs.Root(),
		ScheduleCount: 0,
		HolderCounts:  emptyCounts.Root(),
		TotalLocked:   abi.NewTokenAmount(0),
	}, nil
}

// DeriveScheduleID computes the identifier of a holder's schedule at the given per-holder
// index, using the supplied blake2b-256 primitive. The preimage is the holder's address
// bytes followed by the uvarint index; address bytes are fixed-length per protocol, so the
// pair is recoverable from the preimage.
func DeriveScheduleID(hash func([]byte) [32]byte, holder addr.Address, index uint64) ScheduleID {
	buf := holder.Bytes()
	idx := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(idx, index)
	digest := hash(append(buf, idx[:n]...))
	return digest[:]
}

// ScheduleIDFor is the off-chain form of DeriveScheduleID, for callers without a runtime.
func ScheduleIDFor(holder addr.Address, index uint64) ScheduleID {
	return DeriveScheduleID(blake2b.Sum256, holder, index)
}

// Returns the number of schedules created for the holder, zero if none.
func (st *State) ScheduleCountFor(store adt.Store, holder addr.Address) (uint64, error) {
	counts := adt.AsMap(store, st.HolderCounts)
	var count cbg.CborInt
	found, err := counts.Get(adt.AddrKey(holder), &count)
	if err != nil {
		return 0, xerrors.Errorf("failed to get schedule count for %v: %w", holder, err)
	}
	if !found {
		return 0, nil
	}
	return uint64(count), nil
}

// Returns the schedule stored under `id`, if any.
func (st *State) GetSchedule(store adt.Store, id ScheduleID) (*VestingSchedule, bool, error) {
	schedules := adt.AsMap(store, st.Schedules)
	var out VestingSchedule
	found, err := schedules.Get(id, &out)
	if err != nil {
		return nil, false, xerrors.Errorf("failed to get schedule %x: %w", id, err)
	}
	if !found {
		return nil, false, nil
	}
	return &out, true, nil
}

// Stores `schedule` under an existing identifier.
func (st *State) PutSchedule(store adt.Store, id ScheduleID, schedule *VestingSchedule) error {
	schedules := adt.AsMap(store, st.Schedules)
	if err := schedules.Put(id, schedule); err != nil {
		return xerrors.Errorf("failed to put schedule %x: %w", id, err)
	}
	st.Schedules = schedules.Root()
	return nil
}

// InsertSchedule records a newly created schedule: stores it under `id`, appends the
// identifier to the audit log, and increments the holder's schedule count. The identifier
// must not already exist; correct sequencing guarantees this, the check is defensive.
func (st *State) InsertSchedule(store adt.Store, id ScheduleID, schedule *VestingSchedule) error {
	schedules := adt.AsMap(store, st.Schedules)
	var existing VestingSchedule
	found, err := schedules.Get(id, &existing)
	if err != nil {
		return xerrors.Errorf("failed to check schedule %x for duplicate: %w", id, err)
	}
	if found {
		return xerrors.Errorf("schedule %x already exists", id)
	}
	if err := schedules.Put(id, schedule); err != nil {
		return xerrors.Errorf("failed to put schedule %x: %w", id, err)
	}

	ids := adt.AsArray(store, st.ScheduleIDs)
	if err := ids.Append(id); err != nil {
		return xerrors.Errorf("failed to append schedule id %x: %w", id, err)
	}

	count, err := st.ScheduleCountFor(store, schedule.Beneficiary)
	if err != nil {
		return err
	}
	counts := adt.AsMap(store, st.HolderCounts)
	newCount := cbg.CborInt(count + 1)
	if err := counts.Put(adt.AddrKey(schedule.Beneficiary), &newCount); err != nil {
		return xerrors.Errorf("failed to update schedule count for %v: %w", schedule.Beneficiary, err)
	}

	st.Schedules = schedules.Root()
	st.ScheduleIDs = ids.Root()
	st.HolderCounts = counts.Root()
	st.ScheduleCount++
	return nil
}

// ScheduleIDAt returns the identifier at `index` in creation order, across all holders.
func (st *State) ScheduleIDAt(store adt.Store, index uint64) (ScheduleID, bool, error) {
	ids := adt.AsArray(store, st.ScheduleIDs)
	var out ScheduleID
	found, err := ids.Get(index, &out)
	if err != nil {
		return nil, false, xerrors.Errorf("failed to get schedule id at %d: %w", index, err)
	}
	return out, found, nil
}

// WithdrawableBalance returns the portion of the actor's balance not committed to any
// non-revoked schedule.
func (st *State) WithdrawableBalance(currBalance abi.TokenAmount) abi.TokenAmount {
	available := big.Sub(currBalance, st.TotalLocked)
	if available.LessThan(big.Zero()) {
		// The balance invariant (balance >= TotalLocked) is broken; report nothing
		// withdrawable rather than a negative amount.
		return big.Zero()
	}
	return available
}

// Releasable returns the amount vested but not yet paid out at `now`: zero before the
// cliff or after revocation, the full unreleased remainder once the unlock window has
// passed, and otherwise the linear proportion floor(AmountTotal * elapsed / Duration)
// less what was already released. Integer arithmetic throughout; division truncates
// toward zero, so Released can never overtake the linearly vested amount.
func (s *VestingSchedule) Releasable(now abi.ChainEpoch) abi.TokenAmount {
	if s.Revoked || now < s.Cliff {
		return big.Zero()
	}
	if now >= s.Start+s.Duration {
		return s.Unreleased()
	}

	elapsed := big.NewInt(int64(now - s.Start))
	vested := big.Div(big.Mul(s.AmountTotal, elapsed), big.NewInt(int64(s.Duration)))
	releasable := big.Sub(vested, s.Released)
	if releasable.LessThan(big.Zero()) {
		// Released only ever increases up to a previously computed releasable amount,
		// so this branch is unreachable under correct sequencing.
		return big.Zero()
	}
	return releasable
}

// Unreleased returns the total amount not yet paid out, vested or not.
func (s *VestingSchedule) Unreleased() abi.TokenAmount {
	return big.Sub(s.AmountTotal, s.Released)
}
