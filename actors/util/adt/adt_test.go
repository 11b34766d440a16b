package adt_test

import (
	"context"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cbg "github.com/whyrusleeping/cbor-gen"

	adt "github.com/vestral/vesting-actors/actors/util/adt"
	"github.com/vestral/vesting-actors/support/mock"
	tutil "github.com/vestral/vesting-actors/support/testing"
)

func TestAddrKey(t *testing.T) {
	id_address_1 := tutil.NewIDAddr(t, 101)
	id_address_2 := tutil.NewIDAddr(t, 102)

	t.Run("address to key string conversion", func(t *testing.T) {
		assert.Equal(t, "\x00\x65", adt.AddrKey(id_address_1).Key())
		assert.Equal(t, "\x00\x66", adt.AddrKey(id_address_2).Key())
	})
}

type strKey string

func (s strKey) Key() string {
	return string(s)
}

func TestMap(t *testing.T) {
	rt := mock.NewBuilder(context.Background(), address.Undef).Build(t)
	store := adt.AsStore(rt)

	m, err := adt.MakeEmptyMap(store)
	require.NoError(t, err)

	k1 := strKey("alpha")
	k2 := strKey("beta")
	v1 := cbg.CborInt(1)
	v2 := cbg.CborInt(2)

	require.NoError(t, m.Put(k1, &v1))
	require.NoError(t, m.Put(k2, &v2))

	var out cbg.CborInt
	found, err := m.Get(k1, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cbg.CborInt(1), out)

	found, err = m.Get(strKey("gamma"), &out)
	require.NoError(t, err)
	assert.False(t, found)

	keys, err := m.CollectKeys()
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	sum := cbg.CborInt(0)
	var val cbg.CborInt
	require.NoError(t, m.ForEach(&val, func(key string) error {
		sum += val
		return nil
	}))
	assert.Equal(t, cbg.CborInt(3), sum)

	require.NoError(t, m.Delete(k1))
	found, err = m.Get(k1, &out)
	require.NoError(t, err)
	assert.False(t, found)

	// A reloaded map from the flushed root sees the same contents.
	reloaded := adt.AsMap(store, m.Root())
	found, err = reloaded.Get(k2, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cbg.CborInt(2), out)
}

func TestArray(t *testing.T) {
	rt := mock.NewBuilder(context.Background(), address.Undef).Build(t)
	store := adt.AsStore(rt)

	arr, err := adt.MakeEmptyArray(store)
	require.NoError(t, err)

	length, err := arr.Length()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), length)

	for i := 0; i < 3; i++ {
		v := cbg.CborInt(i * 10)
		require.NoError(t, arr.Append(&v))
	}

	length, err = arr.Length()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), length)

	var out cbg.CborInt
	found, err := arr.Get(1, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cbg.CborInt(10), out)

	found, err = arr.Get(3, &out)
	require.NoError(t, err)
	assert.False(t, found)

	sum := cbg.CborInt(0)
	var val cbg.CborInt
	require.NoError(t, arr.ForEach(&val, func(i int64) error {
		sum += val
		return nil
	}))
	assert.Equal(t, cbg.CborInt(30), sum)

	// A reloaded array from the flushed root sees the same contents.
	reloaded := adt.AsArray(store, arr.Root())
	found, err = reloaded.Get(2, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cbg.CborInt(20), out)
}
