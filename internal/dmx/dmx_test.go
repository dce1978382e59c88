package dmx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Slug(t *testing.T) {
	assert.Equal(t, "my_project_7", Slug("My Project 7 "))
	assert.Equal(t, "a__b", Slug(" __a__b__ "))
	assert.Equal(t, "demo", Slug("Demo"))
	assert.Equal(t, "", Slug("___"))
	assert.Equal(t, "abc123", Slug("abc!@#123"))
}

func Test_FixtureAddress_Display(t *testing.T) {
	addr, err := NewFixtureAddress(3, 120)
	require.NoError(t, err)
	assert.Equal(t, "3.120", addr.String())

	// Short addresses fill to three digits with trailing zeros.
	short, err := NewFixtureAddress(1, 5)
	require.NoError(t, err)
	assert.Equal(t, "1.500", short.String())

	full, err := NewFixtureAddress(12, 512)
	require.NoError(t, err)
	assert.Equal(t, "12.512", full.String())
}

func Test_FixtureAddress_ParseRoundTrip(t *testing.T) {
	addr, err := ParseFixtureAddress("0.126")
	require.NoError(t, err)
	assert.Equal(t, UniverseID(0), addr.Universe)
	assert.Equal(t, Address(126), addr.Address)
	assert.Equal(t, "0.126", addr.String())

	_, err = ParseFixtureAddress("not-an-address")
	assert.Error(t, err)
}

func Test_FixtureAddress_OutOfRange(t *testing.T) {
	_, err := NewFixtureAddress(1, 0)
	assert.Error(t, err)

	_, err = NewFixtureAddress(1, 513)
	assert.Error(t, err)
}

func Test_Universe_SlotAccess(t *testing.T) {
	var u Universe
	u.SetSlot(5, 200)

	v, ok := u.Slot(5)
	require.True(t, ok)
	assert.Equal(t, byte(200), v)

	_, ok = u.Slot(0)
	assert.False(t, ok)

	_, ok = u.Slot(513)
	assert.False(t, ok)

	cp := u.Copy()
	cp.SetSlot(5, 1)
	v, _ = u.Slot(5)
	assert.Equal(t, byte(200), v, "Copy must not alias the original backing array")
}

func Test_EndpointSpeed_Duration(t *testing.T) {
	assert.Equal(t, 200*1_000_000, int(Slow.Duration()))
	assert.Equal(t, 100*1_000_000, int(Medium.Duration()))
	assert.Equal(t, 30*1_000_000, int(Fast.Duration()))
	assert.Equal(t, 5*1_000_000, int(Ultra.Duration()))
	assert.Equal(t, 42*1_000_000, int(Custom(42).Duration()))
}

func Test_UniverseUpdate_Constructors(t *testing.T) {
	single := SingleUpdate(FixtureAddress{Universe: 1, Address: 5}, 42)
	assert.Equal(t, UpdateSingle, single.Kind)
	assert.Equal(t, FixtureAddress{Universe: 1, Address: 5}, single.Single.Address)

	many := ManyUpdate([]UpdateChunk{
		{Address: FixtureAddress{Universe: 1, Address: 1}, Value: 1},
		{Address: FixtureAddress{Universe: 2, Address: 512}, Value: 255},
	})
	assert.Equal(t, UpdateMany, many.Kind)
	assert.Len(t, many.Many, 2)

	var snapshot Universe
	entire := EntireUpdate(1, snapshot)
	assert.Equal(t, UpdateEntire, entire.Kind)
	assert.Equal(t, UniverseID(1), entire.Universe)
}

func Test_ServiceIdentifier_String(t *testing.T) {
	assert.Equal(t, "genrl", ServiceGeneral.String())
	assert.Equal(t, "prjsl", ServiceProjectSelection.String())
	assert.Equal(t, "prjts", ServiceProject.String())
}
