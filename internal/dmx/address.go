// Package dmx holds the wire-independent DMX data model: universes, fixture addresses,
// endpoint configuration, and the update/command shapes that flow between the universe
// runtime, the endpoint drivers, and the RPC façade.
package dmx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PixelboysTM/marvin-light-control/internal/apperrors"
	"github.com/PixelboysTM/marvin-light-control/internal/config"
)

// UniverseID identifies one of a project's universes, 1-indexed; 0 is reserved.
type UniverseID uint16

// Address is a 1-indexed DMX channel within a universe, 1..=512.
type Address uint16

// FixtureAddress locates a channel inside a specific universe.
type FixtureAddress struct {
	Universe UniverseID
	Address  Address
}

// NewFixtureAddress validates address is within range before constructing.
func NewFixtureAddress(universe UniverseID, address Address) (FixtureAddress, error) {
	if address < config.MinAddress || address > config.MaxAddress {
		return FixtureAddress{}, fmt.Errorf("%w: %d", apperrors.ErrAddressOutOfRange, address)
	}

	return FixtureAddress{Universe: universe, Address: address}, nil
}

// String renders "<universe>.<aaa>" with the address filled to three digits with trailing
// zeros, so "1.500" is universe 1, address 5.
func (f FixtureAddress) String() string {
	a := strconv.Itoa(int(f.Address))
	for len(a) < 3 {
		a += "0"
	}

	return fmt.Sprintf("%d.%s", f.Universe, a)
}

// ParseFixtureAddress parses the "<universe>.<address>" display form.
func ParseFixtureAddress(s string) (FixtureAddress, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return FixtureAddress{}, fmt.Errorf("%w: malformed fixture address %q", apperrors.ErrAddressOutOfRange, s)
	}

	u, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return FixtureAddress{}, fmt.Errorf("%w: %w", apperrors.ErrAddressOutOfRange, err)
	}

	a, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return FixtureAddress{}, fmt.Errorf("%w: %w", apperrors.ErrAddressOutOfRange, err)
	}

	return NewFixtureAddress(UniverseID(u), Address(a))
}
