package dmx

import "github.com/PixelboysTM/marvin-light-control/internal/config"

// Universe is one 512-slot DMX array, addressed 1-based; Slots[0] holds address 1.
type Universe [config.UniverseSize]byte

// Slot returns the value at address (1-based), and whether address was in range.
func (u *Universe) Slot(address Address) (byte, bool) {
	if address < config.MinAddress || address > config.MaxAddress {
		return 0, false
	}

	return u[address-1], true
}

// SetSlot writes value at address (1-based); it is a no-op if address is out of range.
func (u *Universe) SetSlot(address Address, value byte) {
	if address < config.MinAddress || address > config.MaxAddress {
		return
	}

	u[address-1] = value
}

// Copy returns a value copy of the universe, safe to hand to a subscriber without
// exposing the runtime's own backing array.
func (u *Universe) Copy() Universe {
	var cp Universe
	copy(cp[:], u[:])

	return cp
}
