package driver

import (
	"errors"
	"fmt"
	"sync"
)

// Number of CAN controller units available on the hardware
const MaxUnits = 2

var (
	ErrInvalidUnit = errors.New("invalid controller unit")
	ErrUnitInUse   = errors.New("controller unit already has a driver")
)

// Units maps hardware controller unit numbers to their driver.
// At most one driver per unit.
type Units struct {
	mu      sync.RWMutex
	drivers [MaxUnits]*Driver
}

func NewUnits() *Units {
	return &Units{}
}

// Attach a driver to a controller unit
func (u *Units) Attach(unit uint8, driver *Driver) error {
	if int(unit) >= MaxUnits {
		return fmt.Errorf("%w : %v", ErrInvalidUnit, unit)
	}
	if driver == nil {
		return fmt.Errorf("nil driver for unit %v", unit)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.drivers[unit] != nil && u.drivers[unit] != driver {
		return fmt.Errorf("%w : %v", ErrUnitInUse, unit)
	}
	u.drivers[unit] = driver
	return nil
}

// Detach driver from unit, no-op if unit is free
func (u *Units) Detach(unit uint8) {
	if int(unit) >= MaxUnits {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.drivers[unit] = nil
}

// Driver attached to unit, nil if none
func (u *Units) Driver(unit uint8) *Driver {
	if int(unit) >= MaxUnits {
		return nil
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.drivers[unit]
}
