// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sim models the legacy interrupt controller of the BCM2837 and
// BCM2711 at register level, together with a CPU whose interrupt masks
// are plain flags. It is used to exercise the interrupt manager without
// hardware.
package sim

import (
	"sync"

	"github.com/aamcrae/irq/internal/bcm"
)

// Generation selects the register layout being modelled.
type Generation int

const (
	Pi3 Generation = iota
	Pi4
	Pi4High
)

// String returns the name used by the build tags.
func (g Generation) String() string {
	switch g {
	case Pi3:
		return "pi3"
	case Pi4:
		return "pi4"
	case Pi4High:
		return "pi4high"
	}
	return "unknown"
}

// ParseGeneration returns the generation with the given name.
func ParseGeneration(name string) (Generation, bool) {
	for _, g := range []Generation{Pi3, Pi4, Pi4High} {
		if g.String() == name {
			return g, true
		}
	}
	return 0, false
}

// Write records one register write.
type Write struct {
	Addr  uint64
	Value uint32
}

// Controller is a register-level model of the interrupt controller, the
// core-local block and the AUX_IRQ status register.
// Enable and disable registers are write-1 to set/clear and read back the
// enabled bits. On the BCM2837 the pending registers only show enabled
// sources; on the BCM2711 they show every asserted source.
type Controller struct {
	mu       sync.Mutex
	gen      Generation
	coreBase uint64
	auxAddr  uint64
	enable   [3]uint64
	disable  [3]uint64
	pending  [3]uint64

	enabled     [3]uint32
	asserted    [3]uint32
	local       map[uint64]uint32 // Core-local registers by offset
	corePending [bcm.NumCores]uint32
	aux         uint32
	writes      []Write
	barriers    int
}

// New creates a controller of the generation with every source disabled.
func New(g Generation) *Controller {
	c := &Controller{gen: g, local: make(map[uint64]uint32)}
	var periph uint64
	var enable, disable, pending [3]uint64
	switch g {
	case Pi3:
		periph, c.coreBase = bcm.Pi3PeripheralBase, bcm.Pi3CoreBase
		enable = [3]uint64{bcm.Pi3Enable1, bcm.Pi3Enable2, bcm.Pi3EnableBasic}
		disable = [3]uint64{bcm.Pi3Disable1, bcm.Pi3Disable2, bcm.Pi3DisableBasic}
		pending = [3]uint64{bcm.Pi3Pending1, bcm.Pi3Pending2, bcm.Pi3PendingBasic}
	default:
		periph, c.coreBase = bcm.Pi4PeripheralBase, bcm.Pi4CoreBase
		if g == Pi4High {
			periph, c.coreBase = bcm.Pi4HighPeripheralBase, bcm.Pi4HighCoreBase
		}
		enable = [3]uint64{bcm.Pi4Enable0, bcm.Pi4Enable1, bcm.Pi4Enable2}
		disable = [3]uint64{bcm.Pi4Disable0, bcm.Pi4Disable1, bcm.Pi4Disable2}
		pending = [3]uint64{bcm.Pi4Pending0, bcm.Pi4Pending1, bcm.Pi4Pending2}
	}
	irqBase := periph + bcm.IRQOffset
	for b := 0; b < 3; b++ {
		c.enable[b] = irqBase + enable[b]
		c.disable[b] = irqBase + disable[b]
		c.pending[b] = irqBase + pending[b]
	}
	c.auxAddr = periph + bcm.AuxOffset
	return c
}

// Generation returns the generation being modelled.
func (c *Controller) Generation() Generation {
	return c.gen
}

// Read returns the value of the register at the physical address.
// Unknown registers read as 0.
func (c *Controller) Read(addr uint64) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	for b := 0; b < 3; b++ {
		switch addr {
		case c.enable[b], c.disable[b]:
			return c.enabled[b]
		case c.pending[b]:
			if c.gen == Pi3 {
				return c.asserted[b] & c.enabled[b]
			}
			return c.asserted[b]
		}
	}
	if addr == c.auxAddr {
		return c.aux
	}
	if offs, ok := c.coreOffset(addr); ok {
		if core, ok := pendingCore(offs); ok {
			return c.corePending[core]
		}
		return c.local[offs]
	}
	return 0
}

// Write writes the register at the physical address.
func (c *Controller) Write(addr uint64, v uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, Write{Addr: addr, Value: v})
	for b := 0; b < 3; b++ {
		switch addr {
		case c.enable[b]:
			c.enabled[b] |= v
			return
		case c.disable[b]:
			c.enabled[b] &^= v
			return
		}
	}
	if offs, ok := c.coreOffset(addr); ok {
		if _, ok := pendingCore(offs); !ok {
			c.local[offs] = v
		}
	}
}

// Barrier counts the barriers issued.
func (c *Controller) Barrier() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.barriers++
}

// Assert raises the source at bit of bank (0 - 2).
func (c *Controller) Assert(bank int, bit uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asserted[bank] |= 1 << bit
}

// Release drops the source at bit of bank (0 - 2).
func (c *Controller) Release(bank int, bit uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asserted[bank] &^= 1 << bit
}

// AssertLocal sets bits in the core's local pending register.
func (c *Controller) AssertLocal(core int, bits uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.corePending[core] |= bits
}

// ReleaseLocal clears bits in the core's local pending register.
func (c *Controller) ReleaseLocal(core int, bits uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.corePending[core] &^= bits
}

// SetAux sets the AUX_IRQ status register.
func (c *Controller) SetAux(bits uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aux = bits
}

// Enabled returns the enabled sources of bank (0 - 2).
func (c *Controller) Enabled(bank int) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled[bank]
}

// Local returns the core-local register at the offset.
func (c *Controller) Local(offs uint64) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local[offs]
}

// Writes returns the register writes made so far.
func (c *Controller) Writes() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Write(nil), c.writes...)
}

// ClearWrites forgets the recorded writes.
func (c *Controller) ClearWrites() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = nil
}

// Barriers returns the number of barriers issued.
func (c *Controller) Barriers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.barriers
}

// EnableAddr returns the address of the enable register of bank (0 - 2).
func (c *Controller) EnableAddr(bank int) uint64 { return c.enable[bank] }

// DisableAddr returns the address of the disable register of bank (0 - 2).
func (c *Controller) DisableAddr(bank int) uint64 { return c.disable[bank] }

// PendingAddr returns the address of the pending register of bank (0 - 2).
func (c *Controller) PendingAddr(bank int) uint64 { return c.pending[bank] }

// CoreAddr returns the address of a core-local register.
func (c *Controller) CoreAddr(offs uint64) uint64 { return c.coreBase + offs }

// AuxAddr returns the address of the AUX_IRQ status register.
func (c *Controller) AuxAddr() uint64 { return c.auxAddr }

func (c *Controller) coreOffset(addr uint64) (uint64, bool) {
	if addr >= c.coreBase && addr < c.coreBase+0x100 {
		return addr - c.coreBase, true
	}
	return 0, false
}

func pendingCore(offs uint64) (int, bool) {
	if offs >= bcm.CoreIRQPending && offs < bcm.CoreIRQPending+4*bcm.NumCores {
		return int(offs-bcm.CoreIRQPending) / 4, true
	}
	return 0, false
}
