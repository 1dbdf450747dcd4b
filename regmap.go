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

package irq

import (
	"github.com/aamcrae/irq/internal/bcm"
)

// registerMap describes the register layout of one controller generation.
// The generation used by Open is fixed at build time (see Generation).
type registerMap interface {
	name() string
	// Addresses of the enable, disable and pending registers of banks 0 - 2.
	enable(bank int) uint64
	disable(bank int) uint64
	pending(bank int) uint64
	// core returns the address of a register in the core-local block.
	core(offs uint64) uint64
	auxStatus() uint64
	// routesGPU is true if the GPU interrupt routing register is in use.
	routesGPU() bool
	// autoMask is true if interrupts are masked on exception entry.
	autoMask() bool
	regions() []Region
}

type bases struct {
	periph uint64
	local  uint64
}

func (b bases) irqReg(offs uint64) uint64 {
	return b.periph + bcm.IRQOffset + offs
}

func (b bases) core(offs uint64) uint64 {
	return b.local + offs
}

func (b bases) auxStatus() uint64 {
	return b.periph + bcm.AuxOffset
}

func (b bases) regions() []Region {
	return []Region{
		{Base: b.periph + bcm.IRQOffset, Size: 0x400},
		{Base: b.local, Size: 0x100},
		{Base: b.periph + bcm.AuxOffset, Size: 4},
	}
}

// pi3Map is the BCM2837 layout. The basic pending register sits in
// front of the two GPU pending registers and is returned as bank 2.
type pi3Map struct {
	bases
}

var (
	pi3Enable  = [3]uint64{bcm.Pi3Enable1, bcm.Pi3Enable2, bcm.Pi3EnableBasic}
	pi3Disable = [3]uint64{bcm.Pi3Disable1, bcm.Pi3Disable2, bcm.Pi3DisableBasic}
	pi3Pending = [3]uint64{bcm.Pi3Pending1, bcm.Pi3Pending2, bcm.Pi3PendingBasic}
)

func newPi3Map() pi3Map {
	return pi3Map{bases{periph: bcm.Pi3PeripheralBase, local: bcm.Pi3CoreBase}}
}

func (m pi3Map) name() string            { return "pi3" }
func (m pi3Map) enable(bank int) uint64  { return m.irqReg(pi3Enable[bank]) }
func (m pi3Map) disable(bank int) uint64 { return m.irqReg(pi3Disable[bank]) }
func (m pi3Map) pending(bank int) uint64 { return m.irqReg(pi3Pending[bank]) }
func (m pi3Map) routesGPU() bool         { return true }
func (m pi3Map) autoMask() bool          { return false }

// pi4Map is the BCM2711 legacy (no GIC) layout as seen by core 0.
type pi4Map struct {
	bases
}

var (
	pi4Enable  = [3]uint64{bcm.Pi4Enable0, bcm.Pi4Enable1, bcm.Pi4Enable2}
	pi4Disable = [3]uint64{bcm.Pi4Disable0, bcm.Pi4Disable1, bcm.Pi4Disable2}
	pi4Pending = [3]uint64{bcm.Pi4Pending0, bcm.Pi4Pending1, bcm.Pi4Pending2}
)

// newPi4Map returns the layout for the low (default) or high peripheral mode.
func newPi4Map(high bool) pi4Map {
	if high {
		return pi4Map{bases{periph: bcm.Pi4HighPeripheralBase, local: bcm.Pi4HighCoreBase}}
	}
	return pi4Map{bases{periph: bcm.Pi4PeripheralBase, local: bcm.Pi4CoreBase}}
}

func (m pi4Map) name() string {
	if m.periph == bcm.Pi4HighPeripheralBase {
		return "pi4high"
	}
	return "pi4"
}

func (m pi4Map) enable(bank int) uint64  { return m.irqReg(pi4Enable[bank]) }
func (m pi4Map) disable(bank int) uint64 { return m.irqReg(pi4Disable[bank]) }
func (m pi4Map) pending(bank int) uint64 { return m.irqReg(pi4Pending[bank]) }

// The routing register only covers the L2 AXI error on the BCM2711.
func (m pi4Map) routesGPU() bool { return false }
func (m pi4Map) autoMask() bool  { return true }
