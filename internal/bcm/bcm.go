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

// Package bcm holds the register addresses of the legacy ARM interrupt
// controller found on the BCM2837 (Raspberry Pi 3) and the BCM2711
// (Raspberry Pi 4 running without the GIC), together with the core-local
// peripheral block shared by both.
package bcm

// Physical base addresses.
const (
	Pi3PeripheralBase     = 0x0_3F00_0000
	Pi3CoreBase           = 0x0_4000_0000
	Pi4PeripheralBase     = 0x0_FE00_0000
	Pi4CoreBase           = 0x0_FF80_0000
	Pi4HighPeripheralBase = 0x4_7E00_0000
	Pi4HighCoreBase       = 0x4_C000_0000
)

// Offsets from the peripheral base.
const (
	IRQOffset = 0x0000_B000
	AuxOffset = 0x0021_5000 // AUX_IRQ
)

// Generation A (BCM2837) IRQ block, offsets from the IRQ block base.
const (
	Pi3PendingBasic = 0x200
	Pi3Pending1     = 0x204
	Pi3Pending2     = 0x208
	Pi3FIQControl   = 0x20C
	Pi3Enable1      = 0x210
	Pi3Enable2      = 0x214
	Pi3EnableBasic  = 0x218
	Pi3Disable1     = 0x21C
	Pi3Disable2     = 0x220
	Pi3DisableBasic = 0x224
)

// Generation B (BCM2711 legacy mode) IRQ block, core 0 view.
const (
	Pi4Pending0 = 0x200
	Pi4Pending1 = 0x204
	Pi4Pending2 = 0x208
	Pi4Enable0  = 0x210
	Pi4Enable1  = 0x214
	Pi4Enable2  = 0x218
	Pi4Disable0 = 0x220
	Pi4Disable1 = 0x224
	Pi4Disable2 = 0x228
)

// Core-local block, offsets from the core base. The per core registers
// are at +4 * core.
const (
	GPUIntRouting  = 0x00C
	LocalTimerCtrl = 0x034
	CoreTimerIRQ   = 0x040
	CoreMailboxIRQ = 0x050
	CoreIRQPending = 0x060

	NumCores = 4
)

// Fields of the core-local registers.
const (
	TimerCntPs  = 1 << 0
	TimerCntPns = 1 << 1
	TimerCntHp  = 1 << 2
	TimerCntV   = 1 << 3
	TimerAll    = TimerCntPs | TimerCntPns | TimerCntHp | TimerCntV

	MailboxIRQ3 = 1 << 3 // COREn_MB_INT_CNTRL

	LocalTimerIRQEnable = 1 << 29 // LOCAL_TIMER_CTRL

	PendingTimers     = 0xF     // COREn_IRQ_PENDING bits 0..3
	PendingMailbox3   = 1 << 7  // COREn_IRQ_PENDING
	PendingGPU        = 1 << 8  // COREn_IRQ_PENDING
	PendingLocalTimer = 1 << 11 // COREn_IRQ_PENDING
)

// AUX_IRQ status bits.
const (
	AuxUart1 = 1 << 0
	AuxSpi1  = 1 << 1
	AuxSpi2  = 1 << 2
)

// CoreTimer returns the offset of COREn_TIMER_IRQ for the core.
func CoreTimer(core int) uint64 { return CoreTimerIRQ + 4*uint64(core) }

// CoreMailbox returns the offset of COREn_MB_INT_CNTRL for the core.
func CoreMailbox(core int) uint64 { return CoreMailboxIRQ + 4*uint64(core) }

// CorePending returns the offset of COREn_IRQ_PENDING for the core.
func CorePending(core int) uint64 { return CoreIRQPending + 4*uint64(core) }
