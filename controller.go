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

// Interrupts are only received on this core.
const dispatchCore = 0

// localField is the enable field of a core-local source.
type localField struct {
	offs uint64 // Offset in the core-local block
	bits uint32
}

// localFields holds the enable fields of the bank 3 sources. Sources
// missing from the map (CoreGPU) have no enable field.
var localFields = map[Source]localField{
	CntPsIrq:      {bcm.CoreTimer(dispatchCore), bcm.TimerCntPs},
	CntPnsIrq:     {bcm.CoreTimer(dispatchCore), bcm.TimerCntPns},
	CntHpIrq:      {bcm.CoreTimer(dispatchCore), bcm.TimerCntHp},
	CntVIrq:       {bcm.CoreTimer(dispatchCore), bcm.TimerCntV},
	Core0Mailbox3: {bcm.CoreMailbox(0), bcm.MailboxIRQ3},
	Core1Mailbox3: {bcm.CoreMailbox(1), bcm.MailboxIRQ3},
	Core2Mailbox3: {bcm.CoreMailbox(2), bcm.MailboxIRQ3},
	Core3Mailbox3: {bcm.CoreMailbox(3), bcm.MailboxIRQ3},
	LocalTimer:    {bcm.LocalTimerCtrl, bcm.LocalTimerIRQEnable},
}

// Bank 3 sources that cannot be masked and are always reported when pending.
const unmaskable = 1 << (CoreGPU & 0x1F)

// Controller drives the enable, disable and pending registers of one
// interrupt controller generation.
type Controller struct {
	regs Registers
	m    registerMap
}

func newController(regs Registers, m registerMap) *Controller {
	return &Controller{regs: regs, m: m}
}

// Initialize disables all bank interrupts, routes the GPU interrupts to
// core 0 where supported, and enables the mailbox 3 interrupt of every core
// so it can be used for inter-core signalling. It may be called more than once.
func (c *Controller) Initialize() {
	for b := 0; b < 3; b++ {
		c.regs.Write(c.m.disable(b), 0xFFFFFFFF)
	}
	c.regs.Barrier()
	if c.m.routesGPU() {
		c.regs.Write(c.m.core(bcm.GPUIntRouting), 0)
	}
	for core := 0; core < bcm.NumCores; core++ {
		c.regs.Write(c.m.core(bcm.CoreMailbox(core)), bcm.MailboxIRQ3)
	}
	c.regs.Barrier()
}

// Activate enables the interrupt source.
func (c *Controller) Activate(s Source) {
	c.set(s, true)
}

// Deactivate disables the interrupt source.
func (c *Controller) Deactivate(s Source) {
	c.set(s, false)
}

func (c *Controller) set(s Source, enable bool) {
	switch b := s.Bank(); b {
	case 0, 1, 2:
		// Enable and disable registers are write-1 to set/clear.
		if enable {
			c.regs.Write(c.m.enable(b), 1<<s.Bit())
		} else {
			c.regs.Write(c.m.disable(b), 1<<s.Bit())
		}
	case 3:
		f, ok := localFields[s]
		if !ok {
			return
		}
		addr := c.m.core(f.offs)
		v := c.regs.Read(addr)
		if enable {
			v |= f.bits
		} else {
			v &^= f.bits
		}
		c.regs.Write(addr, v)
	default:
		return
	}
	c.regs.Barrier()
}

// PendingBanks returns the pending and enabled sources of each bank.
// Bank 3 is built from the core-local pending register, with the mailbox 3
// bit moved to the slot of the receiving core's mailbox source.
func (c *Controller) PendingBanks() [NumBanks]uint32 {
	var p [NumBanks]uint32
	for b := 0; b < 3; b++ {
		// Only the older generation filters pending bits in hardware.
		p[b] = c.regs.Read(c.m.pending(b)) & c.regs.Read(c.m.enable(b))
	}
	p[3] = c.localPending() & c.localEnabled()
	return p
}

func (c *Controller) localPending() uint32 {
	raw := c.regs.Read(c.m.core(bcm.CorePending(dispatchCore)))
	v := raw & (bcm.PendingTimers | bcm.PendingGPU | bcm.PendingLocalTimer)
	if raw&bcm.PendingMailbox3 != 0 {
		v |= 1 << (Core0Mailbox3 + dispatchCore).Bit()
	}
	return v
}

func (c *Controller) localEnabled() uint32 {
	v := c.regs.Read(c.m.core(bcm.CoreTimer(dispatchCore))) & bcm.TimerAll
	if c.regs.Read(c.m.core(bcm.CoreMailbox(dispatchCore)))&bcm.MailboxIRQ3 != 0 {
		v |= 1 << (Core0Mailbox3 + dispatchCore).Bit()
	}
	if c.regs.Read(c.m.core(bcm.LocalTimerCtrl))&bcm.LocalTimerIRQEnable != 0 {
		v |= 1 << LocalTimer.Bit()
	}
	return v | unmaskable
}
