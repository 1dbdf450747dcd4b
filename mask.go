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
	"sync/atomic"
)

// CPU provides the processor primitives used to mask and unmask the
// two interrupt classes, IRQ and FIQ.
type CPU interface {
	IRQMasked() bool
	FIQMasked() bool
	MaskIRQ()
	UnmaskIRQ()
	MaskFIQ()
	UnmaskFIQ()
	// Barrier makes an interrupt that is pending but was masked visible
	// immediately after an unmask.
	Barrier()
}

// Mask globally enables and disables interrupts, remembering for each class
// whether it was enabled before the last DisableAll.
//
// Only the most recent DisableAll is remembered. Nested
// DisableAll/DisableAll/RestoreAll leaves interrupts masked, since the
// second DisableAll records that interrupts were already disabled.
type Mask struct {
	cpu      CPU
	autoMask bool // Exception entry masks interrupts.

	irqState  atomic.Bool // IRQ was enabled before the last DisableAll
	fiqState  atomic.Bool // FIQ was enabled before the last DisableAll
	inHandler atomic.Bool
}

func newMask(cpu CPU, autoMask bool) *Mask {
	return &Mask{cpu: cpu, autoMask: autoMask}
}

// EnableAll unmasks IRQ and FIQ.
func (m *Mask) EnableAll() {
	m.cpu.UnmaskIRQ()
	m.cpu.Barrier()
	m.cpu.UnmaskFIQ()
	m.cpu.Barrier()
}

// maskState records which classes were enabled before they were masked.
type maskState struct {
	irq, fiq bool
}

// save masks IRQ and FIQ and returns which of them were enabled.
func (m *Mask) save() maskState {
	var s maskState
	s.irq = !m.cpu.IRQMasked()
	m.cpu.MaskIRQ()
	s.fiq = !m.cpu.FIQMasked()
	m.cpu.MaskFIQ()
	return s
}

// restore unmasks the classes enabled in s.
func (m *Mask) restore(s maskState) {
	if s.irq {
		m.cpu.UnmaskIRQ()
		m.cpu.Barrier()
	}
	if s.fiq {
		m.cpu.UnmaskFIQ()
		m.cpu.Barrier()
	}
}

// DisableAll masks IRQ and FIQ after recording whether each was enabled.
func (m *Mask) DisableAll() {
	if m.suppressed() {
		return
	}
	s := m.save()
	m.irqState.Store(s.irq)
	m.fiqState.Store(s.fiq)
}

// RestoreAll unmasks each class that was enabled before the last DisableAll.
func (m *Mask) RestoreAll() {
	if m.suppressed() {
		return
	}
	m.restore(maskState{irq: m.irqState.Load(), fiq: m.fiqState.Load()})
}

// InHandler returns true while an interrupt is being dispatched.
func (m *Mask) InHandler() bool {
	return m.inHandler.Load()
}

// enter and leave bracket the dispatch of one interrupt exception.
func (m *Mask) enter() {
	m.inHandler.Store(true)
}

func (m *Mask) leave() {
	m.inHandler.Store(false)
}

// When the hardware masks interrupts on exception entry, there is nothing
// to disable inside a handler, and restoring would unmask too early.
func (m *Mask) suppressed() bool {
	return m.autoMask && m.inHandler.Load()
}
