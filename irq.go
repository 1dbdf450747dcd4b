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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

var (
	ErrAlreadyRegistered = errors.New("handler already registered")
	ErrSharedLine        = errors.New("source is a shared line")
	ErrInvalidSource     = errors.New("invalid interrupt source")
	ErrNoDelivery        = errors.New("CPU backend does not deliver interrupts")
)

// IRQ is the interrupt manager: it owns the controller, the global
// interrupt mask and the dispatch table.
type IRQ struct {
	ctl  *Controller
	mask *Mask
	isr  table
	aux  auxLine
	m    registerMap
	regs Registers
	cpu  CPU
	log  *slog.Logger
}

// Single instance of IRQ.
var current *IRQ

// Open creates the interrupt manager using the configuration provided.
// Interrupts remain masked and all sources disabled until Initialize,
// Activate and EnableAll are called.
func Open(c *Config) (*IRQ, error) {
	if current != nil {
		return nil, fmt.Errorf("Interrupt manager already open; must close it first")
	}
	regs := c.regs
	if regs == nil {
		d, err := OpenDevMem(c.memPath, defaultMap.regions()...)
		if err != nil {
			return nil, err
		}
		regs = d
	}
	cpu := c.cpu
	if cpu == nil {
		u, err := OpenUIO(c.irqPath, c.fiqPath)
		if err != nil {
			if c.regs == nil {
				regs.(io.Closer).Close()
			}
			return nil, err
		}
		cpu = u
	}
	current = newIRQ(regs, cpu, defaultMap, c.log())
	return current, nil
}

func newIRQ(regs Registers, cpu CPU, m registerMap, log *slog.Logger) *IRQ {
	i := &IRQ{
		ctl:  newController(regs, m),
		mask: newMask(cpu, m.autoMask()),
		m:    m,
		regs: regs,
		cpu:  cpu,
		log:  log,
	}
	i.aux.regs = regs
	i.aux.status = m.auxStatus()
	// The Aux slot always holds the demultiplexer.
	i.isr.slot(Aux).register(i.aux.handle)
	return i
}

// Generation returns the controller generation in use.
func (i *IRQ) Generation() string {
	return i.m.name()
}

// Controller returns the interrupt controller.
func (i *IRQ) Controller() *Controller {
	return i.ctl
}

// Mask returns the global interrupt mask.
func (i *IRQ) Mask() *Mask {
	return i.mask
}

// Initialize disables all sources and sets up inter-core signalling.
func (i *IRQ) Initialize() {
	i.ctl.Initialize()
	i.log.Info("interrupt controller initialized", "generation", i.m.name())
}

// Register installs the handler of a source. Each source can be registered
// once; the handler is fixed from then on.
func (i *IRQ) Register(s Source, h Handler) error {
	if s == Aux {
		return fmt.Errorf("%v: %w, use RegisterAux", s, ErrSharedLine)
	}
	sl := i.isr.slot(s)
	if sl == nil || h == nil {
		return fmt.Errorf("%v: %w", s, ErrInvalidSource)
	}
	if !sl.register(h) {
		return fmt.Errorf("%v: %w", s, ErrAlreadyRegistered)
	}
	i.log.Debug("handler registered", "source", s)
	return nil
}

// RegisterAux installs the handler of a device on the Aux line.
func (i *IRQ) RegisterAux(d AuxDevice, h Handler) error {
	sl := i.aux.slot(d)
	if sl == nil || h == nil {
		return fmt.Errorf("%v: %w", d, ErrInvalidSource)
	}
	if !sl.register(h) {
		return fmt.Errorf("%v: %w", d, ErrAlreadyRegistered)
	}
	i.log.Debug("aux handler registered", "device", d)
	return nil
}

// Registered returns true if a handler has been registered for the source.
func (i *IRQ) Registered(s Source) bool {
	sl := i.isr.slot(s)
	return sl != nil && sl.registered()
}

// Activate enables the source. If tx is not nil, it is passed to the
// handler on every interrupt so the handler can hand data to normal
// processing.
// If no handler acknowledges the interrupt, it will be raised again as soon
// as the handler returns.
// Activate panics if called for the Aux line, which is activated through
// ActivateAux.
func (i *IRQ) Activate(s Source, tx Sender) {
	if s == Aux {
		panic("irq: Aux is a shared line and requires ActivateAux")
	}
	sl := i.isr.slot(s)
	if sl == nil {
		return
	}
	sl.arm(tx)
	i.ctl.Activate(s)
	i.log.Debug("activated", "source", s, "channel", tx != nil)
}

// ActivateAux attaches tx to a device on the Aux line and enables the line.
// The devices on the line cannot be enabled individually; tx replaces any
// sender previously attached to the device, a nil tx detaches it.
func (i *IRQ) ActivateAux(d AuxDevice, tx Sender) {
	i.aux.attach(d, tx)
	i.ctl.Activate(Aux)
	i.log.Debug("activated", "source", Aux, "device", d, "channel", tx != nil)
}

// Deactivate disables the source and detaches its sender. The handler
// stays registered. Deactivating Aux detaches the senders of all its devices.
func (i *IRQ) Deactivate(s Source) {
	sl := i.isr.slot(s)
	if sl == nil {
		return
	}
	i.ctl.Deactivate(s)
	sl.arm(nil)
	if s == Aux {
		i.aux.detachAll()
	}
	i.log.Debug("deactivated", "source", s)
}

// EnableAll globally unmasks IRQ and FIQ.
func (i *IRQ) EnableAll() {
	i.mask.EnableAll()
}

// DisableAll globally masks IRQ and FIQ, remembering their previous state.
func (i *IRQ) DisableAll() {
	i.mask.DisableAll()
}

// RestoreAll unmasks IRQ and FIQ if they were enabled before the last DisableAll.
func (i *IRQ) RestoreAll() {
	i.mask.RestoreAll()
}

// HandleInterrupt is the entry point for an interrupt exception. It calls
// the handler of every pending and enabled source, in ascending source order.
func (i *IRQ) HandleInterrupt() {
	i.mask.enter()
	defer i.mask.leave()
	if !i.m.autoMask() {
		// No masking on entry, so prevent a nested dispatch here. The
		// state is kept locally so handlers can use DisableAll/RestoreAll.
		defer i.mask.restore(i.mask.save())
	}
	i.isr.dispatch(i.ctl.PendingBanks())
}

// Serve receives interrupts from the CPU backend and dispatches them until
// the context is cancelled. Only backends that deliver interrupts, such as
// UIO, can be served.
func (i *IRQ) Serve(ctx context.Context) error {
	d, ok := i.cpu.(interface {
		Serve(context.Context, func()) error
	})
	if !ok {
		return ErrNoDelivery
	}
	return d.Serve(ctx, i.HandleInterrupt)
}

// Close disables all sources and masks interrupts, then releases the backends.
func (i *IRQ) Close() {
	i.mask.DisableAll()
	i.ctl.Initialize()
	for b := range i.isr {
		for n := range i.isr[b] {
			i.isr[b][n].arm(nil)
		}
	}
	i.aux.detachAll()
	if c, ok := i.cpu.(io.Closer); ok {
		c.Close()
	}
	if c, ok := i.regs.(io.Closer); ok {
		c.Close()
	}
	if current == i {
		current = nil
	}
}
