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

package sim

import (
	"sync"
)

// CPU models the IRQ and FIQ masks of a processor. Both start masked,
// as they are out of reset. Every primitive call is recorded.
type CPU struct {
	mu        sync.Mutex
	autoMask  bool
	irqMasked bool
	fiqMasked bool
	calls     []string
}

// NewCPU creates a CPU. If autoMask is set, Raise masks IRQ while the
// exception is being handled.
func NewCPU(autoMask bool) *CPU {
	return &CPU{autoMask: autoMask, irqMasked: true, fiqMasked: true}
}

// IRQMasked returns true if IRQ is masked.
func (c *CPU) IRQMasked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.irqMasked
}

// FIQMasked returns true if FIQ is masked.
func (c *CPU) FIQMasked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fiqMasked
}

// MaskIRQ masks IRQ.
func (c *CPU) MaskIRQ() { c.setIRQ(true, "MaskIRQ") }

// UnmaskIRQ unmasks IRQ.
func (c *CPU) UnmaskIRQ() { c.setIRQ(false, "UnmaskIRQ") }

// MaskFIQ masks FIQ.
func (c *CPU) MaskFIQ() { c.setFIQ(true, "MaskFIQ") }

// UnmaskFIQ unmasks FIQ.
func (c *CPU) UnmaskFIQ() { c.setFIQ(false, "UnmaskFIQ") }

// Barrier records a barrier; the model has no write buffering.
func (c *CPU) Barrier() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "Barrier")
}

func (c *CPU) setIRQ(masked bool, call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.irqMasked = masked
	c.calls = append(c.calls, call)
}

func (c *CPU) setFIQ(masked bool, call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fiqMasked = masked
	c.calls = append(c.calls, call)
}

// Calls returns the primitives called so far.
func (c *CPU) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// ClearCalls forgets the recorded calls.
func (c *CPU) ClearCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

// Raise takes an IRQ exception: if IRQ is unmasked, entry is called and
// true returned. With autoMask, IRQ is masked while entry runs and
// unmasked again on return from the exception.
func (c *CPU) Raise(entry func()) bool {
	c.mu.Lock()
	if c.irqMasked {
		c.mu.Unlock()
		return false
	}
	auto := c.autoMask
	if auto {
		c.irqMasked = true
	}
	c.mu.Unlock()
	entry()
	if auto {
		c.mu.Lock()
		c.irqMasked = false
		c.mu.Unlock()
	}
	return true
}
