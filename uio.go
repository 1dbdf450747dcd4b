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
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// uioDev is one interrupt line exported through a userspace I/O device.
// Reading the device blocks until the interrupt fires; writing 0 or 1
// masks or unmasks the interrupt.
// masked is the state requested through set. held is true while the driver
// has the line masked after reporting an interrupt; set then only records
// the request and release applies it.
type uioDev struct {
	file *os.File

	mu     sync.Mutex
	masked bool
	held   bool
}

func openUIODev(path string) (*uioDev, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0660)
	if err != nil {
		return nil, err
	}
	return &uioDev{file: f}, nil
}

func (u *uioDev) isMasked() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.masked
}

func (u *uioDev) set(enable bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.masked = !enable
	if u.held {
		return nil
	}
	return u.write(enable)
}

// hold marks the line as masked by the driver.
func (u *uioDev) hold() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.held = true
}

// release ends the driver mask, re-enabling the line unless it has been
// masked in the meantime.
func (u *uioDev) release() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.held = false
	if u.masked {
		return nil
	}
	return u.write(true)
}

func (u *uioDev) write(enable bool) error {
	b := make([]byte, 4)
	if enable {
		binary.NativeEndian.PutUint32(b, 1)
	}
	if _, err := u.file.Write(b); err != nil {
		return fmt.Errorf("%s: %v", u.file.Name(), err)
	}
	return nil
}

// UIO implements CPU on top of userspace I/O devices, where the interrupt
// of the controller is delivered to the process by the uio_pdrv_genirq
// driver. The FIQ device is optional; without it the FIQ mask is only
// tracked in software.
// IRQMasked and FIQMasked report the requested mask, which is not changed
// by the driver masking the line while an interrupt is being served.
type UIO struct {
	irq     *uioDev
	fiq     *uioDev
	fiqMask atomic.Bool

	mu  sync.Mutex
	err error // First error writing a device
}

// OpenUIO opens the IRQ device, and the FIQ device if fiqPath is not empty.
// Both start masked.
func OpenUIO(irqPath, fiqPath string) (*UIO, error) {
	u := new(UIO)
	var err error
	u.irq, err = openUIODev(irqPath)
	if err != nil {
		return nil, err
	}
	if fiqPath != "" {
		u.fiq, err = openUIODev(fiqPath)
		if err != nil {
			u.irq.file.Close()
			return nil, err
		}
	}
	u.MaskIRQ()
	u.MaskFIQ()
	return u, u.Err()
}

// IRQMasked returns true if IRQ has been masked.
func (u *UIO) IRQMasked() bool { return u.irq.isMasked() }

// MaskIRQ masks the IRQ device.
func (u *UIO) MaskIRQ() { u.check(u.irq.set(false)) }

// UnmaskIRQ unmasks the IRQ device.
func (u *UIO) UnmaskIRQ() { u.check(u.irq.set(true)) }

// FIQMasked returns true if FIQ has been masked.
func (u *UIO) FIQMasked() bool {
	if u.fiq == nil {
		return u.fiqMask.Load()
	}
	return u.fiq.isMasked()
}

// MaskFIQ masks the FIQ device.
func (u *UIO) MaskFIQ() {
	if u.fiq == nil {
		u.fiqMask.Store(true)
		return
	}
	u.check(u.fiq.set(false))
}

// UnmaskFIQ unmasks the FIQ device.
func (u *UIO) UnmaskFIQ() {
	if u.fiq == nil {
		u.fiqMask.Store(false)
		return
	}
	u.check(u.fiq.set(true))
}

// Barrier is a no-op, the irqcontrol write has completed when Write returns.
func (u *UIO) Barrier() {}

// Err returns the first error from writing the devices.
func (u *UIO) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

func (u *UIO) check(err error) {
	if err == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err == nil {
		u.err = err
	}
}

// Serve waits for interrupts on the IRQ device and calls entry for each one,
// until the context is cancelled or the device fails. The driver masks the
// interrupt before it is reported, so entry runs with the line masked. Once
// entry returns the line is unmasked again, unless IRQ has been masked
// since, by entry or by other goroutines.
// Cancelling the context closes the devices.
func (u *UIO) Serve(ctx context.Context, entry func()) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// Closing the device unblocks the pending read.
			u.Close()
		case <-done:
		}
	}()
	b := make([]byte, 4)
	for {
		n, err := u.irq.file.Read(b)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%s: %v", u.irq.file.Name(), err)
		}
		if n != 4 {
			continue
		}
		u.irq.hold()
		entry()
		u.check(u.irq.release())
		if err := u.Err(); err != nil {
			return err
		}
	}
}

// Close closes the devices.
func (u *UIO) Close() error {
	err := u.irq.file.Close()
	if u.fiq != nil {
		u.fiq.file.Close()
	}
	return err
}
