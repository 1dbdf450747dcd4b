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
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Registers is the 32 bit register space the controller is driven through.
// Addresses are physical addresses.
type Registers interface {
	Read(addr uint64) uint32
	Write(addr uint64, v uint32)
	// Barrier ensures preceding writes have reached the device before
	// the caller continues.
	Barrier()
}

// Region is a block of physical address space to be mapped.
type Region struct {
	Base uint64
	Size uint64
}

type window struct {
	base uint64
	mem  []byte
}

// DevMem accesses the peripheral registers through a memory device
// such as /dev/mem or /dev/gpiomem.
type DevMem struct {
	file    *os.File
	windows []window
	last    atomic.Uint64 // Address of the last register written
}

// OpenDevMem maps the regions of the memory device at path.
func OpenDevMem(path string, regions ...Region) (*DevMem, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0660)
	if err != nil {
		return nil, err
	}
	d := &DevMem{file: f}
	pageSize := uint64(os.Getpagesize())
	for _, r := range regions {
		// mmap requires a page aligned offset.
		base := r.Base &^ (pageSize - 1)
		size := (r.Base - base + r.Size + pageSize - 1) &^ (pageSize - 1)
		mem, err := unix.Mmap(int(f.Fd()), int64(base), int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("%s: 0x%x: %v", path, r.Base, err)
		}
		d.windows = append(d.windows, window{base: base, mem: mem})
	}
	return d, nil
}

// Close unmaps the regions and closes the memory device.
func (d *DevMem) Close() error {
	for _, w := range d.windows {
		unix.Munmap(w.mem)
	}
	d.windows = nil
	return d.file.Close()
}

// Read reads one 32 bit register.
func (d *DevMem) Read(addr uint64) uint32 {
	return atomic.LoadUint32(d.reg(addr))
}

// Write writes one 32 bit register.
func (d *DevMem) Write(addr uint64, v uint32) {
	atomic.StoreUint32(d.reg(addr), v)
	d.last.Store(addr)
}

// Barrier reads back the last register written, which forces the
// write out of any bus write buffer.
func (d *DevMem) Barrier() {
	if a := d.last.Load(); a != 0 {
		atomic.LoadUint32(d.reg(a))
	}
}

// reg returns a pointer to the register at the physical address.
func (d *DevMem) reg(addr uint64) *uint32 {
	for _, w := range d.windows {
		if addr >= w.base && addr+4 <= w.base+uint64(len(w.mem)) {
			return (*uint32)(unsafe.Pointer(&w.mem[addr-w.base]))
		}
	}
	panic(fmt.Sprintf("irq: register 0x%x is not mapped", addr))
}
