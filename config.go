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
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Default device paths.
const (
	DefaultMemDevice = "/dev/mem"
	DefaultIRQDevice = "/dev/uio0"
)

// Config selects the register and CPU backends used by Open.
// A configuration is built through config methods on this structure e.g:
//   c := irq.NewConfig()
//   c.Memory("/dev/mem").Device("/dev/uio0", "").Logger(logger)
//   p, err := irq.Open(c)
// Registers and CPU replace the device backends, which is how a
// simulated controller is attached.
type Config struct {
	memPath string
	irqPath string
	fiqPath string
	regs    Registers
	cpu     CPU
	logger  *slog.Logger
}

// DefaultConfig maps /dev/mem and receives interrupts through /dev/uio0.
var DefaultConfig *Config

func init() {
	DefaultConfig = NewConfig()
}

// NewConfig creates a Config holding the defaults.
func NewConfig() *Config {
	c := new(Config)
	c.Clear()
	return c
}

// Clear resets the configuration to the defaults.
func (c *Config) Clear() *Config {
	c.memPath = DefaultMemDevice
	c.irqPath = DefaultIRQDevice
	c.fiqPath = ""
	c.regs = nil
	c.cpu = nil
	c.logger = nil
	return c
}

// Memory sets the memory device the registers are mapped from.
func (c *Config) Memory(path string) *Config {
	c.memPath = path
	return c
}

// Device sets the userspace I/O devices delivering IRQ and FIQ.
// An empty fiq path leaves FIQ tracked in software only.
func (c *Config) Device(irq, fiq string) *Config {
	c.irqPath = irq
	c.fiqPath = fiq
	return c
}

// Registers uses r for register access instead of the memory device.
func (c *Config) Registers(r Registers) *Config {
	c.regs = r
	return c
}

// CPU uses cpu for interrupt masking instead of the userspace I/O devices.
func (c *Config) CPU(cpu CPU) *Config {
	c.cpu = cpu
	return c
}

// Logger sets the logger, slog.Default() if not set.
func (c *Config) Logger(l *slog.Logger) *Config {
	c.logger = l
	return c
}

func (c *Config) log() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Board is a board description file, e.g:
//   generation: pi3
//   irqDevice: /dev/uio0
//   channelDepth: 16
//   activate: [SystemTimer1, ArmTimer]
//   aux: [Uart1]
type Board struct {
	Generation   string   `yaml:"generation"`
	MemDevice    string   `yaml:"memDevice,omitempty"`
	IRQDevice    string   `yaml:"irqDevice,omitempty"`
	FIQDevice    string   `yaml:"fiqDevice,omitempty"`
	ChannelDepth int      `yaml:"channelDepth,omitempty"`
	Activate     []string `yaml:"activate,omitempty"`
	Aux          []string `yaml:"aux,omitempty"`

	sources []Source
	aux     []AuxDevice
}

// LoadBoard reads and validates a board file.
func LoadBoard(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := ParseBoard(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ParseBoard decodes and validates a board description.
// The generation must match the one the package was built for.
func ParseBoard(data []byte) (*Board, error) {
	b := new(Board)
	if err := yaml.Unmarshal(data, b); err != nil {
		return nil, err
	}
	if b.Generation != "" && b.Generation != Generation {
		return nil, fmt.Errorf("board is %s, built for %s", b.Generation, Generation)
	}
	b.Generation = Generation
	if b.MemDevice == "" {
		b.MemDevice = DefaultMemDevice
	}
	if b.IRQDevice == "" {
		b.IRQDevice = DefaultIRQDevice
	}
	if b.ChannelDepth <= 0 {
		b.ChannelDepth = 16
	}
	for _, n := range b.Activate {
		s, err := ParseSource(n)
		if err != nil {
			return nil, err
		}
		if s == Aux {
			return nil, fmt.Errorf("%s is a shared line, list its devices under aux", n)
		}
		b.sources = append(b.sources, s)
	}
	for _, n := range b.Aux {
		d, err := ParseAuxDevice(n)
		if err != nil {
			return nil, err
		}
		b.aux = append(b.aux, d)
	}
	return b, nil
}

// Sources returns the sources listed under activate.
func (b *Board) Sources() []Source {
	return b.sources
}

// AuxDevices returns the devices listed under aux.
func (b *Board) AuxDevices() []AuxDevice {
	return b.aux
}

// Config returns a Config using the board's devices.
func (b *Board) Config() *Config {
	return NewConfig().Memory(b.MemDevice).Device(b.IRQDevice, b.FIQDevice)
}
