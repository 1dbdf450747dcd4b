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
)

// NumBanks is the number of 32 bit interrupt banks.
const NumBanks = 4

// Source identifies one interrupt source. The value is stable, the upper
// bits select the bank and the lower 5 bits the bit within the bank.
// Banks 0 to 2 are backed by the enable/disable/pending registers of the
// interrupt controller, bank 3 holds the core-local sources.
type Source uint8

// GPU pending bank 1 (sources 0 - 31).
const (
	SystemTimer1 Source = 1
	SystemTimer3 Source = 3
	Isp          Source = 8
	Usb          Source = 9
	CoreSync0    Source = 12
	CoreSync1    Source = 13
	CoreSync2    Source = 14
	CoreSync3    Source = 15
	Aux          Source = 29 // Shared by the miniUART, SPI1 and SPI2.
	Arm          Source = 30
	GpuDma       Source = 31
)

// GPU pending bank 2 (sources 32 - 63).
const (
	GpioBank0 Source = 49
	GpioBank1 Source = 50
	GpioBank2 Source = 51
	GpioBank3 Source = 52
	I2c       Source = 53
	Spi       Source = 54
	I2sPcm    Source = 55
	Sdio      Source = 56
	Pl011     Source = 57
)

// Basic pending bank (sources 64 - 95).
const (
	ArmTimer        Source = 64
	ArmMailbox      Source = 65
	ArmDoorbell0    Source = 66
	ArmDoorbell1    Source = 67
	ArmGpu0Halted   Source = 68
	ArmGpu1Halted   Source = 69
	ArmIllegalType1 Source = 70
	ArmIllegalType0 Source = 71
	ArmPending1     Source = 72
	ArmPending2     Source = 73
)

// Core-local sources (96 - 127). These have no uniform enable bit, each is
// configured through its own register field.
const (
	CntPsIrq      Source = 96
	CntPnsIrq     Source = 97
	CntHpIrq      Source = 98
	CntVIrq       Source = 99
	Core0Mailbox3 Source = 100
	Core1Mailbox3 Source = 101
	Core2Mailbox3 Source = 102
	Core3Mailbox3 Source = 103
	CoreGPU       Source = 104 // Cannot be masked.
	LocalTimer    Source = 107
)

var sourceNames = map[Source]string{
	SystemTimer1:    "SystemTimer1",
	SystemTimer3:    "SystemTimer3",
	Isp:             "Isp",
	Usb:             "Usb",
	CoreSync0:       "CoreSync0",
	CoreSync1:       "CoreSync1",
	CoreSync2:       "CoreSync2",
	CoreSync3:       "CoreSync3",
	Aux:             "Aux",
	Arm:             "Arm",
	GpuDma:          "GpuDma",
	GpioBank0:       "GpioBank0",
	GpioBank1:       "GpioBank1",
	GpioBank2:       "GpioBank2",
	GpioBank3:       "GpioBank3",
	I2c:             "I2c",
	Spi:             "Spi",
	I2sPcm:          "I2sPcm",
	Sdio:            "Sdio",
	Pl011:           "Pl011",
	ArmTimer:        "ArmTimer",
	ArmMailbox:      "ArmMailbox",
	ArmDoorbell0:    "ArmDoorbell0",
	ArmDoorbell1:    "ArmDoorbell1",
	ArmGpu0Halted:   "ArmGpu0Halted",
	ArmGpu1Halted:   "ArmGpu1Halted",
	ArmIllegalType1: "ArmIllegalType1",
	ArmIllegalType0: "ArmIllegalType0",
	ArmPending1:     "ArmPending1",
	ArmPending2:     "ArmPending2",
	CntPsIrq:        "CntPsIrq",
	CntPnsIrq:       "CntPnsIrq",
	CntHpIrq:        "CntHpIrq",
	CntVIrq:         "CntVIrq",
	Core0Mailbox3:   "Core0Mailbox3",
	Core1Mailbox3:   "Core1Mailbox3",
	Core2Mailbox3:   "Core2Mailbox3",
	Core3Mailbox3:   "Core3Mailbox3",
	CoreGPU:         "CoreGPU",
	LocalTimer:      "LocalTimer",
}

// Bank returns the bank the source belongs to.
func (s Source) Bank() int {
	return int(s >> 5)
}

// Bit returns the bit position of the source within its bank.
func (s Source) Bit() uint {
	return uint(s & 0x1F)
}

// Valid returns true if the source falls within one of the banks.
func (s Source) Valid() bool {
	return s.Bank() < NumBanks
}

// String returns the name of the source.
func (s Source) String() string {
	if n, ok := sourceNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Source(%d)", uint8(s))
}

// ParseSource returns the source with the given name.
func ParseSource(name string) (Source, error) {
	for s, n := range sourceNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown interrupt source %q", name)
}

// AuxDevice is one of the devices sharing the Aux interrupt line.
type AuxDevice uint8

const (
	Uart1 AuxDevice = iota
	Spi1
	Spi2

	numAux = 3
)

var auxNames = [numAux]string{"Uart1", "Spi1", "Spi2"}

// mask returns the AUX_IRQ status bit of the device.
func (d AuxDevice) mask() uint32 {
	return 1 << uint(d)
}

// String returns the name of the device.
func (d AuxDevice) String() string {
	if d < numAux {
		return auxNames[d]
	}
	return fmt.Sprintf("AuxDevice(%d)", uint8(d))
}

// ParseAuxDevice returns the aux device with the given name.
func ParseAuxDevice(name string) (AuxDevice, error) {
	for i, n := range auxNames {
		if n == name {
			return AuxDevice(i), nil
		}
	}
	return 0, fmt.Errorf("unknown aux device %q", name)
}
