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

// auxLine demultiplexes the Aux interrupt line, which is shared by the
// miniUART (Uart1), SPI1 and SPI2. The AUX_IRQ register shows which of
// the devices is asserting the line.
type auxLine struct {
	regs   Registers
	status uint64 // Address of AUX_IRQ
	slots  [numAux]slot
}

func (a *auxLine) slot(d AuxDevice) *slot {
	if d >= numAux {
		return nil
	}
	return &a.slots[d]
}

// attach sets the sender of the device, replacing any previous one.
func (a *auxLine) attach(d AuxDevice, tx Sender) {
	if s := a.slot(d); s != nil {
		s.arm(tx)
	}
}

func (a *auxLine) detachAll() {
	for i := range a.slots {
		a.slots[i].arm(nil)
	}
}

// handle is installed as the handler of the Aux source.
func (a *auxLine) handle(Sender) {
	st := a.regs.Read(a.status)
	for d := AuxDevice(0); d < numAux; d++ {
		if st&d.mask() != 0 {
			a.slots[d].fire()
		}
	}
}
