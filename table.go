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

// Handler services one interrupt source. It is called in interrupt context
// with the Sender attached to the source, or nil if none is attached.
// The handler must acknowledge the interrupt at the device, otherwise the
// source stays pending and the handler is called again straight away.
type Handler func(tx Sender)

// senderCell boxes a Sender so that it can be swapped atomically.
type senderCell struct {
	tx Sender
}

// slot is the dispatch entry of one source. A nil handler behaves as a
// no-op handler.
type slot struct {
	handler atomic.Pointer[Handler]
	tx      atomic.Pointer[senderCell]
}

// register installs the handler unless one is already installed.
func (s *slot) register(h Handler) bool {
	return s.handler.CompareAndSwap(nil, &h)
}

func (s *slot) registered() bool {
	return s.handler.Load() != nil
}

// arm attaches the sender; a nil sender detaches the current one.
func (s *slot) arm(tx Sender) {
	if tx == nil {
		s.tx.Store(nil)
		return
	}
	s.tx.Store(&senderCell{tx: tx})
}

func (s *slot) sender() Sender {
	if c := s.tx.Load(); c != nil {
		return c.tx
	}
	return nil
}

// fire calls the handler with a copy of the attached sender.
func (s *slot) fire() {
	if h := s.handler.Load(); h != nil {
		(*h)(s.sender())
	}
}

// table holds one slot per (bank, bit).
type table [NumBanks][32]slot

func (t *table) slot(s Source) *slot {
	if !s.Valid() {
		return nil
	}
	return &t[s.Bank()][s.Bit()]
}

// dispatch fires the slot of every bit set in pending, in ascending
// bank and bit order.
func (t *table) dispatch(pending [NumBanks]uint32) {
	for b := range pending {
		scan := Scan(pending[b])
		for bit, ok := scan.Next(); ok; bit, ok = scan.Next() {
			t[b][bit].fire()
		}
	}
}
