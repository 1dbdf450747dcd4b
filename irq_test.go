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
	"strings"
	"testing"

	"github.com/aamcrae/irq/internal/bcm"
	"github.com/aamcrae/irq/internal/sim"
)

func TestDispatchOnlyPendingSource(t *testing.T) {
	sources := []Source{SystemTimer1, Usb, CoreSync2, GpioBank1, Pl011, ArmTimer, ArmDoorbell1}
	for _, g := range generations {
		for _, s := range sources {
			i, hw, _ := newTestIRQ(t, g)
			r := new(recorder)
			for _, o := range sources {
				if err := i.Register(o, r.handler(o)); err != nil {
					t.Fatal(err)
				}
				i.Activate(o, nil)
			}
			assert(t, hw, s)
			i.HandleInterrupt()
			if !equalSources(r.calls, []Source{s}) {
				t.Errorf("%v: pending %v dispatched %v", g, s, r.calls)
			}
		}
	}
}

func TestDispatchLocalSource(t *testing.T) {
	for _, g := range generations {
		i, hw, _ := newTestIRQ(t, g)
		r := new(recorder)
		for _, s := range []Source{CntPsIrq, CntVIrq, Core0Mailbox3, CoreGPU, LocalTimer} {
			if err := i.Register(s, r.handler(s)); err != nil {
				t.Fatal(err)
			}
		}
		i.Activate(CntVIrq, nil)
		hw.AssertLocal(0, bcm.TimerCntPs|bcm.TimerCntV|bcm.PendingMailbox3|bcm.PendingGPU)
		i.HandleInterrupt()
		want := []Source{CntVIrq, Core0Mailbox3, CoreGPU}
		if !equalSources(r.calls, want) {
			t.Errorf("%v: dispatched %v, want %v", g, r.calls, want)
		}
	}
}

func TestDispatchOrder(t *testing.T) {
	for _, g := range generations {
		i, hw, _ := newTestIRQ(t, g)
		r := new(recorder)
		// Registered and activated out of order.
		sources := []Source{ArmTimer, Arm, Pl011, Usb, SystemTimer1}
		for _, s := range sources {
			i.Register(s, r.handler(s))
			i.Activate(s, nil)
			assert(t, hw, s)
		}
		i.HandleInterrupt()
		want := []Source{SystemTimer1, Usb, Arm, Pl011, ArmTimer}
		if !equalSources(r.calls, want) {
			t.Errorf("%v: dispatched %v, want %v", g, r.calls, want)
		}
	}
}

func TestDispatchSender(t *testing.T) {
	for _, g := range generations {
		i, hw, _ := newTestIRQ(t, g)
		tx, rx := NewChannel(4)
		var got []Sender
		i.Register(SystemTimer1, func(s Sender) {
			got = append(got, s)
			if s != nil {
				s.Send("tick")
			}
		})
		i.Activate(SystemTimer1, tx)
		assert(t, hw, SystemTimer1)
		// The same sender is handed out on every interrupt.
		i.HandleInterrupt()
		i.HandleInterrupt()
		if len(got) != 2 || got[0] != tx || got[1] != tx {
			t.Fatalf("%v: handler senders %v", g, got)
		}
		if rx.Len() != 2 {
			t.Errorf("%v: %d values queued, want 2", g, rx.Len())
		}
		// Re-activating without a sender detaches it.
		i.Activate(SystemTimer1, nil)
		i.HandleInterrupt()
		if len(got) != 3 || got[2] != nil {
			t.Errorf("%v: handler senders %v", g, got)
		}
	}
}

func TestDeactivateStopsDispatch(t *testing.T) {
	for _, g := range generations {
		i, hw, _ := newTestIRQ(t, g)
		r := new(recorder)
		tx, _ := NewChannel(1)
		i.Register(I2sPcm, r.handler(I2sPcm))
		i.Activate(I2sPcm, tx)
		assert(t, hw, I2sPcm)
		i.Deactivate(I2sPcm)
		i.HandleInterrupt()
		if len(r.calls) != 0 {
			t.Errorf("%v: dispatched %v after Deactivate", g, r.calls)
		}
		if !i.Registered(I2sPcm) {
			t.Errorf("%v: handler lost on Deactivate", g)
		}
		if s := i.isr.slot(I2sPcm).sender(); s != nil {
			t.Errorf("%v: sender still attached", g)
		}
	}
}

// A handler that does not acknowledge its source is called again on the
// next interrupt.
func TestUnacknowledgedSourceRefires(t *testing.T) {
	i, hw, _ := newTestIRQ(t, sim.Pi4)
	r := new(recorder)
	i.Register(Spi, r.handler(Spi))
	i.Activate(Spi, nil)
	assert(t, hw, Spi)
	for n := 0; n < 3; n++ {
		i.HandleInterrupt()
	}
	if len(r.calls) != 3 {
		t.Errorf("handler called %d times, want 3", len(r.calls))
	}
}

func TestUnregisteredSourceDropped(t *testing.T) {
	for _, g := range generations {
		i, hw, _ := newTestIRQ(t, g)
		r := new(recorder)
		i.Register(Isp, r.handler(Isp))
		i.Activate(Isp, nil)
		i.Activate(GpuDma, nil)
		assert(t, hw, GpuDma)
		assert(t, hw, Isp)
		i.HandleInterrupt()
		if !equalSources(r.calls, []Source{Isp}) {
			t.Errorf("%v: dispatched %v", g, r.calls)
		}
		if i.Registered(GpuDma) {
			t.Errorf("%v: GpuDma registered", g)
		}
	}
}

func TestActivateAuxPanics(t *testing.T) {
	i, _, _ := newTestIRQ(t, sim.Pi3)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Activate(Aux) did not panic")
		}
		if s, ok := r.(string); !ok || !strings.Contains(s, "ActivateAux") {
			t.Errorf("panic %v", r)
		}
	}()
	i.Activate(Aux, nil)
}

func TestRegisterErrors(t *testing.T) {
	i, hw, _ := newTestIRQ(t, sim.Pi3)
	r := new(recorder)
	if err := i.Register(Sdio, r.handler(Sdio)); err != nil {
		t.Fatal(err)
	}
	if err := i.Register(Sdio, r.handler(Pl011)); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("double Register: %v", err)
	}
	if err := i.Register(Aux, r.handler(Aux)); !errors.Is(err, ErrSharedLine) {
		t.Errorf("Register(Aux): %v", err)
	}
	if err := i.Register(Source(200), r.handler(Aux)); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("Register(200): %v", err)
	}
	if err := i.Register(Arm, nil); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("Register(nil): %v", err)
	}
	if err := i.RegisterAux(AuxDevice(7), r.handler(Aux)); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("RegisterAux(7): %v", err)
	}
	// The first handler stays installed.
	i.Activate(Sdio, nil)
	assert(t, hw, Sdio)
	i.HandleInterrupt()
	if !equalSources(r.calls, []Source{Sdio}) {
		t.Errorf("dispatched %v", r.calls)
	}
}

func TestEntryMasking(t *testing.T) {
	for _, g := range generations {
		i, hw, cpu := newTestIRQ(t, g)
		var inside []bool
		i.Register(ArmTimer, func(Sender) {
			inside = append(inside, cpu.IRQMasked(), i.Mask().InHandler())
			// A critical section inside a handler must not unmask early.
			i.DisableAll()
			i.RestoreAll()
			inside = append(inside, cpu.IRQMasked())
		})
		i.Activate(ArmTimer, nil)
		assert(t, hw, ArmTimer)
		i.EnableAll()
		if !cpu.Raise(i.HandleInterrupt) {
			t.Fatalf("%v: interrupt not taken", g)
		}
		if len(inside) != 3 || !inside[0] || !inside[1] || !inside[2] {
			t.Errorf("%v: in handler masked/inHandler/masked = %v", g, inside)
		}
		if cpu.IRQMasked() || cpu.FIQMasked() {
			t.Errorf("%v: interrupts masked after return", g)
		}
		if i.Mask().InHandler() {
			t.Errorf("%v: still in handler after return", g)
		}
		// Masked interrupts are not taken.
		i.DisableAll()
		if cpu.Raise(i.HandleInterrupt) {
			t.Errorf("%v: interrupt taken while masked", g)
		}
		i.RestoreAll()
		if cpu.IRQMasked() {
			t.Errorf("%v: RestoreAll left IRQ masked", g)
		}
	}
}

// A handler critical section on the generation without masking on entry
// leaves both classes enabled once the interrupt returns, and interrupts
// keep being taken.
func TestHandlerCriticalSection(t *testing.T) {
	i, hw, cpu := newTestIRQ(t, sim.Pi3)
	n := 0
	i.Register(Usb, func(Sender) {
		n++
		i.DisableAll()
		if !cpu.IRQMasked() || !cpu.FIQMasked() {
			t.Errorf("DisableAll in handler left interrupts enabled")
		}
		i.RestoreAll()
	})
	i.Activate(Usb, nil)
	assert(t, hw, Usb)
	i.EnableAll()
	for k := 0; k < 3; k++ {
		if !cpu.Raise(i.HandleInterrupt) {
			t.Fatalf("interrupt %d not taken", k)
		}
		if cpu.IRQMasked() || cpu.FIQMasked() {
			t.Fatalf("interrupt %d: IRQ masked %v, FIQ masked %v after return", k, cpu.IRQMasked(), cpu.FIQMasked())
		}
	}
	if n != 3 {
		t.Errorf("handler called %d times, want 3", n)
	}
}

func TestOpen(t *testing.T) {
	g, ok := sim.ParseGeneration(Generation)
	if !ok {
		t.Fatalf("no simulator for %s", Generation)
	}
	hw := sim.New(g)
	cpu := sim.NewCPU(defaultMap.autoMask())
	c := NewConfig().Registers(hw).CPU(cpu).Logger(discardLogger())
	i, err := Open(c)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(c); err == nil {
		t.Errorf("second Open succeeded")
	}
	if i.Generation() != Generation {
		t.Errorf("generation %s, want %s", i.Generation(), Generation)
	}
	if err := i.Serve(context.Background()); !errors.Is(err, ErrNoDelivery) {
		t.Errorf("Serve: %v", err)
	}
	i.Initialize()
	i.Activate(Pl011, nil)
	i.Close()
	if hw.Enabled(Pl011.Bank()) != 0 {
		t.Errorf("source enabled after Close")
	}
	i, err = Open(c)
	if err != nil {
		t.Fatalf("Open after Close: %v", err)
	}
	i.Close()
}
