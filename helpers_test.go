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
	"io"
	"log/slog"
	"testing"

	"github.com/aamcrae/irq/internal/sim"
)

var generations = []sim.Generation{sim.Pi3, sim.Pi4, sim.Pi4High}

func mapFor(g sim.Generation) registerMap {
	switch g {
	case sim.Pi4:
		return newPi4Map(false)
	case sim.Pi4High:
		return newPi4Map(true)
	}
	return newPi3Map()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// defaultGen returns the simulated generation matching the build.
func defaultGen() sim.Generation {
	g, _ := sim.ParseGeneration(Generation)
	return g
}

// newTestIRQ builds an interrupt manager on a simulated controller.
func newTestIRQ(t *testing.T, g sim.Generation) (*IRQ, *sim.Controller, *sim.CPU) {
	t.Helper()
	m := mapFor(g)
	hw := sim.New(g)
	cpu := sim.NewCPU(m.autoMask())
	i := newIRQ(hw, cpu, m, discardLogger())
	i.Initialize()
	return i, hw, cpu
}

// assert raises a source on the simulated controller.
func assert(t *testing.T, hw *sim.Controller, s Source) {
	t.Helper()
	if s.Bank() > 2 {
		t.Fatalf("%v is not a bank source", s)
	}
	hw.Assert(s.Bank(), s.Bit())
}

// recorder collects the sources whose handlers were called, in order.
type recorder struct {
	calls []Source
	tx    []Sender
}

func (r *recorder) handler(s Source) Handler {
	return func(tx Sender) {
		r.calls = append(r.calls, s)
		r.tx = append(r.tx, tx)
	}
}

func equalSources(a, b []Source) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
