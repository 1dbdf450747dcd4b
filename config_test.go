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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseBoard(t *testing.T) {
	data := `
generation: ` + Generation + `
irqDevice: /dev/uio3
fiqDevice: /dev/uio4
activate: [SystemTimer1, ArmTimer, LocalTimer]
aux: [Uart1, Spi2]
`
	b, err := ParseBoard([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if b.MemDevice != DefaultMemDevice || b.IRQDevice != "/dev/uio3" || b.FIQDevice != "/dev/uio4" {
		t.Errorf("devices %q %q %q", b.MemDevice, b.IRQDevice, b.FIQDevice)
	}
	if b.ChannelDepth != 16 {
		t.Errorf("channel depth %d", b.ChannelDepth)
	}
	if !equalSources(b.Sources(), []Source{SystemTimer1, ArmTimer, LocalTimer}) {
		t.Errorf("sources %v", b.Sources())
	}
	if a := b.AuxDevices(); len(a) != 2 || a[0] != Uart1 || a[1] != Spi2 {
		t.Errorf("aux devices %v", a)
	}
	c := b.Config()
	if c.memPath != DefaultMemDevice || c.irqPath != "/dev/uio3" || c.fiqPath != "/dev/uio4" {
		t.Errorf("config %+v", c)
	}
}

func TestParseBoardDefaults(t *testing.T) {
	b, err := ParseBoard([]byte("channelDepth: 4\n"))
	if err != nil {
		t.Fatal(err)
	}
	if b.Generation != Generation || b.IRQDevice != DefaultIRQDevice || b.ChannelDepth != 4 {
		t.Errorf("board %+v", b)
	}
	if len(b.Sources()) != 0 || len(b.AuxDevices()) != 0 {
		t.Errorf("unexpected sources %v %v", b.Sources(), b.AuxDevices())
	}
}

func TestParseBoardErrors(t *testing.T) {
	other := "pi4"
	if Generation == "pi4" {
		other = "pi3"
	}
	tests := []struct {
		name string
		data string
		want string
	}{
		{"generation", "generation: " + other, "built for"},
		{"source", "activate: [Timer9]", "Timer9"},
		{"shared", "activate: [Aux]", "shared line"},
		{"aux", "aux: [Uart7]", "Uart7"},
		{"yaml", "activate: {", "yaml"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseBoard([]byte(tc.data))
			if err == nil {
				t.Fatalf("no error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadBoard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	if err := os.WriteFile(path, []byte("aux: [Spi1]\nactivate: [Uart9]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBoard(path); err == nil || !strings.Contains(err.Error(), path) {
		t.Errorf("LoadBoard error %v", err)
	}
	if err := os.WriteFile(path, []byte("aux: [Spi1]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	b, err := LoadBoard(path)
	if err != nil {
		t.Fatal(err)
	}
	if a := b.AuxDevices(); len(a) != 1 || a[0] != Spi1 {
		t.Errorf("aux devices %v", a)
	}
	if _, err := LoadBoard(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("LoadBoard of missing file succeeded")
	}
}

func TestConfigBuilder(t *testing.T) {
	c := NewConfig()
	if c.memPath != DefaultMemDevice || c.irqPath != DefaultIRQDevice || c.fiqPath != "" {
		t.Errorf("defaults %+v", c)
	}
	if c.log() == nil {
		t.Errorf("no default logger")
	}
	l := discardLogger()
	c.Memory("/tmp/mem").Device("/dev/uio1", "/dev/uio2").Logger(l)
	if c.memPath != "/tmp/mem" || c.irqPath != "/dev/uio1" || c.fiqPath != "/dev/uio2" || c.log() != l {
		t.Errorf("config %+v", c)
	}
	c.Clear()
	if c.memPath != DefaultMemDevice || c.logger != nil {
		t.Errorf("Clear left %+v", c)
	}
	if DefaultConfig == nil || DefaultConfig.irqPath != DefaultIRQDevice {
		t.Errorf("DefaultConfig %+v", DefaultConfig)
	}
}
