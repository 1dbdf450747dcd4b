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

/*

Package irq manages the legacy ARM interrupt controller of the Raspberry Pi 3
(BCM2837) and Raspberry Pi 4 (BCM2711 with the GIC disabled).

The controller groups the interrupt sources into 4 banks of 32 bits. Banks 0 to 2
are enabled, disabled and polled through the registers of the IRQ block, bank 3
holds the core-local sources (ARM generic timers, mailbox 3 of each core, the GPU
interrupt and the local timer), each of which has its own register field.

Handlers are registered per source, and sources are activated with an optional
Sender through which the handler can pass data to normal processing:

  i, err := irq.Open(irq.DefaultConfig)
  tx, rx := irq.NewChannel(16)
  i.Register(irq.SystemTimer1, func(tx irq.Sender) {
      // Acknowledge the timer, then
      tx.Send(struct{}{})
  })
  i.Initialize()
  i.Activate(irq.SystemTimer1, tx)
  i.EnableAll()
  go i.Serve(ctx)
  rx.Wait(ctx)

HandleInterrupt is the entry point of the interrupt exception. It calls the
handler of each pending and enabled source in ascending source order, passing
the Sender most recently attached to the source. Sources with no handler are
ignored. A handler must acknowledge its source, otherwise the interrupt is
raised again as soon as it returns.

The Aux line is shared by the miniUART (Uart1), SPI1 and SPI2. It is handled
internally and demultiplexed to the handlers registered with RegisterAux,
and activated per device with ActivateAux.

The register layout is chosen when the package is built: the default is the
Raspberry Pi 3, the pi4 build tag selects the Raspberry Pi 4 with the low
peripheral mode, and pi4high the Raspberry Pi 4 with the high peripheral mode.

On Linux the registers are mapped through /dev/mem and the interrupt is
delivered through a userspace I/O device (uio_pdrv_genirq); both can be
replaced via the Config.

*/
package irq
