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
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Sender hands a value from an interrupt handler to normal processing.
// Send must not block; it returns false if the value could not be queued.
// Senders are copied into every handler invocation, so a Sender must
// remain usable after being copied.
type Sender interface {
	Send(v any) bool
}

// isrChan is the buffered queue shared by a Sender and its Receiver.
type isrChan struct {
	c       chan any
	dropped atomic.Uint64
}

// chanSender is the Sender half of a channel created by NewChannel.
type chanSender struct {
	ch *isrChan
}

// Send queues the value, dropping it if the channel is full.
func (s chanSender) Send(v any) bool {
	select {
	case s.ch.c <- v:
		return true
	default:
		s.ch.dropped.Add(1)
		return false
	}
}

// Receiver is the receiving half of a channel created by NewChannel.
// Values are either read with Wait/WaitTimeout/TryRecv, or delivered to a
// handler installed with SetHandler.
type Receiver struct {
	ch *isrChan

	mu                sync.Mutex
	handlerRegistered bool
	stopChan          chan chan struct{}
}

// NewChannel creates a channel buffering up to depth values.
func NewChannel(depth int) (Sender, *Receiver) {
	if depth < 1 {
		depth = 1
	}
	ch := &isrChan{c: make(chan any, depth)}
	return chanSender{ch: ch}, &Receiver{ch: ch}
}

// SetHandler installs an asynch handler that is invoked for each value
// received on the channel.
func (r *Receiver) SetHandler(f func(any)) {
	r.ClearHandler()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlerRegistered = true
	r.stopChan = make(chan chan struct{})
	go r.dispatcher(f, r.stopChan)
}

// ClearHandler removes any currently installed handler.
func (r *Receiver) ClearHandler() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlerRegistered {
		// The dispatcher signals on c once it has exited.
		c := make(chan struct{})
		r.stopChan <- c
		<-c
		close(r.stopChan)
		r.handlerRegistered = false
	}
}

// Wait returns the next value, blocking until one is available or
// the context is done. It cannot be used while a handler is installed.
func (r *Receiver) Wait(ctx context.Context) (any, error) {
	if r.hasHandler() {
		return nil, fmt.Errorf("Handler registered, cannot use Wait")
	}
	select {
	case v := <-r.ch.c:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitTimeout returns the next value, or false if the timeout expires e.g
//  v, ok, err := r.WaitTimeout(time.Second)
//  if ok {
//      // Value received
//  } else {
//      // Timed out
//  }
func (r *Receiver) WaitTimeout(tout time.Duration) (any, bool, error) {
	if r.hasHandler() {
		return nil, false, fmt.Errorf("Handler registered, cannot use WaitTimeout")
	}
	timer := time.NewTimer(tout)
	defer timer.Stop()
	select {
	case v := <-r.ch.c:
		return v, true, nil
	case <-timer.C:
		return nil, false, nil
	}
}

// TryRecv returns a queued value without blocking.
func (r *Receiver) TryRecv() (any, bool) {
	select {
	case v := <-r.ch.c:
		return v, true
	default:
		return nil, false
	}
}

// Len returns the number of queued values.
func (r *Receiver) Len() int {
	return len(r.ch.c)
}

// Dropped returns the number of values discarded because the channel was full.
func (r *Receiver) Dropped() uint64 {
	return r.ch.dropped.Load()
}

func (r *Receiver) hasHandler() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlerRegistered
}

// dispatcher is a shim between the channel and the handler.
// A stop channel is used to indicate when the handler should terminate.
func (r *Receiver) dispatcher(f func(any), stop chan chan struct{}) {
	for {
		select {
		case c := <-stop:
			close(c)
			return
		case v := <-r.ch.c:
			f(v)
		}
	}
}
