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
	"math/bits"
)

// BitScanner walks the set bits of a 32 bit mask in ascending order.
// It works on its own copy of the mask and never allocates, so it can be
// used from interrupt context.
type BitScanner struct {
	mask uint32
}

// Scan returns a BitScanner over the set bits of mask.
func Scan(mask uint32) BitScanner {
	return BitScanner{mask: mask}
}

// Next returns the position of the lowest remaining set bit and clears it.
// Once the mask is exhausted, false is returned.
func (b *BitScanner) Next() (uint, bool) {
	if b.mask == 0 {
		return 0, false
	}
	pos := uint(bits.TrailingZeros32(b.mask))
	b.mask &^= 1 << pos
	return pos, true
}
