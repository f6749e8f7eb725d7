// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package termstat

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/dbcdk/dataio"
)

func TestCollector(t *testing.T) {
	buf := &bytes.Buffer{}
	c := NewCollector(buf, OptInterval(0))
	dataio.CountStatus(c, dataio.StatusSuccess)
	dataio.CountStatus(c, dataio.StatusSuccess)
	dataio.CountStatus(c, dataio.StatusFailure)
	c.Timing(dataio.StatJobDuration, 2*time.Second, 1)
	c.Count(dataio.StatChunks, 0, 1)

	if got := c.Stat(dataio.StatItemsSuccess); got != 2 {
		t.Fatalf("expected 2 successes, got %d", got)
	}
	if got := c.Stat("unknown"); got != 0 {
		t.Fatalf("expected 0 for unknown stat, got %d", got)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}
	exp := "partition.items.success: 2 partition.items.failure: 1 partition.job: 2s partition.chunks: 0 \n"
	if buf.String() != exp {
		t.Fatalf("unexpected output\n%q\n%q", buf.String(), exp)
	}
}

func TestCollectorTicks(t *testing.T) {
	buf := &syncBuffer{}
	c := NewCollector(buf, OptInterval(time.Millisecond))
	c.Count(dataio.StatChunks, 3, 1)
	deadline := time.Now().Add(5 * time.Second)
	for buf.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Close()
	if buf.Len() == 0 {
		t.Fatalf("expected periodic output")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}
