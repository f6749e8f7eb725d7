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

// Package termstat provides a dataio.Statter which periodically prints the
// partitioning counters to a writer, for watching a job-store run at the
// terminal without an external collector.
package termstat

import (
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/dbcdk/dataio"
)

var _ dataio.Statter = &Collector{}

// Collector sums counts and timings and prints them on every tick.
type Collector struct {
	lock    sync.Mutex
	indexes map[string]int
	names   []string
	stats   []int64
	timings map[string]time.Duration
	changed bool
	out     io.Writer

	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Collector.
type Option func(c *Collector)

// OptInterval sets how often stats are printed. A zero interval disables
// periodic printing; stats are then only printed by Flush.
func OptInterval(d time.Duration) Option {
	return func(c *Collector) {
		c.interval = d
	}
}

// NewCollector returns a Collector printing to out every two seconds.
func NewCollector(out io.Writer, opts ...Option) *Collector {
	c := &Collector{
		indexes:  make(map[string]int),
		timings:  make(map[string]time.Duration),
		out:      out,
		interval: 2 * time.Second,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.interval > 0 {
		c.wg.Add(1)
		go c.run()
	}
	return c
}

func (c *Collector) run() {
	defer c.wg.Done()
	tick := time.NewTicker(c.interval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			c.write("\r")
		case <-c.done:
			return
		}
	}
}

// Close stops periodic printing and prints the final stats on their own
// line.
func (c *Collector) Close() error {
	close(c.done)
	c.wg.Wait()
	c.Flush()
	return nil
}

// Flush prints the current stats, followed by a newline, even if nothing
// changed since the last print.
func (c *Collector) Flush() {
	c.lock.Lock()
	c.changed = true
	c.lock.Unlock()
	c.write("")
	fmt.Fprintln(c.out)
}

// Count adds value to the named stat at the specified rate.
func (c *Collector) Count(name string, value int64, rate float64, tags ...string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.changed = true

	idx, ok := c.indexes[name]
	if !ok {
		idx = len(c.stats)
		c.stats = append(c.stats, 0)
		c.names = append(c.names, name)
		c.indexes[name] = idx
	}
	if rate < 1 {
		if rand.Float64() > rate {
			return
		}
	}
	c.stats[idx] += value
}

// Timing adds value to the total time of the named stat.
func (c *Collector) Timing(name string, value time.Duration, rate float64, tags ...string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, ok := c.timings[name]; !ok {
		c.names = append(c.names, name)
	}
	c.timings[name] += value
	c.changed = true
}

// Stat returns the current count of the named stat.
func (c *Collector) Stat(name string) int64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	if idx, ok := c.indexes[name]; ok {
		return c.stats[idx]
	}
	return 0
}

func (c *Collector) write(prefix string) {
	sb := strings.Builder{}
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.changed {
		return
	}
	for _, name := range c.names {
		if idx, ok := c.indexes[name]; ok {
			_, _ = sb.WriteString(fmt.Sprintf("%s: %d ", name, c.stats[idx]))
		} else {
			_, _ = sb.WriteString(fmt.Sprintf("%s: %v ", name, c.timings[name]))
		}
	}
	c.changed = false
	fmt.Fprint(c.out, prefix+sb.String())
}

// Gauge does nothing.
func (c *Collector) Gauge(name string, value float64, rate float64, tags ...string) {}

// Histogram does nothing.
func (c *Collector) Histogram(name string, value float64, rate float64, tags ...string) {}

// Set does nothing.
func (c *Collector) Set(name string, value string, rate float64, tags ...string) {}
