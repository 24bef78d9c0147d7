// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics exports instantiation and runtime counters.  A nil
// *Metrics discards everything.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wasmer"

type Metrics struct {
	instantiations        prometheus.Counter
	instantiationFailures prometheus.Counter
	functionsCompiled     prometheus.Counter
	relocations           prometheus.Counter
	memoryGrow            prometheus.Counter
	memoryGrowFailures    prometheus.Counter
	compileSeconds        prometheus.Histogram
}

// New metrics registered with r.
func New(r prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		instantiations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instantiations_total",
			Help:      "number of successful instantiations",
		}),
		instantiationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instantiation_failures_total",
			Help:      "number of failed instantiations",
		}),
		functionsCompiled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "functions_compiled_total",
			Help:      "number of compiled functions",
		}),
		relocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relocations_total",
			Help:      "number of applied relocations",
		}),
		memoryGrow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_grow_total",
			Help:      "number of memory grow requests",
		}),
		memoryGrowFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_grow_failures_total",
			Help:      "number of memory grow requests which returned -1",
		}),
		compileSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_seconds",
			Help:      "time spent compiling the functions of a module",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{
		m.instantiations,
		m.instantiationFailures,
		m.functionsCompiled,
		m.relocations,
		m.memoryGrow,
		m.memoryGrowFailures,
		m.compileSeconds,
	} {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) Instantiated(err error) {
	if m == nil {
		return
	}
	if err == nil {
		m.instantiations.Inc()
	} else {
		m.instantiationFailures.Inc()
	}
}

func (m *Metrics) Compiled(functions int, d time.Duration) {
	if m == nil {
		return
	}
	m.functionsCompiled.Add(float64(functions))
	m.compileSeconds.Observe(d.Seconds())
}

func (m *Metrics) Relocated(n int) {
	if m == nil {
		return
	}
	m.relocations.Add(float64(n))
}

func (m *Metrics) MemoryGrown(ok bool) {
	if m == nil {
		return
	}
	m.memoryGrow.Inc()
	if !ok {
		m.memoryGrowFailures.Inc()
	}
}
