// Copyright 2026 The concatfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the operational counters for the concatenation
// engine through prometheus/client_golang, the same metrics stack gcsfuse
// itself carries (its internal/monitor and metrics packages).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// SegmentsParsed counts description-line segments accepted by the parser,
// labeled by whether the parse opened backing descriptors.
var SegmentsParsed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "concatfs_segments_parsed_total",
		Help: "Number of concatenation-description segments accepted by the parser.",
	},
	[]string{"open_backing"},
)

// VirtualBytesRead counts bytes returned by the segmented read engine.
var VirtualBytesRead = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "concatfs_virtual_bytes_read_total",
		Help: "Total bytes returned by reads against virtual (concatenated) files.",
	},
)

// OpenVirtualHandles tracks the current size of the open-handle registry.
var OpenVirtualHandles = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "concatfs_open_virtual_handles",
		Help: "Number of virtual files currently registered in the open-handle registry.",
	},
)

// MustRegister registers all concatfs collectors with reg. It panics on a
// duplicate registration, matching prometheus.MustRegister's own contract;
// callers normally pass prometheus.DefaultRegisterer once at startup.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(SegmentsParsed, VirtualBytesRead, OpenVirtualHandles)
}
