/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The TrafficEye Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes Prometheus metrics for console requests and
// backend calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the console's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	backendCalls    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trafficeye",
			Name:      "http_requests_total",
			Help:      "Console HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trafficeye",
			Name:      "http_request_duration_seconds",
			Help:      "Console HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	backendCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trafficeye",
			Name:      "backend_calls_total",
			Help:      "Backend REST calls by service, method and outcome.",
		},
		[]string{"service", "method", "outcome"},
	)
	backendDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trafficeye",
			Name:      "backend_call_duration_seconds",
			Help:      "Backend REST call latency by service.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(requests, requestDuration, backendCalls, backendDuration)

	return &Metrics{
		registry:        registry,
		requests:        requests,
		requestDuration: requestDuration,
		backendCalls:    backendCalls,
		backendDuration: backendDuration,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one console request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveBackendCall records one backend call. A status of 0 means the
// call failed before a response arrived.
func (m *Metrics) ObserveBackendCall(service, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(service, method, outcome(status)).Inc()
	m.backendDuration.WithLabelValues(service).Observe(d.Seconds())
}

func outcome(status int) string {
	switch {
	case status == 0:
		return "network_error"
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return "ok"
	}
}
