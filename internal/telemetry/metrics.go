/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Planner metrics
	PlannerTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muninn_planner_ticks_total",
		Help: "Number of planner ticks executed.",
	})
	PlannerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_planner_errors_total",
		Help: "Number of planner tick failures.",
	}, []string{"stage"})
	ScheduledRemindersBuffered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "muninn_scheduled_reminders_buffered",
		Help: "Pending reminders currently held in the rolling buffer.",
	})

	// Schedule engine metrics
	QuietHoursAdjustmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muninn_quiet_hours_adjustments_total",
		Help: "Fire times recomputed because the candidate fell in quiet hours.",
	})
	SamplerDrawsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_sampler_draws_total",
		Help: "Reminder selections performed, labelled by favourite outcome.",
	}, []string{"favourite"})

	// Delivery metrics
	RemindersDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_reminders_delivered_total",
		Help: "Reminders handed to a delivery channel.",
	}, []string{"channel"})
	ReminderDeliveryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_reminder_delivery_failures_total",
		Help: "Reminder delivery attempts that failed.",
	}, []string{"channel"})

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_api_requests_total",
		Help: "HTTP requests served.",
	}, []string{"method", "endpoint", "status"})
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "muninn_api_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "muninn_api_active_connections",
		Help: "In-flight HTTP requests.",
	})

	// Leader election metrics
	LeaderElectionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "muninn_leader_election_status",
		Help: "1 when this instance holds the planner lease.",
	}, []string{"instance"})
	LeaderElectionChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_leader_election_changes_total",
		Help: "Leadership transitions observed by this instance.",
	}, []string{"instance", "transition"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
