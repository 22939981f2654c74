// Package metrics defines and registers all custom Prometheus metrics for the
// marketplace API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace"

// ── Application metrics ───────────────────────────────────────────────────────

// ApplicationTransitionsTotal counts status change attempts on provider applications.
// Labels:
//   - to: the requested status (e.g. "pending", "approved")
//   - result: "applied", "noop" (already decided) or "conflict"
var ApplicationTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "application_transitions_total",
		Help:      "Total number of provider application status changes, by target status and result.",
	},
	[]string{"to", "result"},
)

// ApplicationValidationFailuresTotal counts submissions rejected by validation.
// Label:
//   - field: the offending field key (e.g. "citizenId")
var ApplicationValidationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "application_validation_failures_total",
		Help:      "Total number of field violations found when validating submissions.",
	},
	[]string{"field"},
)

// CertificateUploadsTotal counts certificate files received.
// Label:
//   - result: "stored" or "rejected"
var CertificateUploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "certificate_uploads_total",
		Help:      "Total number of certificate uploads, by result.",
	},
	[]string{"result"},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsPublishedTotal counts entries appended to the notification bus.
var NotificationsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_published_total",
		Help:      "Total number of notifications published, by recipient role and kind.",
	},
	[]string{"recipient_role", "kind"},
)

// DeliveriesTotal counts out-of-band deliveries handled by the dispatcher.
// Label:
//   - result: "sent", "failed" or "dropped"
var DeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Total number of deliveries attempted, by result.",
	},
	[]string{"result"},
)

// DeliveryQueueDepth tracks the number of deliveries waiting in each worker channel.
var DeliveryQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "delivery_queue_depth",
		Help:      "Current number of deliveries pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// DeliveryDuration measures how long a single delivery takes.
var DeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "delivery_duration_seconds",
		Help:      "Duration of a delivery from dequeue to notifier return.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// VerificationCodesTotal counts one-time code events.
// Label:
//   - result: "issued", "verified" or "rejected"
var VerificationCodesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verification_codes_total",
		Help:      "Total number of one-time verification code events, by result.",
	},
	[]string{"result"},
)
