package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mesa",
			Name:      "reservation_created_total",
			Help:      "Count of reservations created, by assignment.",
		},
		[]string{"assignment"}, // "resource" or "unassigned"
	)

	bookingConflict = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mesa",
			Name:      "booking_conflict_total",
			Help:      "Count of create attempts that lost the booking race.",
		},
	)

	statusTransition = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mesa",
			Name:      "status_transition_total",
			Help:      "Count of reservation status transitions.",
		},
		[]string{"to"},
	)

	sweepTransitioned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mesa",
			Name:      "sweep_transitioned_total",
			Help:      "Count of reservations lapsed by the sweep, by outcome.",
		},
		[]string{"outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mesa",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationCreated, bookingConflict, statusTransition, sweepTransitioned, httpRequests)
	})
}

func IncReservationCreated(assignment string) {
	reservationCreated.WithLabelValues(assignment).Inc()
}

func IncBookingConflict() {
	bookingConflict.Inc()
}

func IncStatusTransition(to string) {
	statusTransition.WithLabelValues(to).Inc()
}

func AddSweepTransitioned(outcome string, n int64) {
	sweepTransitioned.WithLabelValues(outcome).Add(float64(n))
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
