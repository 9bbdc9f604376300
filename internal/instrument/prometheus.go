//go:build prometheus
// +build prometheus

package instrument

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisker_inbound_messages_processed_total",
			Help: "Number of inbound messages processed, by content branch",
		},
		[]string{"branch"},
	)
	decryptFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisker_decrypt_failures_total",
			Help: "Number of second-pass decrypt or decode failures, by sub-protocol",
		},
		[]string{"subprotocol"},
	)
	lookupMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "whisker_creation_message_lookup_misses_total",
			Help: "Number of creation message lookups that returned empty",
		},
	)
	eventsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisker_events_emitted_total",
			Help: "Number of events handed to the sink, by event name",
		},
		[]string{"event"},
	)
)

// Init instrumentation
func Init() {
	prometheus.MustRegister(messagesProcessed)
	prometheus.MustRegister(decryptFailures)
	prometheus.MustRegister(lookupMisses)
	prometheus.MustRegister(eventsEmitted)
	http.Handle("/metrics", promhttp.Handler())
}

// MessagesProcessed increments the counter for processed inbound messages
func MessagesProcessed(branch string) {
	messagesProcessed.With(prometheus.Labels{"branch": branch}).Inc()
}

// DecryptFailure increments the counter for decrypt/decode failures
func DecryptFailure(subprotocol string) {
	decryptFailures.With(prometheus.Labels{"subprotocol": subprotocol}).Inc()
}

// LookupMiss increments the counter for creation message lookup misses
func LookupMiss() {
	lookupMisses.Inc()
}

// EventEmitted increments the counter for emitted events
func EventEmitted(name string) {
	eventsEmitted.With(prometheus.Labels{"event": name}).Inc()
}
