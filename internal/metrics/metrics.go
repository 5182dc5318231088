// Package metrics exposes Prometheus metrics for the relay daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the relay.
type Metrics struct {
	// Connection metrics
	ConnectionsActive   prometheus.Gauge
	ConnectionsOpened   prometheus.Counter
	ConnectionsClosed   prometheus.Counter
	ConnectionsReplaced prometheus.Counter

	// Frame metrics
	FramesReceived prometheus.Counter
	FramesDropped  prometheus.Counter

	// Chat metrics
	MessagesPersisted prometheus.Counter
	MessagesDelivered prometheus.Counter
	MessagesOffline   prometheus.Counter

	// Presence metrics
	PresenceBroadcasts prometheus.Counter

	// Audio metrics
	AudioFramesRelayed prometheus.Counter
	SpeechRequests     prometheus.Counter
	SpeechFailures     prometheus.Counter
}

// New creates and registers all relay metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voxprep_connections_active",
			Help: "Current number of open client sockets",
		}),
		ConnectionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxprep_connections_opened_total",
			Help: "Total number of client sockets accepted",
		}),
		ConnectionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxprep_connections_closed_total",
			Help: "Total number of client sockets closed",
		}),
		ConnectionsReplaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxprep_connections_replaced_total",
			Help: "Total number of registrations that overwrote a prior socket",
		}),
		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxprep_frames_received_total",
			Help: "Total number of wire frames received",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxprep_frames_dropped_total",
			Help: "Total number of malformed or unrecognized frames dropped",
		}),
		MessagesPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxprep_messages_persisted_total",
			Help: "Total number of chat messages appended to the log",
		}),
		MessagesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxprep_messages_delivered_total",
			Help: "Total number of chat messages pushed to a live socket",
		}),
		MessagesOffline: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxprep_messages_offline_total",
			Help: "Total number of chat messages persisted with no live receiver",
		}),
		PresenceBroadcasts: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxprep_presence_broadcasts_total",
			Help: "Total number of presence snapshots fanned out",
		}),
		AudioFramesRelayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxprep_audio_frames_relayed_total",
			Help: "Total number of audio frames relayed between peers",
		}),
		SpeechRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxprep_speech_requests_total",
			Help: "Total number of speech synthesis requests",
		}),
		SpeechFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxprep_speech_failures_total",
			Help: "Total number of failed speech synthesis requests",
		}),
	}
}
