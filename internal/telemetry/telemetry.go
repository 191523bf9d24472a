// Package telemetry exposes Prometheus metrics for the connection core,
// grounded on the teacher's pkg/metrics declaration style (promauto
// against the default registry).
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesDecoded counts frames successfully decoded, by action code.
	FramesDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "danmaku_client_frames_decoded_total",
		Help: "Total frames decoded from the wire, by action code.",
	}, []string{"action"})

	// FrameDecodeErrors counts per-frame decode failures swallowed by the
	// receive loop.
	FrameDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "danmaku_client_frame_decode_errors_total",
		Help: "Total per-frame decode errors swallowed without ending the session.",
	})

	// HeartbeatsSent counts successfully sent heartbeat frames.
	HeartbeatsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "danmaku_client_heartbeats_sent_total",
		Help: "Total heartbeat frames sent.",
	})

	// HeartbeatOverruns counts heartbeat sends that took at least one full
	// interval, ending the session.
	HeartbeatOverruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "danmaku_client_heartbeat_overruns_total",
		Help: "Total heartbeat overruns that triggered disconnect.",
	})

	// DispatchErrors counts handler errors swallowed by the dispatch call
	// site inside the receive/heartbeat loops.
	DispatchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "danmaku_client_dispatch_errors_total",
		Help: "Total handler errors swallowed during event dispatch, by event kind.",
	}, []string{"event"})

	// ConnectionState is a gauge mirroring the connection's current state
	// machine value: 0=Idle 1=Connecting 2=Running 3=ShuttingDown 4=Disposed.
	ConnectionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "danmaku_client_connection_state",
		Help: "Current connection lifecycle state (0=Idle,1=Connecting,2=Running,3=ShuttingDown,4=Disposed).",
	}, []string{"room_id"})
)
