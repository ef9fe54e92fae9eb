package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaygrid/gsfw-go/internal/logging"
)

// Prometheus counters and gauges.
var (
	WheelDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wheel_dispatched_total",
		Help: "Total timers successfully dispatched onto a wheel.",
	})
	WheelFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wheel_fired_total",
		Help: "Total timers delivered by a wheel's Tick.",
	})
	WheelCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wheel_cancelled_total",
		Help: "Total timers cancelled before firing.",
	})
	WheelOverflows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wheel_overflow_total",
		Help: "Total submissions rejected for exceeding a wheel's round.",
	})
	WheelDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wheel_pending_depth",
		Help: "Number of timers currently pending across all wheels.",
	})
	BrokerCasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_cast_total",
		Help: "Total fire-and-forget messages sent through a Broker.",
	})
	BrokerCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_call_total",
		Help: "Total request/reply calls sent through a Broker.",
	})
	BrokerCallErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_call_error_total",
		Help: "Total calls that completed with an error reply.",
	})
	GateConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gate_connections_total",
		Help: "Total connections accepted by a Gate.",
	})
	GateActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gate_active_connections",
		Help: "Current number of live Gate connections.",
	})
	GateFramesRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gate_frames_rx_total",
		Help: "Total frames decoded from Gate connections.",
	})
	GateFramesTx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gate_frames_tx_total",
		Help: "Total frames written to Gate connections.",
	})
	ComponentsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "components_running",
		Help: "Current number of running components.",
	})
	HubClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_clients",
		Help: "Current number of clients registered with a broadcast hub.",
	})
	HubBroadcastFanout = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_broadcast_fanout",
		Help: "Number of clients the most recent broadcast was fanned out to.",
	})
	HubDroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_dropped_frames_total",
		Help: "Total frames dropped by the hub's drop backpressure policy.",
	})
	HubKickedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_kicked_clients_total",
		Help: "Total clients disconnected by the hub's kick backpressure policy.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrGateAccept   = "gate_accept"
	ErrGateRead     = "gate_read"
	ErrGateWrite    = "gate_write"
	ErrAdaptorReady = "adaptor_ready"
	ErrDecode       = "decode"
	ErrEncode       = "encode"
	ErrComponentRun = "component_run"
)

// StartHTTP serves Prometheus metrics at /metrics and a readiness probe
// at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters, cheap to read through Snap without hitting
// the Prometheus registry.
var (
	localDispatched uint64
	localFired      uint64
	localCancelled  uint64
	localOverflows  uint64
	localCasts      uint64
	localCalls      uint64
	localCallErrors uint64
	localConns      uint64
	localFramesRx   uint64
	localFramesTx   uint64
	localErrors     uint64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	Dispatched uint64
	Fired      uint64
	Cancelled  uint64
	Overflows  uint64
	Casts      uint64
	Calls      uint64
	CallErrors uint64
	Conns      uint64
	FramesRx   uint64
	FramesTx   uint64
	Errors     uint64
}

func Snap() Snapshot {
	return Snapshot{
		Dispatched: atomic.LoadUint64(&localDispatched),
		Fired:      atomic.LoadUint64(&localFired),
		Cancelled:  atomic.LoadUint64(&localCancelled),
		Overflows:  atomic.LoadUint64(&localOverflows),
		Casts:      atomic.LoadUint64(&localCasts),
		Calls:      atomic.LoadUint64(&localCalls),
		CallErrors: atomic.LoadUint64(&localCallErrors),
		Conns:      atomic.LoadUint64(&localConns),
		FramesRx:   atomic.LoadUint64(&localFramesRx),
		FramesTx:   atomic.LoadUint64(&localFramesTx),
		Errors:     atomic.LoadUint64(&localErrors),
	}
}

func IncWheelDispatched() {
	WheelDispatched.Inc()
	atomic.AddUint64(&localDispatched, 1)
}

func IncWheelFired(n int) {
	WheelFired.Add(float64(n))
	atomic.AddUint64(&localFired, uint64(n))
}

func IncWheelCancelled() {
	WheelCancelled.Inc()
	atomic.AddUint64(&localCancelled, 1)
}

func IncWheelOverflow() {
	WheelOverflows.Inc()
	atomic.AddUint64(&localOverflows, 1)
}

func SetWheelDepth(n int) {
	WheelDepth.Set(float64(n))
}

func IncBrokerCast() {
	BrokerCasts.Inc()
	atomic.AddUint64(&localCasts, 1)
}

func IncBrokerCall() {
	BrokerCalls.Inc()
	atomic.AddUint64(&localCalls, 1)
}

func IncBrokerCallError() {
	BrokerCallErrors.Inc()
	atomic.AddUint64(&localCallErrors, 1)
}

func IncGateConnection() {
	GateConnections.Inc()
	atomic.AddUint64(&localConns, 1)
}

func SetGateActiveConnections(n int) {
	GateActiveConnections.Set(float64(n))
}

func IncGateFramesRx() {
	GateFramesRx.Inc()
	atomic.AddUint64(&localFramesRx, 1)
}

func IncGateFramesTx() {
	GateFramesTx.Inc()
	atomic.AddUint64(&localFramesTx, 1)
}

func SetComponentsRunning(n int) {
	ComponentsRunning.Set(float64(n))
}

func SetHubClients(n int) {
	HubClients.Set(float64(n))
}

func SetHubBroadcastFanout(n int) {
	HubBroadcastFanout.Set(float64(n))
}

func IncHubDrop() {
	HubDroppedFrames.Inc()
}

func IncHubKick() {
	HubKickedClients.Inc()
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge and pre-registers error label
// series so the first occurrence of each doesn't pay scrape-time
// registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{
		ErrGateAccept, ErrGateRead, ErrGateWrite,
		ErrAdaptorReady, ErrDecode, ErrEncode, ErrComponentRun,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
