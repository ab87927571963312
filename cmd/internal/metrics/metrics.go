package metrics

import (
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics contains the collected metrics
type Metrics struct {
	totalBackups  prometheus.Counter
	backupSuccess prometheus.Gauge
	backupSize    prometheus.Gauge
	totalErrors   *prometheus.CounterVec
	routedTotal   *prometheus.CounterVec
	addr          string
}

// New generates new metrics
func New() *Metrics {
	backupSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "backup_success",
		Help: "is 1 when the last backup cycle was successful, otherwise 0",
	},
	)

	totalBackups := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backup_total_backups",
		Help: "total number of successful backup cycles",
	},
	)

	totalErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backup_errors",
		Help: "total number of errors during backup cycles",
	},
		[]string{"operation"},
	)

	backupSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "backup_size",
		Help: "size of last backup artifact in bytes",
	},
	)

	routedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backup_relays",
		Help: "total number of relayed artifacts by transfer route",
	},
		[]string{"route"},
	)

	return &Metrics{
		totalBackups:  totalBackups,
		backupSuccess: backupSuccess,
		totalErrors:   totalErrors,
		backupSize:    backupSize,
		routedTotal:   routedTotal,
	}
}

// Register registers the metrics with the default prometheus registry, must
// be called only once per process
func (m *Metrics) Register() {
	prometheus.MustRegister(m.backupSuccess)
	prometheus.MustRegister(m.totalBackups)
	prometheus.MustRegister(m.totalErrors)
	prometheus.MustRegister(m.backupSize)
	prometheus.MustRegister(m.routedTotal)
}

// Start serves the metrics endpoint in the background
func (m *Metrics) Start(log *zap.SugaredLogger, addr string) error {
	log.Infow("starting metrics server", "addr", addr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte(`<html>
			<head><title>backup-relay metrics</title></head>
			<body>
			<h1>backup-relay metrics</h1>
			<p><a href='/metrics'>Metrics</a></p>
			</body>
			</html>`))
		if err != nil {
			log.Errorw("error handling metrics root endpoint", "error", err)
		}
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	m.addr = listener.Addr().String()

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 1 * time.Minute,
	}

	go func() {
		err := server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			log.Errorw("metrics server stopped", "error", err)
		}
	}()

	return nil
}

// Addr returns the address the metrics server listens on
func (m *Metrics) Addr() string {
	return m.addr
}

// CountBackup updates the counters after a successful backup cycle
func (m *Metrics) CountBackup(sizeBytes int64) {
	m.totalBackups.Inc()
	m.backupSuccess.Set(1)
	m.backupSize.Set(float64(sizeBytes))
}

// CountRoute increases the relay counter for the given transfer route
func (m *Metrics) CountRoute(route string) {
	m.routedTotal.With(prometheus.Labels{"route": route}).Inc()
}

// CountError increases the error counter for the given operation
func (m *Metrics) CountError(op string) {
	m.totalErrors.With(prometheus.Labels{"operation": op}).Inc()
	m.backupSuccess.Set(0)
}
