package input

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of an Input.
type Metrics struct {
	RecordsRead  prometheus.Counter
	FilesOpened  prometheus.Counter
	DecodeErrors *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	recordsRead := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dbf_input_records_read_total",
		Help: "Total records decoded from DBF files",
	})

	filesOpened := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dbf_input_files_opened_total",
		Help: "Total DBF files opened",
	})

	decodeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dbf_input_decode_errors_total",
		Help: "Decode failures by kind",
	}, []string{"kind"})

	reg.MustRegister(recordsRead, filesOpened, decodeErrors)

	return &Metrics{
		RecordsRead:  recordsRead,
		FilesOpened:  filesOpened,
		DecodeErrors: decodeErrors,
	}
}
