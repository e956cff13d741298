package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Label values shared by the counters below.
const (
	ResultOK    = "ok"
	ResultError = "error"
	// ResultNotFound covers missing, expired and undecodable store entries.
	ResultNotFound = "not_found"
)

// The collectors exist from package init so that code paths can count
// before (or without) registration.
var (
	EncodeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reqtoken_encode_total",
		Help: "Request tokens encoded, by result.",
	}, []string{"result"})

	DecodeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reqtoken_decode_total",
		Help: "Request token decodes, by result (ok, unsupported_version, malformed).",
	}, []string{"result"})

	UnprotectFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reqtoken_unprotect_failures_total",
		Help: "Protected request tokens that failed to unprotect or decode.",
	})

	StoreOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reqtoken_store_ops_total",
		Help: "Request token store operations, by backend, operation and result.",
	}, []string{"backend", "op", "result"})
)

// Register adds the collectors to reg. It should be called once at startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register request token metrics.")
		return
	}

	for name, c := range map[string]prometheus.Collector{
		"EncodeTotal":            EncodeTotal,
		"DecodeTotal":            DecodeTotal,
		"UnprotectFailuresTotal": UnprotectFailuresTotal,
		"StoreOpsTotal":          StoreOpsTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to register metric")
		}
	}
	log.Info().Msg("Request token metrics registered.")
}

// ObserveStore counts one store operation.
func ObserveStore(backend, op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	StoreOpsTotal.WithLabelValues(backend, op, result).Inc()
}
