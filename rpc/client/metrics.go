package client

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
	"time"
)

// opMetrics holds the metric handles of one operation
type opMetrics struct {
	requests *metrics.Counter
	duration *metrics.Histogram
}

// clientMetrics records requests, error classes and latencies per operation in the
// default VictoriaMetrics set. The handles are created on first use.
type clientMetrics struct {
	ops *xsync.MapOf[common.Operation, *opMetrics]
}

func newClientMetrics() *clientMetrics {
	return &clientMetrics{ops: xsync.NewMapOf[common.Operation, *opMetrics]()}
}

func (m *clientMetrics) forOp(op common.Operation) *opMetrics {
	om, _ := m.ops.LoadOrCompute(op, func() *opMetrics {
		return &opMetrics{
			requests: metrics.GetOrCreateCounter(fmt.Sprintf(`otsc_client_requests_total{operation=%q}`, op)),
			duration: metrics.GetOrCreateHistogram(fmt.Sprintf(`otsc_client_request_duration_seconds{operation=%q}`, op)),
		}
	})
	return om
}

// observe records one finished call
func (m *clientMetrics) observe(op common.Operation, start time.Time, err error) {
	om := m.forOp(op)
	om.requests.Inc()
	om.duration.UpdateDuration(start)
	if err != nil {
		metrics.GetOrCreateCounter(fmt.Sprintf(`otsc_client_errors_total{operation=%q,class=%q}`, op, errorClass(err))).Inc()
	}
}

// errorClass names the taxonomy branch of err for the error counter
func errorClass(err error) string {
	switch {
	case errors.Is(err, apierr.ErrTransport):
		return "transport"
	case errors.Is(err, apierr.ErrService):
		return "service"
	case errors.Is(err, apierr.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, apierr.ErrLocalValidation):
		return "local"
	default:
		return "other"
	}
}
