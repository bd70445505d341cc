package metrics

import (
	"strconv"
	"time"
)

// Service holds the metrics recorded by the SOAP endpoint.
//
// Label values:
//   - operation: RegisterUser, GetUsers, GetUser, wsdl, docs, preflight,
//     not_found, invalid for requests the interpreter rejected, and unknown
//     when no handler labelled the request
//   - status: the numeric HTTP status (200, 400, 404, 500)
type Service struct {
	// Requests counts requests. Labels: operation, status.
	Requests *Counter
	// Duration tracks request latency in seconds. Labels: operation.
	Duration *Histogram
	// Users is the current size of the user store.
	Users *Gauge
	// Uptime is seconds since the registry was created.
	Uptime *Gauge
}

// NewService registers the service metrics on r. users, when non-nil, is
// sampled for the soapdemo_users gauge on every scrape.
func NewService(r *Registry, users func() int) *Service {
	s := &Service{
		Requests: r.NewCounter("soapdemo_requests_total",
			"Total number of SOAP service requests", "operation", "status"),
		Duration: r.NewHistogram("soapdemo_request_duration_seconds",
			"SOAP service request latency in seconds", nil, "operation"),
		Users: r.NewGauge("soapdemo_users",
			"Number of registered users"),
		Uptime: r.NewGauge("soapdemo_uptime_seconds",
			"Seconds since the service started"),
	}

	start := time.Now()
	r.OnGather(func() {
		_ = s.Uptime.Set(time.Since(start).Seconds())
		if users != nil {
			_ = s.Users.Set(float64(users()))
		}
	})
	return s
}

// Observe records one finished request.
func (s *Service) Observe(operation string, status int, elapsed time.Duration) {
	if s == nil {
		return
	}
	if c, err := s.Requests.WithLabels(operation, strconv.Itoa(status)); err == nil {
		c.Inc()
	}
	if h, err := s.Duration.WithLabels(operation); err == nil {
		h.Observe(elapsed.Seconds())
	}
}
