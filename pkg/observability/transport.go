package observability

import "net/http"

// InstrumentTransport wraps next so every round trip updates the in-flight
// gauge and the response counter. A nil next wraps http.DefaultTransport.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		InFlightRequests.Inc()
		defer InFlightRequests.Dec()

		resp, err := next.RoundTrip(req)
		status := 0
		if err == nil {
			status = resp.StatusCode
		}
		HTTPResponsesTotal.WithLabelValues(req.Method, StatusClass(status)).Inc()
		return resp, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
