package veneer

import (
	"context"
	"os"
	"time"
)

// envProduction disables mocks by default when set to "production".
const envProduction = "VENEER_ENV"

// Mock short-circuits an endpoint with a configured payload.
//
// A mock is enabled by default except when VENEER_ENV=production; set Enabled
// to override. When enabled, the call skips the transport and retry entirely
// and returns the payload wrapped as a Response, unless PassThrough also
// issues the real request for observability.
type Mock struct {
	// Data is the static payload.
	Data any
	// DataFunc computes the payload from the call arguments. It takes
	// precedence over Data when set.
	DataFunc func(ctx context.Context, args []any) (any, error)
	// Status is the envelope status. Defaults to 200.
	Status int
	// Delay simulates network latency before the payload is returned.
	Delay time.Duration
	// Enabled overrides the default enablement predicate.
	Enabled func() bool
	// PassThrough still issues the real network call, but the mock payload is
	// what the caller receives. Transport failures are logged, not returned.
	PassThrough bool
}

func (m *Mock) enabled() bool {
	if m.Enabled != nil {
		return m.Enabled()
	}
	return os.Getenv(envProduction) != "production"
}

func (m *Mock) status() int {
	if m.Status != 0 {
		return m.Status
	}
	return 200
}

// payload resolves the mock data, waiting out the simulated delay first.
func (m *Mock) payload(ctx context.Context, args []any) (any, error) {
	if m.Delay > 0 {
		t := time.NewTimer(m.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, wrapError(CodeCanceled, ctx.Err())
		case <-t.C:
		}
	}
	if m.DataFunc != nil {
		return m.DataFunc(ctx, args)
	}
	return m.Data, nil
}
