package veneer

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Client groups registered endpoints and binds them to one transport.
// Configure it with the chained With* methods, register endpoints, then call
// them by name. A client is safe for concurrent calls; the only cross-call
// state is the cancellation registry.
type Client struct {
	transport Transport
	basePath  string
	baseURL   string
	logger    *slog.Logger
	reqIcs    []RequestInterceptor
	resIcs    []ResponseInterceptor

	mu        sync.Mutex
	endpoints map[string]*Endpoint
	calls     map[string]*callHandle
}

// callHandle is one entry in the cancellation registry.
type callHandle struct {
	cancel context.CancelFunc
}

// NewClient creates a client bound to a transport.
func NewClient(transport Transport) *Client {
	return &Client{
		transport: transport,
		endpoints: make(map[string]*Endpoint),
		calls:     make(map[string]*callHandle),
	}
}

// WithBasePath prefixes every endpoint path with a shared path segment.
// It returns the client for chaining.
func (c *Client) WithBasePath(p string) *Client {
	c.basePath = strings.TrimRight(p, "/")
	return c
}

// WithBaseURL sets an absolute base URL, overriding the transport's own base
// URL. The joined URL always carries exactly one slash between the two parts.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// WithLogger sets the logger used for per-endpoint logging.
// If not set, slog.Default() is used.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	c.logger = l
	return c
}

// WithRequestInterceptor adds a client-level request interceptor, applied to
// every endpoint before its own interceptors.
func (c *Client) WithRequestInterceptor(ic RequestInterceptor) *Client {
	c.reqIcs = append(c.reqIcs, ic)
	return c
}

// WithResponseInterceptor adds a client-level response interceptor.
func (c *Client) WithResponseInterceptor(ic ResponseInterceptor) *Client {
	c.resIcs = append(c.resIcs, ic)
	return c
}

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// Register validates and stores an endpoint under a method name.
// Registering the same name twice replaces the endpoint and logs a warning.
func (c *Client) Register(name string, ep *Endpoint) error {
	if ep == nil {
		return NewError(CodeConfiguration, "nil endpoint")
	}
	if err := ep.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.endpoints[name]; exists {
		c.log().Warn("duplicate endpoint registration",
			slog.String("method", name))
	}
	c.endpoints[name] = ep
	return nil
}

// MustRegister is Register but panics on a malformed declaration. Intended
// for package-level endpoint tables built at startup.
func (c *Client) MustRegister(name string, ep *Endpoint) *Client {
	if err := c.Register(name, ep); err != nil {
		panic("veneer: " + err.Error())
	}
	return c
}

// Call invokes a registered endpoint. Arguments map positionally onto the
// endpoint's bindings in declaration order, so an endpoint declared
// Path("id").Query("page") is called as Call(ctx, "Name", id, page).
func (c *Client) Call(ctx context.Context, name string, args ...any) (*Response, error) {
	c.mu.Lock()
	ep, ok := c.endpoints[name]
	c.mu.Unlock()
	if !ok {
		return nil, Errorf(CodeConfiguration, "no endpoint registered as %q", name)
	}
	return c.execute(ctx, name, ep, args)
}

// Cancel signals cancellation to the latest in-flight call for a method.
// It is a no-op when nothing is pending under that name.
func (c *Client) Cancel(name string) {
	c.mu.Lock()
	h := c.calls[name]
	c.mu.Unlock()
	if h != nil {
		h.cancel()
	}
}

// Routes returns the registered method names with their verb and path
// template, for code generation and debugging.
func (c *Client) Routes() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.endpoints))
	for name, ep := range c.endpoints {
		out[name] = ep.verb + " " + ep.path
	}
	return out
}

// acquireCall derives the call context per the endpoint's cancellation
// strategy and returns a release function invoked when the call settles.
//
// Latest-wins keeps one handle per method name: acquiring cancels and
// replaces the previous handle. Allow-all derives an independent handle that
// is released on settlement, so the registry never accumulates settled
// entries.
func (c *Client) acquireCall(ctx context.Context, name string, strategy CancelStrategy) (context.Context, func()) {
	switch strategy {
	case CancelLatestWins:
		ctx, cancel := context.WithCancel(ctx)
		h := &callHandle{cancel: cancel}
		c.mu.Lock()
		if prev := c.calls[name]; prev != nil {
			prev.cancel()
		}
		c.calls[name] = h
		c.mu.Unlock()
		release := func() {
			c.mu.Lock()
			if c.calls[name] == h {
				delete(c.calls, name)
			}
			c.mu.Unlock()
			cancel()
		}
		return ctx, release
	case CancelAllowAll:
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel
	default:
		return ctx, func() {}
	}
}

// CallAs invokes a registered endpoint and decodes the envelope data into T.
func CallAs[T any](ctx context.Context, c *Client, name string, args ...any) (T, *Response, error) {
	var out T
	res, err := c.Call(ctx, name, args...)
	if err != nil {
		return out, res, err
	}
	if err := res.DecodeData(&out); err != nil {
		return out, res, err
	}
	return out, res, nil
}
