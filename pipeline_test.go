package veneer

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records every descriptor it receives and answers with a
// canned handler, or 200/{"ok":true} by default.
type fakeTransport struct {
	mu      sync.Mutex
	reqs    []*Request
	handler func(ctx context.Context, req *Request) (*Response, error)
}

func (f *fakeTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.handler != nil {
		return f.handler(ctx, req)
	}
	return &Response{Data: map[string]any{"ok": true}, Status: 200, Headers: map[string]string{}}, nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func (f *fakeTransport) last() *Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		return nil
	}
	return f.reqs[len(f.reqs)-1]
}

func newTestClient(t *testing.T, name string, ep *Endpoint) (*Client, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	c := NewClient(ft)
	require.NoError(t, c.Register(name, ep))
	return c, ft
}

func TestPathSubstitution(t *testing.T) {
	c, ft := newTestClient(t, "GetUser", Get("/users/:id").Path("id"))

	_, err := c.Call(context.Background(), "GetUser", "123")
	require.NoError(t, err)

	req := ft.last()
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/users/123", req.URL)
	assert.NotContains(t, req.URL, ":")
}

func TestPathSubstitutionMultiplePlaceholders(t *testing.T) {
	c, ft := newTestClient(t, "GetPost",
		Get("/users/:user/posts/:post").Path("user").Path("post"))

	_, err := c.Call(context.Background(), "GetPost", "42", "7")
	require.NoError(t, err)
	assert.Equal(t, "/users/42/posts/7", ft.last().URL)
}

func TestQuerySkipsNilValues(t *testing.T) {
	c, ft := newTestClient(t, "Search", Get("/search").Query("name").Query("age"))

	_, err := c.Call(context.Background(), "Search", "John", nil)
	require.NoError(t, err)

	url := ft.last().URL
	assert.Contains(t, url, "name=John")
	assert.NotContains(t, url, "age")

	var agePtr *int
	_, err = c.Call(context.Background(), "Search", "John", agePtr)
	require.NoError(t, err)
	assert.NotContains(t, ft.last().URL, "age")
}

func TestTwoQueryParams(t *testing.T) {
	c, ft := newTestClient(t, "List", Get("/items").Query("page").Query("limit"))

	_, err := c.Call(context.Background(), "List", 1, 10)
	require.NoError(t, err)

	url := ft.last().URL
	assert.Contains(t, url, "page=1")
	assert.Contains(t, url, "limit=10")
	assert.Contains(t, url, "&")
}

func TestQuerySpacesUsePercentTwenty(t *testing.T) {
	c, ft := newTestClient(t, "Search", Get("/search").Query("q"))

	_, err := c.Call(context.Background(), "Search", "a b")
	require.NoError(t, err)
	assert.Contains(t, ft.last().URL, "q=a%20b")
	assert.NotContains(t, ft.last().URL, "+")
}

func TestQueryMapBindings(t *testing.T) {
	c, ft := newTestClient(t, "Filter", Get("/users").QueryMap())

	_, err := c.Call(context.Background(), "Filter", map[string]any{
		"name": "John",
		"age":  nil,
	})
	require.NoError(t, err)
	assert.Contains(t, ft.last().URL, "name=John")
	assert.NotContains(t, ft.last().URL, "age")

	type filter struct {
		Name  string `schema:"name"`
		Limit int    `schema:"limit"`
	}
	_, err = c.Call(context.Background(), "Filter", filter{Name: "Ann", Limit: 5})
	require.NoError(t, err)
	assert.Contains(t, ft.last().URL, "name=Ann")
	assert.Contains(t, ft.last().URL, "limit=5")
}

func TestHeaderBinding(t *testing.T) {
	c, ft := newTestClient(t, "Get", Get("/x").Header("X-Trace"))

	_, err := c.Call(context.Background(), "Get", "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", ft.last().Headers["X-Trace"])
}

func TestFormURLEncodedBody(t *testing.T) {
	c, ft := newTestClient(t, "Login",
		Post("/login").FormURLEncoded().Field("email").Field("password"))

	_, err := c.Call(context.Background(), "Login", "a@b.com", "secret")
	require.NoError(t, err)

	req := ft.last()
	assert.Equal(t, "email=a%40b.com&password=secret", req.Body)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Headers["Content-Type"])
}

func TestFormOverridesBodyBinding(t *testing.T) {
	c, ft := newTestClient(t, "Login",
		Post("/login").FormURLEncoded().Body().Field("user"))

	_, err := c.Call(context.Background(), "Login", map[string]any{"ignored": true}, "ann")
	require.NoError(t, err)
	assert.Equal(t, "user=ann", ft.last().Body)
}

func TestBasePathPrefix(t *testing.T) {
	ft := &fakeTransport{}
	c := NewClient(ft).WithBasePath("/api/v1/")
	require.NoError(t, c.Register("Get", Get("/users/:id").Path("id")))

	_, err := c.Call(context.Background(), "Get", "9")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/users/9", ft.last().URL)
}

func TestBaseURLOverrideSingleSlash(t *testing.T) {
	ft := &fakeTransport{}
	c := NewClient(ft).WithBaseURL("https://other.example.com//")
	require.NoError(t, c.Register("Get", Get("/users").Query("page")))

	_, err := c.Call(context.Background(), "Get", 2)
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com/users?page=2", ft.last().URL)
}

func TestDeprecatedStrictFailsBeforeDispatch(t *testing.T) {
	c, ft := newTestClient(t, "Old", Get("/old").DeprecatedStrict("use /new"))

	_, err := c.Call(context.Background(), "Old")
	require.Error(t, err)
	assert.Equal(t, CodeDeprecated, CodeOf(err))
	assert.Contains(t, err.Error(), "use /new")
	assert.Equal(t, 0, ft.count())
}

func TestDeprecatedNonStrictStillDispatches(t *testing.T) {
	c, ft := newTestClient(t, "Old", Get("/old").Deprecated("use /new"))

	_, err := c.Call(context.Background(), "Old")
	require.NoError(t, err)
	assert.Equal(t, 1, ft.count())
}

func TestMockShortCircuit(t *testing.T) {
	c, ft := newTestClient(t, "Get",
		Get("/users/:id").Path("id").WithMock(Mock{
			Data:   map[string]any{"id": 1},
			Status: 404,
		}))

	res, err := c.Call(context.Background(), "Get", "1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 1}, res.Data)
	assert.Equal(t, 404, res.Status)
	assert.Equal(t, 0, ft.count())
}

func TestMockDisabledInProduction(t *testing.T) {
	t.Setenv(envProduction, "production")
	c, ft := newTestClient(t, "Get", Get("/x").WithMock(Mock{Data: "mocked"}))

	res, err := c.Call(context.Background(), "Get")
	require.NoError(t, err)
	assert.Equal(t, 1, ft.count())
	assert.NotEqual(t, "mocked", res.Data)
}

func TestMockComputedPayload(t *testing.T) {
	c, _ := newTestClient(t, "Get",
		Get("/users/:id").Path("id").WithMock(Mock{
			DataFunc: func(ctx context.Context, args []any) (any, error) {
				return map[string]any{"id": args[0]}, nil
			},
		}))

	res, err := c.Call(context.Background(), "Get", "7")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "7"}, res.Data)
	assert.Equal(t, 200, res.Status)
}

func TestMockPassThroughStillDispatches(t *testing.T) {
	c, ft := newTestClient(t, "Get",
		Get("/x").WithMock(Mock{Data: "mocked", PassThrough: true}))

	res, err := c.Call(context.Background(), "Get")
	require.NoError(t, err)
	assert.Equal(t, "mocked", res.Data)
	assert.Equal(t, 1, ft.count())
}

func TestMockIdempotence(t *testing.T) {
	c, _ := newTestClient(t, "Get",
		Get("/x").WithMock(Mock{Data: map[string]any{"n": 1.0}, Status: 201}))

	a, err := c.Call(context.Background(), "Get")
	require.NoError(t, err)
	b, err := c.Call(context.Background(), "Get")
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
	assert.Equal(t, a.Status, b.Status)
}

func TestRetryAttemptBound(t *testing.T) {
	ft := &fakeTransport{}
	ft.handler = func(ctx context.Context, req *Request) (*Response, error) {
		return nil, statusError(&Response{Status: 503, Headers: map[string]string{}})
	}
	c := NewClient(ft)
	require.NoError(t, c.Register("Get", Get("/x").WithRetry(RetryPolicy{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		MaxDelay:  2 * time.Millisecond,
	})))

	_, err := c.Call(context.Background(), "Get")
	require.Error(t, err)
	assert.Equal(t, CodeStatus, CodeOf(err))
	assert.Equal(t, 503, StatusOf(err))
	assert.Equal(t, 4, ft.count())
}

func TestRetryStopsOnNonRetryableStatus(t *testing.T) {
	ft := &fakeTransport{}
	ft.handler = func(ctx context.Context, req *Request) (*Response, error) {
		return nil, statusError(&Response{Status: 404, Headers: map[string]string{}})
	}
	c := NewClient(ft)
	require.NoError(t, c.Register("Get", Get("/x").WithRetry(RetryPolicy{
		Attempts:  3,
		BaseDelay: time.Millisecond,
	})))

	_, err := c.Call(context.Background(), "Get")
	require.Error(t, err)
	assert.Equal(t, 404, StatusOf(err))
	assert.Equal(t, 1, ft.count())
}

func TestRetryCustomPredicate(t *testing.T) {
	ft := &fakeTransport{}
	ft.handler = func(ctx context.Context, req *Request) (*Response, error) {
		return nil, statusError(&Response{Status: 429, Headers: map[string]string{}})
	}
	c := NewClient(ft)
	require.NoError(t, c.Register("Get", Get("/x").WithRetry(RetryPolicy{
		Attempts:  2,
		BaseDelay: time.Millisecond,
		RetryIf:   func(err error) bool { return StatusOf(err) == 429 },
	})))

	_, err := c.Call(context.Background(), "Get")
	require.Error(t, err)
	assert.Equal(t, 3, ft.count())
}

func TestErrorHandlerValueBecomesEnvelope(t *testing.T) {
	ft := &fakeTransport{}
	ft.handler = func(ctx context.Context, req *Request) (*Response, error) {
		return nil, NewError(CodeTransport, "boom")
	}
	c := NewClient(ft)
	require.NoError(t, c.Register("Get", Get("/x").OnError(
		func(ctx context.Context, err error) (*Response, error) {
			return &Response{Data: "fallback", Status: 200, Headers: map[string]string{}}, nil
		})))

	res, err := c.Call(context.Background(), "Get")
	require.NoError(t, err)
	assert.Equal(t, "fallback", res.Data)
}

func TestErrorHandlerSuppressionYieldsEmptyEnvelope(t *testing.T) {
	ft := &fakeTransport{}
	ft.handler = func(ctx context.Context, req *Request) (*Response, error) {
		return nil, NewError(CodeTransport, "boom")
	}
	c := NewClient(ft)
	require.NoError(t, c.Register("Get", Get("/x").OnError(
		func(ctx context.Context, err error) (*Response, error) {
			return nil, nil
		})))

	res, err := c.Call(context.Background(), "Get")
	require.NoError(t, err)
	assert.Nil(t, res.Data)
	assert.Equal(t, 0, res.Status)
	assert.NotNil(t, res.Headers)
}

func TestErrorHandlerRethrowPropagates(t *testing.T) {
	ft := &fakeTransport{}
	ft.handler = func(ctx context.Context, req *Request) (*Response, error) {
		return nil, NewError(CodeTransport, "boom")
	}
	c := NewClient(ft)
	require.NoError(t, c.Register("Get", Get("/x").OnError(
		func(ctx context.Context, err error) (*Response, error) {
			return nil, err
		})))

	_, err := c.Call(context.Background(), "Get")
	require.Error(t, err)
	assert.Equal(t, CodeTransport, CodeOf(err))
}

func TestErrorHandlerPreemptsRetry(t *testing.T) {
	ft := &fakeTransport{}
	ft.handler = func(ctx context.Context, req *Request) (*Response, error) {
		return nil, NewError(CodeTransport, "boom")
	}
	c := NewClient(ft)
	require.NoError(t, c.Register("Get", Get("/x").
		WithRetry(RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}).
		OnError(func(ctx context.Context, err error) (*Response, error) {
			return nil, nil
		})))

	_, err := c.Call(context.Background(), "Get")
	require.NoError(t, err)
	assert.Equal(t, 1, ft.count())
}

func TestLatestWinsCancellation(t *testing.T) {
	var calls atomic.Int32
	ft := &fakeTransport{}
	ft.handler = func(ctx context.Context, req *Request) (*Response, error) {
		if calls.Add(1) == 1 {
			select {
			case <-ctx.Done():
				return nil, wrapError(CodeCanceled, ctx.Err())
			case <-time.After(5 * time.Second):
				return nil, NewError(CodeInternal, "first call was never canceled")
			}
		}
		return &Response{Data: "second", Status: 200, Headers: map[string]string{}}, nil
	}
	c := NewClient(ft)
	require.NoError(t, c.Register("Get", Get("/x").CancelPrevious()))

	errA := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), "Get")
		errA <- err
	}()

	// Wait until call A is in flight before issuing call B.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	res, err := c.Call(context.Background(), "Get")
	require.NoError(t, err)
	assert.Equal(t, "second", res.Data)

	select {
	case err := <-errA:
		require.Error(t, err)
		assert.Equal(t, CodeCanceled, CodeOf(err))
	case <-time.After(time.Second):
		t.Fatal("call A did not settle")
	}
}

func TestAllowAllDoesNotCancelEarlierCalls(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	ft := &fakeTransport{}
	ft.handler = func(ctx context.Context, req *Request) (*Response, error) {
		if calls.Add(1) == 1 {
			select {
			case <-ctx.Done():
				return nil, wrapError(CodeCanceled, ctx.Err())
			case <-release:
				return &Response{Data: "first", Status: 200, Headers: map[string]string{}}, nil
			}
		}
		return &Response{Data: "second", Status: 200, Headers: map[string]string{}}, nil
	}
	c := NewClient(ft)
	require.NoError(t, c.Register("Get", Get("/x").CancelAllowAll()))

	resA := make(chan *Response, 1)
	go func() {
		res, _ := c.Call(context.Background(), "Get")
		resA <- res
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	_, err := c.Call(context.Background(), "Get")
	require.NoError(t, err)

	close(release)
	select {
	case res := <-resA:
		require.NotNil(t, res)
		assert.Equal(t, "first", res.Data)
	case <-time.After(time.Second):
		t.Fatal("call A did not settle")
	}

	// Settled handles are evicted, so nothing lingers in the registry.
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.calls)
}

func TestRequestInterceptorsRunClientFirst(t *testing.T) {
	ft := &fakeTransport{}
	c := NewClient(ft).
		WithRequestInterceptor(func(ctx context.Context, req *Request) (*Request, error) {
			req.Headers["X-Order"] = "client"
			req.Headers["X-Client"] = "yes"
			return req, nil
		})
	require.NoError(t, c.Register("Get", Get("/x").
		OnRequest(func(ctx context.Context, req *Request) (*Request, error) {
			req.Headers["X-Order"] = "endpoint"
			return req, nil
		})))

	_, err := c.Call(context.Background(), "Get")
	require.NoError(t, err)
	assert.Equal(t, "endpoint", ft.last().Headers["X-Order"])
	assert.Equal(t, "yes", ft.last().Headers["X-Client"])
}

func TestResponseInterceptorAndTransform(t *testing.T) {
	ft := &fakeTransport{}
	ft.handler = func(ctx context.Context, req *Request) (*Response, error) {
		return &Response{Data: "value", Status: 200, Headers: map[string]string{}}, nil
	}
	c := NewClient(ft)
	require.NoError(t, c.Register("Get", Get("/x").
		OnResponse(func(ctx context.Context, res *Response) (*Response, error) {
			res.Headers["X-Seen"] = "1"
			return res, nil
		}).
		Transform(func(ctx context.Context, data any) (any, error) {
			return strings.ToUpper(data.(string)), nil
		})))

	res, err := c.Call(context.Background(), "Get")
	require.NoError(t, err)
	assert.Equal(t, "VALUE", res.Data)
	assert.Equal(t, "1", res.Headers["X-Seen"])
}

func TestProgressBindingsReachTransport(t *testing.T) {
	c, ft := newTestClient(t, "Up",
		Post("/upload").Body().UploadProgress().DownloadProgress())

	var seen int
	_, err := c.Call(context.Background(), "Up", "payload", func(p int) { seen = p }, nil)
	require.NoError(t, err)
	req := ft.last()
	assert.NotNil(t, req.UploadProgress)
	assert.Nil(t, req.DownloadProgress)
	req.UploadProgress(42)
	assert.Equal(t, 42, seen)
}

func TestArityMismatchRejected(t *testing.T) {
	c, ft := newTestClient(t, "Get", Get("/users/:id").Path("id"))

	_, err := c.Call(context.Background(), "Get")
	require.Error(t, err)
	assert.Equal(t, CodeConfiguration, CodeOf(err))
	assert.Equal(t, 0, ft.count())
}

func TestUnknownEndpointRejected(t *testing.T) {
	c := NewClient(&fakeTransport{})
	_, err := c.Call(context.Background(), "Nope")
	require.Error(t, err)
	assert.Equal(t, CodeConfiguration, CodeOf(err))
}
