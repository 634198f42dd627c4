package veneer

import (
	"strings"
)

// bindingKind is the closed set of parameter binding kinds. Each call
// argument is routed into exactly one request field according to its kind.
type bindingKind int

const (
	bindQuery bindingKind = iota
	bindQueryMap
	bindPath
	bindBody
	bindHeader
	bindField
	bindUploadProgress
	bindDownloadProgress
)

func (k bindingKind) String() string {
	switch k {
	case bindQuery:
		return "query"
	case bindQueryMap:
		return "query-map"
	case bindPath:
		return "path"
	case bindBody:
		return "body"
	case bindHeader:
		return "header"
	case bindField:
		return "form-field"
	case bindUploadProgress:
		return "upload-progress"
	case bindDownloadProgress:
		return "download-progress"
	default:
		return "unknown"
	}
}

// binding maps one positional call argument to a request field.
type binding struct {
	kind bindingKind
	name string // key name for query, path, header and form-field bindings
}

// CancelStrategy controls how concurrent calls to the same method interact.
type CancelStrategy int

const (
	// CancelNone disables the cancellation registry (the default).
	CancelNone CancelStrategy = iota
	// CancelLatestWins cancels the previous in-flight call for the same
	// method before starting a new one.
	CancelLatestWins
	// CancelAllowAll gives each call its own independent handle, released
	// when the call settles.
	CancelAllowAll
)

// ResponseType hints how the transport should decode the response body.
type ResponseType int

const (
	// ResponseJSON decodes the body as JSON (the default).
	ResponseJSON ResponseType = iota
	// ResponseText returns the body as a string.
	ResponseText
	// ResponseBytes returns the raw body bytes.
	ResponseBytes
)

type deprecation struct {
	message string
	strict  bool
}

// Endpoint declares one HTTP operation: a verb, a path template with optional
// :name placeholders, an ordered list of parameter bindings, and any number of
// optional cross-cutting behaviors.
//
// Endpoints are built once and registered on a Client; they are immutable
// after registration.
type Endpoint struct {
	verb     string
	path     string
	bindings []binding

	form            bool
	logging         bool
	deprecated      *deprecation
	retry           *RetryPolicy
	cancel          CancelStrategy
	mock            *Mock
	respType        ResponseType
	withCredentials bool
	reqIcs          []RequestInterceptor
	resIcs          []ResponseInterceptor
	errHandler      ErrorHandler
	transform       TransformFunc
}

// NewEndpoint declares an operation with an explicit verb.
func NewEndpoint(verb, path string) *Endpoint {
	return &Endpoint{
		verb: strings.ToUpper(verb),
		path: path,
	}
}

// Get declares a GET operation.
func Get(path string) *Endpoint { return NewEndpoint("GET", path) }

// Post declares a POST operation.
func Post(path string) *Endpoint { return NewEndpoint("POST", path) }

// Put declares a PUT operation.
func Put(path string) *Endpoint { return NewEndpoint("PUT", path) }

// Patch declares a PATCH operation.
func Patch(path string) *Endpoint { return NewEndpoint("PATCH", path) }

// Delete declares a DELETE operation.
func Delete(path string) *Endpoint { return NewEndpoint("DELETE", path) }

// Query binds the next positional argument to a single query parameter.
// Nil values are dropped from the query string.
func (e *Endpoint) Query(name string) *Endpoint {
	e.bindings = append(e.bindings, binding{kind: bindQuery, name: name})
	return e
}

// QueryMap binds the next positional argument to the query string as a whole.
// The argument may be a map[string]any, url.Values, or a struct encoded via
// its schema tags. Nil-valued entries are dropped.
func (e *Endpoint) QueryMap() *Endpoint {
	e.bindings = append(e.bindings, binding{kind: bindQueryMap})
	return e
}

// Path binds the next positional argument to the :name placeholder in the
// path template.
func (e *Endpoint) Path(name string) *Endpoint {
	e.bindings = append(e.bindings, binding{kind: bindPath, name: name})
	return e
}

// Body binds the next positional argument to the request body. At most one
// Body binding may be declared per endpoint.
func (e *Endpoint) Body() *Endpoint {
	e.bindings = append(e.bindings, binding{kind: bindBody})
	return e
}

// Header binds the next positional argument to a request header.
func (e *Endpoint) Header(name string) *Endpoint {
	e.bindings = append(e.bindings, binding{kind: bindHeader, name: name})
	return e
}

// Field binds the next positional argument to a form field. Field bindings
// require FormURLEncoded.
func (e *Endpoint) Field(name string) *Endpoint {
	e.bindings = append(e.bindings, binding{kind: bindField, name: name})
	return e
}

// UploadProgress binds the next positional argument to an upload progress
// callback (a ProgressFunc, or nil to skip reporting).
func (e *Endpoint) UploadProgress() *Endpoint {
	e.bindings = append(e.bindings, binding{kind: bindUploadProgress})
	return e
}

// DownloadProgress binds the next positional argument to a download progress
// callback.
func (e *Endpoint) DownloadProgress() *Endpoint {
	e.bindings = append(e.bindings, binding{kind: bindDownloadProgress})
	return e
}

// FormURLEncoded serializes the collected Field bindings as
// application/x-www-form-urlencoded, overriding any Body binding.
func (e *Endpoint) FormURLEncoded() *Endpoint {
	e.form = true
	return e
}

// WithLogging enables structured request/success/error logs for this endpoint.
func (e *Endpoint) WithLogging() *Endpoint {
	e.logging = true
	return e
}

// Deprecated marks the endpoint deprecated: every call emits a warning log
// before dispatch.
func (e *Endpoint) Deprecated(message string) *Endpoint {
	e.deprecated = &deprecation{message: message}
	return e
}

// DeprecatedStrict marks the endpoint strictly deprecated: every call fails
// with a CodeDeprecated error before any transport activity.
func (e *Endpoint) DeprecatedStrict(message string) *Endpoint {
	e.deprecated = &deprecation{message: message, strict: true}
	return e
}

// WithRetry attaches a retry policy for failed dispatches.
func (e *Endpoint) WithRetry(p RetryPolicy) *Endpoint {
	e.retry = &p
	return e
}

// CancelPrevious enables latest-wins cancellation: starting a new call cancels
// the previous in-flight call to the same method.
func (e *Endpoint) CancelPrevious() *Endpoint {
	e.cancel = CancelLatestWins
	return e
}

// CancelAllowAll tracks a cancellation handle per call without touching
// earlier calls. Handles are released when the call settles.
func (e *Endpoint) CancelAllowAll() *Endpoint {
	e.cancel = CancelAllowAll
	return e
}

// WithMock short-circuits calls with a configured payload instead of
// dispatching to the transport. See Mock for the enablement rules.
func (e *Endpoint) WithMock(m Mock) *Endpoint {
	e.mock = &m
	return e
}

// ResponseAs sets the response decode hint passed to the transport.
func (e *Endpoint) ResponseAs(t ResponseType) *Endpoint {
	e.respType = t
	return e
}

// WithCredentials asks the transport to attach its configured credentials.
func (e *Endpoint) WithCredentials() *Endpoint {
	e.withCredentials = true
	return e
}

// OnRequest attaches a request interceptor. Endpoint interceptors run after
// client-level ones, in the order added.
func (e *Endpoint) OnRequest(ic RequestInterceptor) *Endpoint {
	e.reqIcs = append(e.reqIcs, ic)
	return e
}

// OnResponse attaches a response interceptor.
func (e *Endpoint) OnResponse(ic ResponseInterceptor) *Endpoint {
	e.resIcs = append(e.resIcs, ic)
	return e
}

// OnError attaches an error handler. When present it takes precedence over
// the retry policy.
func (e *Endpoint) OnError(h ErrorHandler) *Endpoint {
	e.errHandler = h
	return e
}

// Transform attaches a response-data transform, applied after response
// interceptors and before the envelope is returned.
func (e *Endpoint) Transform(fn TransformFunc) *Endpoint {
	e.transform = fn
	return e
}

// placeholders returns the :name placeholder names in declaration order.
func placeholders(path string) []string {
	var names []string
	for _, seg := range strings.Split(path, "/") {
		if name, ok := strings.CutPrefix(seg, ":"); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

// validate rejects malformed declarations at registration time rather than
// deferring to call time.
func (e *Endpoint) validate() error {
	if e.verb == "" {
		return NewError(CodeConfiguration, "endpoint verb must not be empty")
	}
	bodies := 0
	seenPath := map[string]bool{}
	known := map[string]bool{}
	for _, name := range placeholders(e.path) {
		known[name] = true
	}
	for _, b := range e.bindings {
		switch b.kind {
		case bindBody:
			bodies++
		case bindPath:
			if !known[b.name] {
				return Errorf(CodeConfiguration, "path binding %q has no :%s placeholder in %q", b.name, b.name, e.path)
			}
			if seenPath[b.name] {
				return Errorf(CodeConfiguration, "duplicate path binding %q", b.name)
			}
			seenPath[b.name] = true
		case bindField:
			if !e.form {
				return Errorf(CodeConfiguration, "form-field binding %q requires FormURLEncoded", b.name)
			}
		}
	}
	if bodies > 1 {
		return NewError(CodeConfiguration, "endpoint declares more than one body binding")
	}
	return nil
}
