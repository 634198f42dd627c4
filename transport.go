package veneer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// Request is the fully assembled request descriptor handed to a Transport.
// It is constructed fresh on every call and never shared across calls.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string

	// Body may be nil, []byte, string, io.Reader, or any JSON-marshalable
	// value. The transport encodes it; JSON bodies get an application/json
	// content type unless one is already set.
	Body any

	ResponseType    ResponseType
	WithCredentials bool

	UploadProgress   ProgressFunc
	DownloadProgress ProgressFunc
}

// Transport issues one assembled request and returns the normalized envelope,
// or an error when no usable response was produced. Responses with status
// >= 400 are returned as CodeStatus errors carrying the envelope.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport is the net/http-backed transport.
type HTTPTransport struct {
	baseURL     string
	client      *http.Client
	credentials func(*http.Request)
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPClient sets the underlying *http.Client. A client with a cookie jar
// makes WithCredentials endpoints carry cookies across calls.
func WithHTTPClient(c *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) { t.client = c }
}

// WithCredentialFunc installs the hook applied to outgoing requests of
// endpoints declared WithCredentials, e.g. to set an Authorization header.
func WithCredentialFunc(fn func(*http.Request)) HTTPTransportOption {
	return func(t *HTTPTransport) { t.credentials = fn }
}

// NewHTTPTransport creates a transport. Relative request URLs are resolved
// against baseURL; absolute request URLs (set via the client's base-URL
// override) are used as-is.
func NewHTTPTransport(baseURL string, opts ...HTTPTransportOption) *HTTPTransport {
	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	u := req.URL
	if !strings.Contains(u, "://") {
		u = t.baseURL + "/" + strings.TrimLeft(u, "/")
	}

	body, length, ctype, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	if body != nil && req.UploadProgress != nil {
		body = newProgressReader(body, length, req.UploadProgress)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, wrapError(CodeTransport, err)
	}
	if length >= 0 {
		httpReq.ContentLength = length
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if ctype != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", ctype)
	}
	if req.WithCredentials && t.credentials != nil {
		t.credentials(httpReq)
	}

	httpRes, err := t.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, wrapError(CodeCanceled, err)
		}
		return nil, wrapError(CodeTransport, err)
	}
	defer httpRes.Body.Close()

	var reader io.Reader = httpRes.Body
	if req.DownloadProgress != nil {
		reader = newProgressReader(reader, httpRes.ContentLength, req.DownloadProgress)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, wrapError(CodeTransport, err)
	}

	data, err := decodeData(raw, req.ResponseType)
	if err != nil {
		return nil, err
	}

	res := &Response{
		Data:    data,
		Status:  httpRes.StatusCode,
		Headers: flattenHeaders(httpRes.Header),
	}
	if res.Status >= 400 {
		return nil, statusError(res)
	}
	return res, nil
}

// encodeBody turns the descriptor body into a reader, its length when known
// (-1 otherwise), and an implied content type.
func encodeBody(body any) (io.Reader, int64, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, -1, "", nil
	case []byte:
		return bytes.NewReader(b), int64(len(b)), "", nil
	case string:
		return strings.NewReader(b), int64(len(b)), "", nil
	case io.Reader:
		return b, -1, "", nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, 0, "", Errorf(CodeConfiguration, "encode request body: %v", err)
		}
		return bytes.NewReader(raw), int64(len(raw)), "application/json", nil
	}
}

// decodeData decodes the body per the response-type hint.
func decodeData(raw []byte, hint ResponseType) (any, error) {
	switch hint {
	case ResponseText:
		return string(raw), nil
	case ResponseBytes:
		return raw, nil
	default:
		if len(raw) == 0 {
			return nil, nil
		}
		var data any
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, Errorf(CodeTransport, "decode response body: %v", err)
		}
		return data, nil
	}
}

// flattenHeaders reduces response headers to string-valued entries.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}
