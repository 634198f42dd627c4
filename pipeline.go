package veneer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// execute runs one decorated-method invocation through the full pipeline:
// deprecation check, binding resolution, form encoding, URL assembly,
// logging, mock short-circuit, cancellation setup, request interceptors,
// dispatch with retry, response interceptors, transform, envelope.
//
// A single call produces exactly one request descriptor and one envelope
// (or an error); retry changes timing and attempt count, never the shape of
// the result.
func (c *Client) execute(ctx context.Context, name string, ep *Endpoint, args []any) (*Response, error) {
	logger := c.log().With(slog.String("method", name))

	// 1. Deprecation, before any other activity.
	if d := ep.deprecated; d != nil {
		if d.strict {
			return nil, Errorf(CodeDeprecated, "%s is deprecated: %s", name, d.message)
		}
		logger.Warn("deprecated endpoint called", slog.String("notice", d.message))
	}

	// 2. Bindings.
	rp, err := resolveParams(ep, args)
	if err != nil {
		return nil, err
	}

	// 3. Form encoding overrides any body binding.
	body := rp.body
	if ep.form && len(rp.fields) > 0 {
		body = encodeForm(rp.fields)
		rp.headers["Content-Type"] = "application/x-www-form-urlencoded"
	}

	// 4. URL assembly.
	req := &Request{
		Method:           ep.verb,
		URL:              c.requestURL(rp),
		Headers:          rp.headers,
		Body:             body,
		ResponseType:     ep.respType,
		WithCredentials:  ep.withCredentials,
		UploadProgress:   rp.upload,
		DownloadProgress: rp.download,
	}

	// 5. Pre-dispatch log.
	if ep.logging {
		attrs := []any{
			slog.String("verb", req.Method),
			slog.String("url", req.URL),
		}
		if len(req.Headers) > 0 {
			attrs = append(attrs, slog.Any("headers", req.Headers))
		}
		if req.Body != nil {
			attrs = append(attrs, slog.Any("body", req.Body))
		}
		logger.Info("request", attrs...)
	}

	// 6. Mock short-circuit.
	if m := ep.mock; m != nil && m.enabled() {
		payload, err := m.payload(ctx, args)
		if err != nil {
			return nil, err
		}
		if m.PassThrough {
			// The real call is issued for observability only.
			if _, err := c.transport.Do(ctx, req); err != nil && ep.logging {
				logger.Warn("mock pass-through dispatch failed", slog.Any("error", err))
			}
		}
		res := &Response{Data: payload, Status: m.status(), Headers: map[string]string{}}
		if ep.logging {
			logger.Info("success", slog.Int("status", res.Status), slog.Bool("mock", true))
		}
		return res, nil
	}

	// 7. Cancellation registry.
	ctx, release := c.acquireCall(ctx, name, ep.cancel)
	defer release()

	// 8. Request interceptors, client-level first.
	req, err = applyRequestInterceptors(ctx, req, concat(c.reqIcs, ep.reqIcs))
	if err != nil {
		return nil, err
	}

	// 9. Dispatch with retry / error handler.
	res, err := c.dispatch(ctx, logger, ep, req)
	if err != nil {
		if ep.logging {
			logger.Error("request failed",
				slog.String("verb", req.Method),
				slog.String("url", req.URL),
				slog.Any("error", err))
		}
		return nil, err
	}

	// 10. Response interceptors.
	res, err = applyResponseInterceptors(ctx, res, concat(c.resIcs, ep.resIcs))
	if err != nil {
		if ep.logging {
			logger.Error("request failed",
				slog.String("verb", req.Method),
				slog.String("url", req.URL),
				slog.Any("error", err))
		}
		return nil, err
	}

	// 11. Success log.
	if ep.logging {
		logger.Info("success", slog.Int("status", res.Status))
	}

	// 12. Transform.
	if ep.transform != nil {
		data, err := ep.transform(ctx, res.Data)
		if err != nil {
			return nil, err
		}
		res.Data = data
	}

	// 13. Envelope invariants.
	if res.Headers == nil {
		res.Headers = map[string]string{}
	}
	return res, nil
}

// requestURL joins base path, substituted template and encoded query, then
// applies the client's absolute base-URL override with exactly one slash.
func (c *Client) requestURL(rp *resolved) string {
	u := c.basePath + rp.path
	if qs := encodeQuery(rp.query); qs != "" {
		u += "?" + qs
	}
	if c.baseURL != "" {
		u = c.baseURL + "/" + strings.TrimLeft(u, "/")
	}
	return u
}

// dispatch issues the request. An error handler, when present, takes
// precedence over the retry policy; otherwise failures that pass the retry
// predicate are retried with capped exponential backoff.
func (c *Client) dispatch(ctx context.Context, logger *slog.Logger, ep *Endpoint, req *Request) (*Response, error) {
	if ep.errHandler != nil {
		res, err := c.transport.Do(ctx, req)
		if err == nil {
			return res, nil
		}
		hres, herr := ep.errHandler(ctx, err)
		if herr != nil {
			return nil, herr
		}
		if hres != nil {
			return hres, nil
		}
		return emptyResponse(), nil
	}

	if p := ep.retry; p != nil {
		var res *Response
		operation := func() error {
			r, err := c.transport.Do(ctx, req)
			if err != nil {
				if !p.shouldRetry(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			res = r
			return nil
		}
		notify := func(err error, delay time.Duration) {
			if ep.logging {
				logger.Warn("retrying request",
					slog.String("verb", req.Method),
					slog.String("url", req.URL),
					slog.Duration("delay", delay),
					slog.Any("error", err))
			}
		}
		if err := backoff.RetryNotify(operation, p.newBackOff(ctx), notify); err != nil {
			return nil, err
		}
		return res, nil
	}

	return c.transport.Do(ctx, req)
}

func concat[T any](a, b []T) []T {
	if len(b) == 0 {
		return a
	}
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
