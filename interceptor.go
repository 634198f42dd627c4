package veneer

import "context"

// RequestInterceptor runs after the request descriptor is assembled and before
// it is handed to the transport. It may mutate the descriptor in place or
// return a replacement; returning an error aborts the call.
//
//	ep.OnRequest(func(ctx context.Context, req *veneer.Request) (*veneer.Request, error) {
//	    req.Headers["Authorization"] = "Bearer " + token
//	    return req, nil
//	})
type RequestInterceptor func(ctx context.Context, req *Request) (*Request, error)

// ResponseInterceptor runs on the raw response before logging and transform.
// It may mutate the response in place or return a replacement.
type ResponseInterceptor func(ctx context.Context, res *Response) (*Response, error)

// ErrorHandler intercepts a terminal dispatch failure.
//
// Returning a non-nil response makes it the call's envelope. Returning
// (nil, nil) suppresses the error and yields a zero-status empty envelope.
// Returning an error propagates it to the caller.
type ErrorHandler func(ctx context.Context, err error) (*Response, error)

// TransformFunc reshapes the response data before the envelope is returned.
type TransformFunc func(ctx context.Context, data any) (any, error)

// applyRequestInterceptors runs interceptors in order. Client-level
// interceptors come first in the slice, endpoint-level ones after, mirroring
// the outer-to-inner chain order.
func applyRequestInterceptors(ctx context.Context, req *Request, interceptors []RequestInterceptor) (*Request, error) {
	for _, ic := range interceptors {
		next, err := ic(ctx, req)
		if err != nil {
			return nil, err
		}
		if next != nil {
			req = next
		}
	}
	return req, nil
}

func applyResponseInterceptors(ctx context.Context, res *Response, interceptors []ResponseInterceptor) (*Response, error) {
	for _, ic := range interceptors {
		next, err := ic(ctx, res)
		if err != nil {
			return nil, err
		}
		if next != nil {
			res = next
		}
	}
	return res, nil
}
