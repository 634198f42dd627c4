package veneer

import "encoding/json"

// Response is the normalized envelope returned by every call, whether it was
// produced by the transport or a mock short-circuit.
type Response struct {
	// Data is the decoded response body. For the default JSON response type
	// this is the result of unmarshaling into any (maps, slices, scalars);
	// for ResponseText it is a string, for ResponseBytes a []byte.
	Data any
	// Status is the HTTP status code, or the mock's configured status.
	Status int
	// Headers holds the response headers, reduced to string-valued entries.
	Headers map[string]string
}

// DecodeData decodes the envelope data into v.
//
// []byte data is unmarshaled directly; everything else goes through a JSON
// round-trip, which turns the generic decoded form back into typed structs.
func (r *Response) DecodeData(v any) error {
	if r.Data == nil {
		return nil
	}
	raw, ok := r.Data.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(r.Data)
		if err != nil {
			return wrapError(CodeInternal, err)
		}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return wrapError(CodeInternal, err)
	}
	return nil
}

// emptyResponse is returned when an error handler suppresses a failure
// without supplying a replacement envelope.
func emptyResponse() *Response {
	return &Response{
		Status:  0,
		Headers: map[string]string{},
	}
}
