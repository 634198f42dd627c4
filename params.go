package veneer

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/gorilla/schema"
)

// queryEncoder turns QueryMap structs into url.Values via `schema` tags.
var queryEncoder = schema.NewEncoder()

// pair is one ordered key/value entry for query strings and form bodies.
type pair struct {
	key   string
	value string
}

// resolved is the outcome of routing call arguments through the endpoint's
// bindings.
type resolved struct {
	query    []pair
	path     string
	body     any
	headers  map[string]string
	fields   []pair
	upload   ProgressFunc
	download ProgressFunc
}

// resolveParams routes each positional argument into its request field,
// following the bindings in declaration order.
func resolveParams(ep *Endpoint, args []any) (*resolved, error) {
	if len(args) != len(ep.bindings) {
		return nil, Errorf(CodeConfiguration, "endpoint declares %d bindings, got %d arguments", len(ep.bindings), len(args))
	}

	rp := &resolved{
		path:    ep.path,
		headers: map[string]string{},
	}
	for i, b := range ep.bindings {
		arg := args[i]
		switch b.kind {
		case bindQuery:
			if v, ok := formatValue(arg); ok {
				rp.query = append(rp.query, pair{b.name, v})
			}
		case bindQueryMap:
			pairs, err := expandQueryMap(arg)
			if err != nil {
				return nil, err
			}
			rp.query = append(rp.query, pairs...)
		case bindPath:
			v, ok := formatValue(arg)
			if !ok {
				return nil, Errorf(CodeConfiguration, "path parameter %q must not be nil", b.name)
			}
			rp.path = strings.ReplaceAll(rp.path, ":"+b.name, url.PathEscape(v))
		case bindBody:
			rp.body = arg
		case bindHeader:
			if v, ok := formatValue(arg); ok {
				rp.headers[b.name] = v
			}
		case bindField:
			if v, ok := formatValue(arg); ok {
				rp.fields = append(rp.fields, pair{b.name, v})
			}
		case bindUploadProgress:
			fn, err := progressArg(arg)
			if err != nil {
				return nil, err
			}
			rp.upload = fn
		case bindDownloadProgress:
			fn, err := progressArg(arg)
			if err != nil {
				return nil, err
			}
			rp.download = fn
		}
	}
	return rp, nil
}

// formatValue renders an argument as a string, reporting false for nil values
// (including typed nil pointers) so they are dropped.
func formatValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	return fmt.Sprintf("%v", rv.Interface()), true
}

// expandQueryMap flattens a QueryMap argument into ordered pairs. Maps and
// structs are emitted in sorted key order to keep the query deterministic.
func expandQueryMap(arg any) ([]pair, error) {
	switch m := arg.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return sortedPairs(m), nil
	case map[string][]string:
		return sortedPairs(m), nil
	case map[string]string:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]pair, 0, len(m))
		for _, k := range keys {
			pairs = append(pairs, pair{k, m[k]})
		}
		return pairs, nil
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var pairs []pair
		for _, k := range keys {
			if v, ok := formatValue(m[k]); ok {
				pairs = append(pairs, pair{k, v})
			}
		}
		return pairs, nil
	default:
		rv := reflect.ValueOf(arg)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return nil, nil
			}
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct {
			return nil, Errorf(CodeConfiguration, "query-map argument must be a map, url.Values or struct, got %T", arg)
		}
		vals := url.Values{}
		if err := queryEncoder.Encode(rv.Interface(), vals); err != nil {
			return nil, Errorf(CodeConfiguration, "encode query-map struct: %v", err)
		}
		return sortedPairs(vals), nil
	}
}

func sortedPairs(vals map[string][]string) []pair {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var pairs []pair
	for _, k := range keys {
		for _, v := range vals[k] {
			pairs = append(pairs, pair{k, v})
		}
	}
	return pairs
}

func progressArg(arg any) (ProgressFunc, error) {
	switch fn := arg.(type) {
	case nil:
		return nil, nil
	case ProgressFunc:
		return fn, nil
	case func(int):
		return fn, nil
	default:
		return nil, Errorf(CodeConfiguration, "progress argument must be a ProgressFunc, got %T", arg)
	}
}

// encodeQuery renders ordered query pairs, percent-encoding with %20 for
// spaces. The + form is reserved for the form-url-encoded body path.
func encodeQuery(pairs []pair) string {
	if len(pairs) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(queryEscape(p.key))
		sb.WriteByte('=')
		sb.WriteString(queryEscape(p.value))
	}
	return sb.String()
}

func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// encodeForm renders form fields in declaration order with the conventional
// application/x-www-form-urlencoded space-as-plus rule.
func encodeForm(fields []pair) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(f.key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(f.value))
	}
	return sb.String()
}
