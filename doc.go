// Package veneer is a declarative HTTP client: endpoints are registered once
// as verb + path-template descriptors with ordered parameter bindings, and
// invoked by name with positional arguments. Optional cross-cutting behaviors
// (logging, retry, cancellation, mocking, interceptors, transforms) compose
// per endpoint.
//
//	users := veneer.NewClient(veneer.NewHTTPTransport("https://api.example.com")).
//	    WithBasePath("/users").
//	    MustRegister("Get", veneer.Get("/:id").Path("id")).
//	    MustRegister("List", veneer.Get("").Query("page").Query("limit").WithRetry(veneer.RetryPolicy{Attempts: 3}))
//
//	user, _, err := veneer.CallAs[User](ctx, users, "Get", "123")
//
// The companion veneer CLI scans a folder of endpoint definitions and
// generates a static route manifest; see cmd/veneer.
package veneer
