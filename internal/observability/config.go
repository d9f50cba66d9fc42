// Package observability wires opt-in tracing and profiling into the server.
package observability

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	// ServiceName labels exported spans.
	ServiceName string
	// Endpoint is the OTLP/HTTP collector URL. Tracing stays off when empty.
	Endpoint string
	// EnablePprofTrace mounts the runtime trace handler under /debug/pprof/trace.
	EnablePprofTrace bool
}

// TracingEnabled reports whether Setup will register a tracer provider.
func (c Config) TracingEnabled() bool {
	return c.Endpoint != ""
}
