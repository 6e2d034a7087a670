// Package trace provides a tracing subsystem for the aotc driver.
//
// Tracing records the phases of a partition run (manifest load, policy
// construction, plan evaluation per output module) to help diagnose slow or
// stuck runs.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	aotc plan --trace=- --trace-level=detail aotc.toml
//
// # Architecture
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer, dumped on failure
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only dumps on failure
//   - LevelPhase: driver and pass boundaries
//   - LevelDetail: per-module events
//   - LevelDebug: everything including per-entity events
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "evaluate", parentID)
//	defer span.End("")
package trace
