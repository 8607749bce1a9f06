// Package metrics provides the observability hooks of a doctool run.
//
// Components receive a Recorder and call it unconditionally; NoopRecorder is the default
// so no nil checks are needed. The CLI swaps in a PrometheusRecorder when --metrics-file
// or --metrics-addr is given:
//
//	rec := metrics.NewPrometheusRecorder(nil)
//	runner := pipeline.Runner{Recorder: rec}
//	...
//	_ = rec.WriteTextfile("doctool.prom")
package metrics
