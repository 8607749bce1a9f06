package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// PageResult is what happened to one generated page.
type PageResult string

const (
	PageWritten   PageResult = "written"
	PageUnchanged PageResult = "unchanged"
	PageFailed    PageResult = "failed"
)

// Recorder defines observability hooks for runs, stages, parsing and generation.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncRunOutcome(outcome string) // success|warning|failed|canceled
	ObserveParseDuration(d time.Duration, cacheHit bool)
	IncCacheLookup(hit bool)
	SetParseConcurrency(n int)
	IncPageResult(generator string, result PageResult)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncRunOutcome(string)                       {}
func (NoopRecorder) ObserveParseDuration(time.Duration, bool)   {}
func (NoopRecorder) IncCacheLookup(bool)                        {}
func (NoopRecorder) SetParseConcurrency(int)                    {}
func (NoopRecorder) IncPageResult(string, PageResult)           {}
