// Package report collects the per-item problems of a doctool run and renders the
// end-of-run diagnostic summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Outcome is the final result state of a run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageDiscover       Stage = "discover"
	StageParse          Stage = "parse"
	StageResolve        Stage = "resolve"
	StageFilter         Stage = "filter"
	StageAssign         Stage = "assign"
	StageGenerateHTML   Stage = "generate_html"
	StageGenerateDocSet Stage = "generate_docset"
	StageVerifyLinks    Stage = "verify_links"
)

// IssueCode enumerates machine-parseable issue identifiers.
// These codes are a stable contract and should only be appended.
type IssueCode string

const (
	IssueCompilerDiagnostic    IssueCode = "COMPILER_DIAGNOSTIC"
	IssueCompilerWarning       IssueCode = "COMPILER_WARNING"
	IssueFrontEndFailure       IssueCode = "FRONT_END_FAILURE"
	IssueSourceUnreadable      IssueCode = "SOURCE_UNREADABLE"
	IssueCacheUnavailable      IssueCode = "CACHE_UNAVAILABLE"
	IssueUnresolvedSuperclass  IssueCode = "UNRESOLVED_SUPERCLASS"
	IssueUnresolvedProtocol    IssueCode = "UNRESOLVED_PROTOCOL"
	IssueUnresolvedCategory    IssueCode = "UNRESOLVED_CATEGORY_CLASS"
	IssueDuplicateDeclaration  IssueCode = "DUPLICATE_DECLARATION"
	IssueUnmatchedParamComment IssueCode = "UNMATCHED_PARAM_COMMENT"
	IssueBuilderWarning        IssueCode = "BUILDER_WARNING"
	IssueGenerationFailure     IssueCode = "GENERATION_FAILURE"
	IssueBrokenLink            IssueCode = "BROKEN_LINK"
	IssueCanceled              IssueCode = "RUN_CANCELED"
	IssueRunAborted            IssueCode = "RUN_ABORTED"
)

// Severity of an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one recorded problem. Subject is the file path or node id it concerns.
type Issue struct {
	Code     IssueCode `json:"code"`
	Stage    Stage     `json:"stage"`
	Severity Severity  `json:"severity"`
	Subject  string    `json:"subject,omitempty"`
	Message  string    `json:"message"`
}

func (i Issue) String() string {
	if i.Subject == "" {
		return fmt.Sprintf("%s [%s] %s", i.Severity, i.Code, i.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", i.Severity, i.Code, i.Subject, i.Message)
}

// Counters are the quantitative results of a run.
type Counters struct {
	FilesDiscovered int `json:"filesDiscovered"`
	FilesParsed     int `json:"filesParsed"`
	FilesFailed     int `json:"filesFailed"`
	CacheHits       int `json:"cacheHits"`
	CacheMisses     int `json:"cacheMisses"`
	NodesBuilt      int `json:"nodesBuilt"`
	NodesRetained   int `json:"nodesRetained"`
	PagesWritten    int `json:"pagesWritten"`
	PagesUnchanged  int `json:"pagesUnchanged"`
	PagesFailed     int `json:"pagesFailed"`
}

// Report is safe for concurrent use.
type Report struct {
	mu sync.Mutex

	SchemaVersion  int                     `json:"schemaVersion"`
	Start          time.Time               `json:"start"`
	End            time.Time               `json:"end"`
	Outcome        Outcome                 `json:"outcome"`
	Counters       Counters                `json:"counters"`
	StageDurations map[Stage]time.Duration `json:"stageDurations"`
	Issues         []Issue                 `json:"issues"`
}

// New starts a report.
func New() *Report {
	return &Report{
		SchemaVersion:  1,
		Start:          time.Now(),
		StageDurations: make(map[Stage]time.Duration),
	}
}

// Add records an issue.
func (r *Report) Add(issue Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Issues = append(r.Issues, issue)
}

// Warn records a warning issue.
func (r *Report) Warn(code IssueCode, stage Stage, subject, msg string) {
	r.Add(Issue{Code: code, Stage: stage, Severity: SeverityWarning, Subject: subject, Message: msg})
}

// Error records an error issue.
func (r *Report) Error(code IssueCode, stage Stage, subject, msg string) {
	r.Add(Issue{Code: code, Stage: stage, Severity: SeverityError, Subject: subject, Message: msg})
}

// Count applies fn to the counters under the report lock.
func (r *Report) Count(fn func(*Counters)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.Counters)
}

// ObserveStage records how long a stage took.
func (r *Report) ObserveStage(stage Stage, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StageDurations[stage] = d
}

// IssuesWith returns a copy of the issues with the given code.
func (r *Report) IssuesWith(code IssueCode) []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Issue
	for _, i := range r.Issues {
		if i.Code == code {
			out = append(out, i)
		}
	}
	return out
}

// IssueCount returns the number of issues recorded so far.
func (r *Report) IssueCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Issues)
}

// HasFailures reports whether any issue was recorded.
func (r *Report) HasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Issues) > 0
}

// Finish stamps the end time and derives the outcome. canceled marks an interrupted run.
func (r *Report) Finish(canceled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.End = time.Now()
	switch {
	case canceled:
		r.Outcome = OutcomeCanceled
	case r.countSeverity(SeverityError) > 0:
		r.Outcome = OutcomeFailed
	case len(r.Issues) > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
}

func (r *Report) countSeverity(s Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == s {
			n++
		}
	}
	return n
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.Counters
	return fmt.Sprintf("files=%d parsed=%d failed=%d cache_hits=%d nodes=%d retained=%d pages=%d unchanged=%d page_failures=%d errors=%d warnings=%d duration=%s outcome=%s",
		c.FilesDiscovered, c.FilesParsed, c.FilesFailed, c.CacheHits, c.NodesBuilt, c.NodesRetained,
		c.PagesWritten, c.PagesUnchanged, c.PagesFailed,
		r.countSeverity(SeverityError), r.countSeverity(SeverityWarning),
		r.End.Sub(r.Start).Truncate(time.Millisecond), r.Outcome)
}

// Details lists affected files and nodes, grouped by issue code. Empty when there were no issues.
func (r *Report) Details() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Issues) == 0 {
		return ""
	}
	byCode := make(map[IssueCode][]Issue)
	for _, i := range r.Issues {
		byCode[i.Code] = append(byCode[i.Code], i)
	}
	codes := make([]string, 0, len(byCode))
	for c := range byCode {
		codes = append(codes, string(c))
	}
	sort.Strings(codes)

	var b strings.Builder
	for _, c := range codes {
		issues := byCode[IssueCode(c)]
		fmt.Fprintf(&b, "%s (%d)\n", c, len(issues))
		for _, i := range issues {
			if i.Subject != "" {
				fmt.Fprintf(&b, "  %s: %s\n", i.Subject, i.Message)
			} else {
				fmt.Fprintf(&b, "  %s\n", i.Message)
			}
		}
	}
	return b.String()
}

// Persist writes the report as JSON to path atomically.
func (r *Report) Persist(path string) error {
	if r.End.IsZero() {
		r.Finish(false)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure report directory: %w", err)
	}
	r.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename report json: %w", err)
	}
	return nil
}
