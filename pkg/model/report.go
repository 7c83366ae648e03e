package model

import "time"

// FailureBodyPrefix starts the body of every failing report.
const FailureBodyPrefix = "❌ Test failed with error:\n"

// Report is the outcome of one probe run. Err is nil exactly when Success is true.
type Report struct {
	Success    bool
	Body       string
	Err        *ProbeError
	RunID      string
	StatusCode int
	StartedAt  time.Time
	FinishedAt time.Time
}

func SuccessReport(body string) Report {
	return Report{Success: true, Body: body}
}

func FailureReport(err *ProbeError) Report {
	report := Report{Success: false, Err: err}
	if err != nil {
		report.Body = FailureBodyPrefix + err.Error()
	} else {
		report.Body = FailureBodyPrefix + "unknown error"
	}
	return report
}

func (r Report) Kind() ErrorKind {
	if r.Err == nil {
		return ""
	}
	return r.Err.Kind
}

func (r Report) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
