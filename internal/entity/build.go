package entity

import "time"

// ExecResult is the outcome of one sandbox command.
type ExecResult struct {
	ExitCode int
	Output   string
}

// BuildAttempt records one `next build` run.
type BuildAttempt struct {
	Number    int
	ExitCode  int
	ErrorText string
	Elapsed   time.Duration
	TimedOut  bool
}

// BuildOutcome is the result of the build-fix loop. Files holds the final
// generated set, including any fixes applied.
type BuildOutcome struct {
	Success  bool
	Attempts []BuildAttempt
	Files    []GeneratedFile
	Usage    Usage
}
