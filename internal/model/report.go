package model

import (
	"time"

	"github.com/google/uuid"
)

// CheckReport is the state and result of one duplicate-check run.
// Pipeline steps receive the same report and fill it in as they go.
//
// Design decision: We use a single struct that every step mutates rather
// than passing values between steps, so that a failed run still carries
// everything gathered before the failure (useful for logs and history).
type CheckReport struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// InputPath is the document being checked.
	InputPath string `json:"input_path"`

	// OutputPath is where the markdown report is written.
	OutputPath string `json:"output_path"`

	// StartedAt is when the run was created.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is set once the pipeline returns.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Text is the raw document text. It is not serialized.
	Text string `json:"-"`

	// Digest is the hex SHA3-256 of the input bytes, when computed.
	Digest string `json:"digest,omitempty"`

	// Sentences is the ordered output of the splitter.
	Sentences []string `json:"sentences"`

	// Matches holds the sentences that produced at least one match.
	Matches *MatchRecord `json:"matches"`

	// Warnings collects non-fatal problems such as skipped malformed responses.
	Warnings []string `json:"warnings,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut is true when the run was cancelled before completing.
	TimedOut bool `json:"timed_out"`

	// Error is the error that stopped the run, if any.
	Error error `json:"-"`

	// ErrorMessage is the serializable form of Error.
	ErrorMessage string `json:"error,omitempty"`
}

// NewCheckReport creates a report for the given input and output paths.
func NewCheckReport(inputPath, outputPath string) *CheckReport {
	return &CheckReport{
		ID:         uuid.NewString(),
		InputPath:  inputPath,
		OutputPath: outputPath,
		StartedAt:  time.Now(),
		Sentences:  []string{},
		Matches:    NewMatchRecord(),
	}
}

// AddWarning records a non-fatal problem.
func (r *CheckReport) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Failed reports whether the run stopped with an error.
func (r *CheckReport) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *CheckReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
