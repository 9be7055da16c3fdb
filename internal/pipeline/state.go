package pipeline

import (
	"fmt"
	"time"
)

// State is a pipeline run's position in the state machine.
type State string

const (
	Idle         State = "idle"
	Transcribing State = "transcribing"
	Diarizing    State = "diarizing"
	Analyzing    State = "analyzing"
	Assembling   State = "assembling"
	Done         State = "done"
	Failed       State = "failed"
)

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool { return s == Done || s == Failed }

var allowed = map[State][]State{
	Idle:         {Transcribing, Failed},
	Transcribing: {Diarizing, Analyzing, Failed},
	Diarizing:    {Analyzing},
	Analyzing:    {Assembling},
	Assembling:   {Done},
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Stage names a unit of work. Used in errors, logs and metrics.
type Stage string

const (
	StageCredentials   Stage = "credentials"
	StageTranscription Stage = "transcription"
	StageDiarization   Stage = "diarization"
	StageAnalysis      Stage = "analysis"
	StageAssembly      Stage = "assembly"
)

// ErrorKind classifies stage failures.
type ErrorKind string

const (
	CredentialMissing        ErrorKind = "credential_missing"
	TranscriptionFailure     ErrorKind = "transcription_failure"
	DiarizationFailure       ErrorKind = "diarization_failure"
	AnalysisTransportFailure ErrorKind = "analysis_transport_failure"
	AnalysisMalformedOutput  ErrorKind = "analysis_malformed_output"
)

// Fatal reports whether the kind stops the run.
func (k ErrorKind) Fatal() bool {
	return k == CredentialMissing || k == TranscriptionFailure
}

// StageError is the tagged failure of one stage.
type StageError struct {
	Stage   Stage
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageError(stage Stage, kind ErrorKind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Message: err.Error(), Err: err}
}

// Transition is delivered to the Observer on every state change.
type Transition struct {
	RunID    string
	Filename string
	From     State
	To       State
	Err      *StageError // set on Failed and on recoverable stage failures
	At       time.Time
}

// Observer receives transitions synchronously, in order.
type Observer func(Transition)
