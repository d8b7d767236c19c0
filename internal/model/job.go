package model

import "time"

// Job represents one mastering run tracked from submission to completion.
// A job is mutated only by the worker executing it; terminal states are
// immutable.
type Job struct {
	ID          string           `json:"id"`
	Status      JobStatus        `json:"status"`
	Progress    int              `json:"progress"`
	CurrentStep string           `json:"currentStep,omitempty"`
	Result      *MasteringResult `json:"result,omitempty"`
	Error       *string          `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// MasterJobPayload is the queued work description for one job.
type MasterJobPayload struct {
	InputPath     string          `json:"inputPath"`
	ReferencePath string          `json:"referencePath,omitempty"`
	Params        MasteringParams `json:"params"`
}
