package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// JobStatus is the lifecycle state of a job, shared by persisted jobs and
// tracker jobs
type JobStatus string

const (
	JobStatusPlanned   JobStatus = "planned"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
)

var jobStatusTransitions = map[JobStatus][]JobStatus{
	JobStatusPlanned:   {JobStatusActive, JobStatusCancelled},
	JobStatusActive:    {JobStatusCompleted, JobStatusCancelled},
	JobStatusCompleted: {},
	JobStatusCancelled: {},
}

// IsValid checks if the JobStatus is a valid enum value
func (s JobStatus) IsValid() bool {
	_, ok := jobStatusTransitions[s]
	return ok
}

// CanTransitionTo reports whether a job may move from s to next.
// Staying in the same status is always allowed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s == next {
		return s.IsValid()
	}
	for _, allowed := range jobStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseJobStatus accepts the canonical values and the capitalized
// "Active"/"Completed" values written by earlier versions of the schema.
func ParseJobStatus(raw string) (JobStatus, error) {
	status := JobStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", fmt.Errorf("unknown job status %q", raw)
	}
	return status, nil
}

// Scan maps stored values, including legacy ones, onto the canonical enumeration
func (s *JobStatus) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into JobStatus", value)
	}
	status, err := ParseJobStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Value always writes the canonical lowercase form
func (s JobStatus) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid job status %q", string(s))
	}
	return string(s), nil
}

// EstimateStatus is the sales state of an estimate
type EstimateStatus string

const (
	EstimateStatusDraft    EstimateStatus = "Draft"
	EstimateStatusSent     EstimateStatus = "Sent"
	EstimateStatusApproved EstimateStatus = "Approved"
	EstimateStatusRejected EstimateStatus = "Rejected"
)

// IsValid checks if the EstimateStatus is a valid enum value
func (s EstimateStatus) IsValid() bool {
	switch s {
	case EstimateStatusDraft, EstimateStatusSent, EstimateStatusApproved, EstimateStatusRejected:
		return true
	}
	return false
}
