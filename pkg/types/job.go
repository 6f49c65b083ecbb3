package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OpenMined/syft-rds/pkg/errdefs"
)

// JobStatus represents the lifecycle state of a Job.
type JobStatus string

const (
	JobStatusPendingCodeReview JobStatus = "pending_code_review"
	JobStatusApproved          JobStatus = "approved"
	JobStatusRejected          JobStatus = "rejected"
	JobStatusInProgress        JobStatus = "job_in_progress"
	JobStatusRunFinished       JobStatus = "job_run_finished"
	JobStatusRunFailed         JobStatus = "job_run_failed"
	JobStatusShared            JobStatus = "shared"
)

// ParseJobStatus parses a status string, failing on unknown values.
func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobStatusPendingCodeReview, JobStatusApproved, JobStatusRejected,
		JobStatusInProgress, JobStatusRunFinished, JobStatusRunFailed,
		JobStatusShared:
		return JobStatus(s), nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// jobTransitions lists the legal successors of each status. The direct
// pending -> in_progress edge is the legacy run path, reachable only
// with an explicit force flag on RunPrivate.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPendingCodeReview: {JobStatusApproved, JobStatusRejected, JobStatusInProgress},
	JobStatusApproved:          {JobStatusInProgress},
	JobStatusInProgress:        {JobStatusRunFinished, JobStatusRunFailed},
	JobStatusRunFinished:       {JobStatusShared},
}

// CanTransitionTo reports whether to is a legal successor of s.
func (s JobStatus) CanTransitionTo(to JobStatus) bool {
	for _, next := range jobTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return len(jobTransitions[s]) == 0
}

// Job tracks one submission of user code against a dataset.
type Job struct {
	Envelope     `yaml:",inline"`
	DatasetName  string     `yaml:"dataset_name"`
	UserCodeID   uuid.UUID  `yaml:"user_code_id"`
	RuntimeID    *uuid.UUID `yaml:"runtime_id,omitempty"`
	Status       JobStatus  `yaml:"status"`
	OutputURL    string     `yaml:"output_url,omitempty"`
	ErrorMessage string     `yaml:"error_message,omitempty"`
	ReturnCode   *int       `yaml:"return_code,omitempty"`
}

func (*Job) EntityKind() Kind { return KindJob }

// TargetUID and TargetKind let a full Job act as a whole-record update.
func (j *Job) TargetUID() uuid.UUID { return j.UID }
func (j *Job) TargetKind() Kind     { return KindJob }

func (j *Job) Fields() map[string]any {
	f := j.envelopeFields()
	f["dataset_name"] = j.DatasetName
	f["user_code_id"] = j.UserCodeID
	f["runtime_id"] = j.RuntimeID
	f["status"] = j.Status
	f["output_url"] = j.OutputURL
	f["error_message"] = j.ErrorMessage
	f["return_code"] = j.ReturnCode
	return f
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	c := *j
	c.Envelope = j.cloneEnvelope()
	if j.RuntimeID != nil {
		id := *j.RuntimeID
		c.RuntimeID = &id
	}
	if j.ReturnCode != nil {
		rc := *j.ReturnCode
		c.ReturnCode = &rc
	}
	return &c
}

// ApplyUpdate applies a JobUpdate or a full Job to this record. A
// mismatched uid or kind fails with ErrInvalidUpdate and leaves the
// target unchanged. With inPlace=false the receiver is untouched and a
// modified clone is returned.
func (j *Job) ApplyUpdate(u Update, inPlace bool) (*Job, error) {
	if u.TargetKind() != KindJob {
		return nil, fmt.Errorf("cannot apply %s update to job: %w", u.TargetKind(), errdefs.ErrInvalidUpdate)
	}
	if u.TargetUID() != j.UID {
		return nil, fmt.Errorf("update uid %s does not match job %s: %w", u.TargetUID(), j.UID, errdefs.ErrInvalidUpdate)
	}

	target := j
	if !inPlace {
		target = j.Clone()
	}

	switch v := u.(type) {
	case *Job:
		*target = *v.Clone()
	case *JobUpdate:
		target.applyEnvelopeUpdate(v.Name, v.Description, v.Tags)
		if v.Status != nil {
			target.Status = *v.Status
		}
		if v.OutputURL != nil {
			target.OutputURL = *v.OutputURL
		}
		if v.ErrorMessage != nil {
			target.ErrorMessage = *v.ErrorMessage
		}
		if v.ReturnCode != nil {
			rc := *v.ReturnCode
			target.ReturnCode = &rc
		}
	default:
		return nil, fmt.Errorf("unsupported update type %T: %w", u, errdefs.ErrInvalidUpdate)
	}
	target.Touch(time.Now())
	return target, nil
}

// UpdateForStatus builds a partial update moving the job to status.
func (j *Job) UpdateForStatus(status JobStatus) *JobUpdate {
	return &JobUpdate{UID: j.UID, Status: &status}
}

/// UpdateForReturnCode builds the terminal update for a finished run:
// code 0 maps to job_run_finished, anything else to job_run_failed.
func (j *Job) UpdateForReturnCode(code int, errMsg string) *JobUpdate {
	status := JobStatusRunFinished
	if code != 0 {
		status = JobStatusRunFailed
	}
	u := &JobUpdate{UID: j.UID, Status: &status, ReturnCode: &code}
	if errMsg != "" {
		u.ErrorMessage = &errMsg
	}
	return u
}

// JobCreate carries the fields required to submit a new Job.
type JobCreate struct {
	Name        string     `yaml:"name,omitempty"`
	Description string     `yaml:"description,omitempty"`
	Tags        []string   `yaml:"tags,omitempty"`
	DatasetName string     `yaml:"dataset_name" validate:"required"`
	UserCodeID  uuid.UUID  `yaml:"user_code_id" validate:"required"`
	RuntimeID   *uuid.UUID `yaml:"runtime_id,omitempty"`
}

// ToEntity materializes the Job with defaults applied.
func (c *JobCreate) ToEntity(createdBy string) *Job {
	j := &Job{
		Envelope:    NewEnvelope(c.Name, c.Description, createdBy, c.Tags),
		DatasetName: c.DatasetName,
		UserCodeID:  c.UserCodeID,
		RuntimeID:   c.RuntimeID,
		Status:      JobStatusPendingCodeReview,
	}
	if j.Name == "" {
		j.Name = "job-" + shortUID(j.UID)
	}
	return j
}

// JobUpdate is the typed partial update for Jobs. All fields are
// optional except the mandatory target uid.
type JobUpdate struct {
	UID          uuid.UUID  `yaml:"uid"`
	Name         *string    `yaml:"name,omitempty"`
	Description  *string    `yaml:"description,omitempty"`
	Tags         []string   `yaml:"tags,omitempty"`
	Status       *JobStatus `yaml:"status,omitempty"`
	OutputURL    *string    `yaml:"output_url,omitempty"`
	ErrorMessage *string    `yaml:"error_message,omitempty"`
	ReturnCode   *int       `yaml:"return_code,omitempty"`
}

func (u *JobUpdate) TargetUID() uuid.UUID { return u.UID }
func (u *JobUpdate) TargetKind() Kind     { return KindJob }

func shortUID(id uuid.UUID) string {
	return id.String()[:8]
}
