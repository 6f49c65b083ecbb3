package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    JobStatus
		to      JobStatus
		allowed bool
	}{
		{"pending to approved", JobStatusPendingCodeReview, JobStatusApproved, true},
		{"pending to rejected", JobStatusPendingCodeReview, JobStatusRejected, true},
		{"pending to in progress (forced run)", JobStatusPendingCodeReview, JobStatusInProgress, true},
		{"pending to finished", JobStatusPendingCodeReview, JobStatusRunFinished, false},
		{"approved to in progress", JobStatusApproved, JobStatusInProgress, true},
		{"approved to rejected", JobStatusApproved, JobStatusRejected, false},
		{"in progress to finished", JobStatusInProgress, JobStatusRunFinished, true},
		{"in progress to failed", JobStatusInProgress, JobStatusRunFailed, true},
		{"in progress to shared", JobStatusInProgress, JobStatusShared, false},
		{"finished to shared", JobStatusRunFinished, JobStatusShared, true},
		{"finished to failed", JobStatusRunFinished, JobStatusRunFailed, false},
		{"rejected is terminal", JobStatusRejected, JobStatusApproved, false},
		{"failed is terminal", JobStatusRunFailed, JobStatusRunFinished, false},
		{"shared is terminal", JobStatusShared, JobStatusRunFinished, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestJobStatusTerminal(t *testing.T) {
	assert.True(t, JobStatusRejected.Terminal())
	assert.True(t, JobStatusRunFailed.Terminal())
	assert.True(t, JobStatusShared.Terminal())
	assert.False(t, JobStatusPendingCodeReview.Terminal())
	assert.False(t, JobStatusRunFinished.Terminal())
}

func TestJobCreateDefaults(t *testing.T) {
	c := &JobCreate{DatasetName: "census", UserCodeID: uuid.New()}
	job := c.ToEntity("ds@x")

	assert.Equal(t, JobStatusPendingCodeReview, job.Status)
	assert.Equal(t, "ds@x", job.CreatedBy)
	assert.Equal(t, "census", job.DatasetName)
	assert.NotEqual(t, uuid.Nil, job.UID)
	assert.Equal(t, "job-"+job.UID.String()[:8], job.Name)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestJobApplyUpdatePartial(t *testing.T) {
	c := &JobCreate{Name: "demo", DatasetName: "census", UserCodeID: uuid.New()}
	job := c.ToEntity("ds@x")
	before := job.UpdatedAt

	status := JobStatusApproved
	msg := "looks fine"
	updated, err := job.ApplyUpdate(&JobUpdate{
		UID:          job.UID,
		Status:       &status,
		ErrorMessage: &msg,
	}, false)
	require.NoError(t, err)

	// The clone carries the changes, untouched fields survive.
	assert.Equal(t, JobStatusApproved, updated.Status)
	assert.Equal(t, "looks fine", updated.ErrorMessage)
	assert.Equal(t, "demo", updated.Name)
	assert.Equal(t, "census", updated.DatasetName)
	assert.True(t, updated.UpdatedAt.After(before) || updated.UpdatedAt.Equal(before))

	// Not in place: the original is untouched.
	assert.Equal(t, JobStatusPendingCodeReview, job.Status)
	assert.Empty(t, job.ErrorMessage)
}

func TestJobApplyUpdateInPlace(t *testing.T) {
	job := (&JobCreate{DatasetName: "census", UserCodeID: uuid.New()}).ToEntity("ds@x")
	status := JobStatusRejected
	_, err := job.ApplyUpdate(&JobUpdate{UID: job.UID, Status: &status}, true)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRejected, job.Status)
}

func TestJobApplyUpdateUIDMismatch(t *testing.T) {
	job := (&JobCreate{DatasetName: "census", UserCodeID: uuid.New()}).ToEntity("ds@x")
	status := JobStatusApproved
	_, err := job.ApplyUpdate(&JobUpdate{UID: uuid.New(), Status: &status}, false)
	assert.Error(t, err)
	assert.Equal(t, JobStatusPendingCodeReview, job.Status)
}

func TestJobApplyUpdateKindMismatch(t *testing.T) {
	job := (&JobCreate{DatasetName: "census", UserCodeID: uuid.New()}).ToEntity("ds@x")
	_, err := job.ApplyUpdate(&DatasetUpdate{UID: job.UID}, false)
	assert.Error(t, err)
}

func TestJobUpdateForReturnCode(t *testing.T) {
	job := (&JobCreate{DatasetName: "census", UserCodeID: uuid.New()}).ToEntity("ds@x")

	ok := job.UpdateForReturnCode(0, "")
	assert.Equal(t, JobStatusRunFinished, *ok.Status)
	assert.Equal(t, 0, *ok.ReturnCode)
	assert.Nil(t, ok.ErrorMessage)

	failed := job.UpdateForReturnCode(1, "ERROR: boom\n")
	assert.Equal(t, JobStatusRunFailed, *failed.Status)
	assert.Equal(t, 1, *failed.ReturnCode)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "ERROR: boom\n", *failed.ErrorMessage)
}

func TestJobWholeRecordUpdate(t *testing.T) {
	job := (&JobCreate{DatasetName: "census", UserCodeID: uuid.New()}).ToEntity("ds@x")
	replacement := job.Clone()
	replacement.Status = JobStatusApproved
	replacement.Description = "replaced"

	updated, err := job.ApplyUpdate(replacement, false)
	require.NoError(t, err)
	assert.Equal(t, JobStatusApproved, updated.Status)
	assert.Equal(t, "replaced", updated.Description)
}

func TestEnvelopeTouch(t *testing.T) {
	job := (&JobCreate{DatasetName: "census", UserCodeID: uuid.New()}).ToEntity("ds@x")
	ts := time.Now().Add(time.Hour)
	job.Touch(ts)
	assert.Equal(t, ts, job.UpdatedAt)
}
