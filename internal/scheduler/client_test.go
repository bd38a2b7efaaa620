package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

func TestScheduleRequiresJobID(t *testing.T) {
	client := NewClient(newFakeJobRepo(), newTestLogger())

	err := client.Schedule(context.Background(), &ScheduleRequest{
		Kind:  types.ScheduledJobKindRenewal,
		RunAt: lo.ToPtr(time.Now().UTC()),
	})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestScheduleRequiresExactlyOneCadence(t *testing.T) {
	client := NewClient(newFakeJobRepo(), newTestLogger())
	ctx := context.Background()

	err := client.Schedule(ctx, &ScheduleRequest{
		ID:   "renewal:sub_1",
		Kind: types.ScheduledJobKindRenewal,
	})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	err = client.Schedule(ctx, &ScheduleRequest{
		ID:       "renewal:sub_1",
		Kind:     types.ScheduledJobKindRenewal,
		RunAt:    lo.ToPtr(time.Now().UTC()),
		CronExpr: lo.ToPtr("0 9 10 * *"),
	})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestScheduleOneShotUsesRunAt(t *testing.T) {
	repo := newFakeJobRepo()
	client := NewClient(repo, newTestLogger())
	runAt := time.Now().UTC().Add(48 * time.Hour)

	err := client.Schedule(context.Background(), &ScheduleRequest{
		ID:      "renewal:sub_1",
		Kind:    types.ScheduledJobKindRenewal,
		Payload: RenewalPayload{SubscriptionID: "sub_1"},
		RunAt:   &runAt,
	})
	require.NoError(t, err)

	job, err := client.Lookup(context.Background(), "renewal:sub_1")
	require.NoError(t, err)
	assert.Equal(t, types.ScheduledJobStatusScheduled, job.JobStatus)
	require.NotNil(t, job.NextRunAt)
	assert.True(t, job.NextRunAt.Equal(runAt))
	assert.Nil(t, job.CronExpr)

	var payload RenewalPayload
	require.NoError(t, job.DecodePayload(&payload))
	assert.Equal(t, "sub_1", payload.SubscriptionID)
}

func TestScheduleCronComputesNextRun(t *testing.T) {
	client := NewClient(newFakeJobRepo(), newTestLogger())

	err := client.Schedule(context.Background(), &ScheduleRequest{
		ID:       "renewal:sub_1",
		Kind:     types.ScheduledJobKindRenewal,
		Payload:  RenewalPayload{SubscriptionID: "sub_1"},
		CronExpr: lo.ToPtr("30 9 10 * *"),
	})
	require.NoError(t, err)

	job, err := client.Lookup(context.Background(), "renewal:sub_1")
	require.NoError(t, err)
	require.NotNil(t, job.NextRunAt)
	assert.True(t, job.NextRunAt.After(time.Now().UTC()))
	assert.Equal(t, 10, job.NextRunAt.Day())
	assert.Equal(t, 9, job.NextRunAt.Hour())
	assert.Equal(t, 30, job.NextRunAt.Minute())
}

func TestScheduleRejectsInvalidCron(t *testing.T) {
	client := NewClient(newFakeJobRepo(), newTestLogger())

	err := client.Schedule(context.Background(), &ScheduleRequest{
		ID:       "renewal:sub_1",
		Kind:     types.ScheduledJobKindRenewal,
		CronExpr: lo.ToPtr("not a cron"),
	})
	require.Error(t, err)
	assert.True(t, ierr.IsSchedulingFailure(err))
}

func TestScheduleSameIDReplacesJob(t *testing.T) {
	repo := newFakeJobRepo()
	client := NewClient(repo, newTestLogger())
	ctx := context.Background()

	first := time.Now().UTC().Add(24 * time.Hour)
	require.NoError(t, client.Schedule(ctx, &ScheduleRequest{
		ID:    "renewal:sub_1",
		Kind:  types.ScheduledJobKindRenewal,
		RunAt: &first,
	}))

	// a failed run left attempts behind
	job, err := repo.Get(ctx, "renewal:sub_1")
	require.NoError(t, err)
	job.Attempts = 3
	job.LastError = lo.ToPtr("card declined")
	require.NoError(t, repo.Update(ctx, job))

	second := first.Add(14 * 24 * time.Hour)
	require.NoError(t, client.Schedule(ctx, &ScheduleRequest{
		ID:    "renewal:sub_1",
		Kind:  types.ScheduledJobKindRenewal,
		RunAt: &second,
	}))

	replaced, err := client.Lookup(ctx, "renewal:sub_1")
	require.NoError(t, err)
	assert.True(t, replaced.NextRunAt.Equal(second))
	assert.Zero(t, replaced.Attempts)
	assert.Nil(t, replaced.LastError)
}

func TestCancelUnknownJobIsNoOp(t *testing.T) {
	client := NewClient(newFakeJobRepo(), newTestLogger())

	assert.NoError(t, client.Cancel(context.Background(), "renewal:sub_unknown"))
}

func TestCancelRemovesJob(t *testing.T) {
	client := NewClient(newFakeJobRepo(), newTestLogger())
	ctx := context.Background()
	runAt := time.Now().UTC().Add(time.Hour)

	require.NoError(t, client.Schedule(ctx, &ScheduleRequest{
		ID:    "cancel:sub_1",
		Kind:  types.ScheduledJobKindCancellation,
		RunAt: &runAt,
	}))
	require.NoError(t, client.Cancel(ctx, "cancel:sub_1"))

	_, err := client.Lookup(ctx, "cancel:sub_1")
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}
