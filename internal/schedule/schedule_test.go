package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr string
	}{
		{"0 * * * *", ""},
		{"*/15 * * * *", ""},
		{"0 */6 * * *", ""},
		{"0 0 1 * *", ""},
		{"0 0 * * 0", ""},
		{"0,15,30,45 9,17 1,15 1,6,12 1,2,3,4,5", ""},
		{"  0 0 * * *  ", ""},
		{"60 * * * *", "minute"},
		{"* * * *", "exactly 5 fields"},
		{"* * * * * *", "exactly 5 fields"},
		{"0 24 * * *", "hour"},
		{"0 0 0 * *", "day of month"},
		{"0 0 32 * *", "day of month"},
		{"0 0 * 13 *", "month"},
		{"0 0 * * 7", "day of week"},
		{"*/0 * * * *", "step"},
		{"*/x * * * *", "step"},
		{"1-5 * * * *", "comma-separated numbers"},
		{"1,,2 * * * *", "comma-separated numbers"},
		{"+5 * * * *", "comma-separated numbers"},
		{"MON * * * *", "comma-separated numbers"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := Validate(tt.expr)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Empty(t *testing.T) {
	for _, expr := range []string{"", "   "} {
		err := Validate(expr)
		assert.ErrorIs(t, err, ErrEmpty)
		assert.Equal(t, "Please select or enter a schedule", err.Error())
	}
}

func TestValidate_FirstViolation(t *testing.T) {
	err := Validate("60 24 * * *")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "minute", verr.Field)
}

func TestPresetsAreValid(t *testing.T) {
	for _, p := range Presets {
		assert.NoError(t, Validate(p.Value), p.Label)
	}
}

func TestNextRuns(t *testing.T) {
	from := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	runs, err := NextRuns("0 */6 * * *", from, 3)
	require.NoError(t, err)
	var got []string
	for _, r := range runs {
		got = append(got, r.UTC().Format(time.RFC3339))
	}
	assert.Equal(t, []string{
		"2024-01-01T12:00:00Z",
		"2024-01-01T18:00:00Z",
		"2024-01-02T00:00:00Z",
	}, got)

	_, err = NextRuns("60 * * * *", from, 3)
	assert.Error(t, err)
}

type fakeJobs struct {
	created []string
	updated []string
	err     error
}

func (f *fakeJobs) CreateJob(_ context.Context, scriptID int, expr string) (*gateway.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, expr)
	return &gateway.Job{JobID: "script_1", ScriptID: scriptID, CronExpression: expr, Enabled: true}, nil
}

func (f *fakeJobs) UpdateJob(_ context.Context, jobID, expr string) (*gateway.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updated = append(f.updated, jobID+" "+expr)
	return &gateway.Job{JobID: jobID, CronExpression: expr, Enabled: true}, nil
}

func TestEditor_SelectPresetClearsError(t *testing.T) {
	e := NewEditor(&fakeJobs{}, "")
	e.SetCustom("61 * * * *")
	_, err := e.Submit(context.Background(), 1, nil, nil)
	require.Error(t, err)
	assert.NotEmpty(t, e.Error())

	require.NoError(t, e.SelectPreset("daily"))
	assert.Equal(t, "0 0 * * *", e.Expression())
	assert.Equal(t, "daily", e.Preset())
	assert.Empty(t, e.Error())

	e.SetCustom("*/5 * * * *")
	assert.Equal(t, "*/5 * * * *", e.Expression())
	assert.Empty(t, e.Preset())

	assert.Error(t, e.SelectPreset("fortnightly"))
}

func TestEditor_SubmitCreates(t *testing.T) {
	fj := &fakeJobs{}
	refreshed := 0
	e := NewEditor(fj, "")
	require.NoError(t, e.SelectPreset("0 * * * *"))

	job, err := e.Submit(context.Background(), 1, nil, func(context.Context) { refreshed++ })
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", job.CronExpression)
	assert.Equal(t, []string{"0 * * * *"}, fj.created)
	assert.Empty(t, fj.updated)
	assert.Equal(t, 1, refreshed)
	assert.True(t, e.Closed())
}

func TestEditor_SubmitUpdatesExisting(t *testing.T) {
	fj := &fakeJobs{}
	existing := &gateway.Job{ID: 4, JobID: "script_1", ScriptID: 1, CronExpression: "0 0 * * *"}
	e := NewEditor(fj, existing.CronExpression)
	assert.Equal(t, "daily", e.Preset())
	e.SetCustom("*/15 * * * *")

	_, err := e.Submit(context.Background(), 1, existing, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"script_1 */15 * * * *"}, fj.updated)
	assert.Empty(t, fj.created)
}

func TestEditor_InvalidNeverSent(t *testing.T) {
	fj := &fakeJobs{}
	refreshed := false
	e := NewEditor(fj, "")

	_, err := e.Submit(context.Background(), 1, nil, func(context.Context) { refreshed = true })
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, "Please select or enter a schedule", e.Error())

	e.SetCustom("* * * *")
	_, err = e.Submit(context.Background(), 1, nil, nil)
	require.Error(t, err)
	assert.Contains(t, e.Error(), "exactly 5 fields")

	assert.Empty(t, fj.created)
	assert.False(t, refreshed)
	assert.False(t, e.Closed())
}

func TestEditor_BackendError(t *testing.T) {
	fj := &fakeJobs{err: &gateway.APIError{Status: 400, Message: "Invalid cron expression"}}
	e := NewEditor(fj, "")
	e.SetCustom("0 0 * * *")

	_, err := e.Submit(context.Background(), 1, nil, nil)
	require.Error(t, err)
	assert.Equal(t, "Invalid cron expression", e.Error())
	assert.False(t, e.Closed())

	fj.err = errors.New("connection reset")
	_, err = e.Submit(context.Background(), 1, nil, nil)
	require.Error(t, err)
	assert.Equal(t, "Failed to update schedule", e.Error())
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "0 0 * * 0", Resolve("weekly"))
	assert.Equal(t, "5 4 * * *", Resolve("5 4 * * *"))
}
