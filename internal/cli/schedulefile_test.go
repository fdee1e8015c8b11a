package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheduleFile(t *testing.T) {
	entries, err := ParseScheduleFile([]byte(`
schedules:
  - script_id: 10
    schedule: daily
  - script_id: 11
    schedule: "15 3 * * 1,3,5"
`))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "0 0 * * *", entries[0].Expression())
	assert.Equal(t, "15 3 * * 1,3,5", entries[1].Expression())
}

func TestParseScheduleFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "schedule file is empty"},
		{"no schedules", "schedules: []\n", "has no schedules"},
		{"unknown field", "schedules:\n  - script: 10\n    schedule: daily\n", "field script not found"},
		{"missing script", "schedules:\n  - schedule: daily\n", "schedules[0]: script_id must be positive"},
		{"duplicate", "schedules:\n  - {script_id: 10, schedule: daily}\n  - {script_id: 10, schedule: hourly}\n", "script 10 listed twice"},
		{"bad cron", "schedules:\n  - {script_id: 10, schedule: \"61 * * * *\"}\n", "schedules[0]"},
		{"missing schedule", "schedules:\n  - {script_id: 10}\n", "select or enter a schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScheduleFile([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScheduleFile_ReportsEveryEntry(t *testing.T) {
	_, err := ParseScheduleFile([]byte(`
schedules:
  - {script_id: 10, schedule: "* * *"}
  - {script_id: 0, schedule: daily}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedules[0]")
	assert.Contains(t, err.Error(), "schedules[1]")
}
