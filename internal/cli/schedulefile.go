package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/svennapp/svennProductsFE/internal/schedule"
)

// ScheduleFile is the document read by `schedule apply`:
//
//	schedules:
//	  - script_id: 10
//	    schedule: daily
//	  - script_id: 11
//	    schedule: "*/30 * * * *"
type ScheduleFile struct {
	Schedules []ScheduleEntry `yaml:"schedules"`
}

// ScheduleEntry sets one script's schedule. Schedule is a preset key or a
// cron expression.
type ScheduleEntry struct {
	ScriptID int    `yaml:"script_id"`
	Schedule string `yaml:"schedule"`
}

// Expression resolves presets to their cron expression.
func (e ScheduleEntry) Expression() string {
	return schedule.Resolve(strings.TrimSpace(e.Schedule))
}

// ParseScheduleFile decodes and validates every entry. Nothing is applied
// when any entry is invalid.
func ParseScheduleFile(data []byte) ([]ScheduleEntry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f ScheduleFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("schedule file is empty")
		}
		return nil, fmt.Errorf("parse schedule file: %w", err)
	}
	if len(f.Schedules) == 0 {
		return nil, errors.New("schedule file has no schedules")
	}

	var errs []error
	seen := make(map[int]bool, len(f.Schedules))
	for i, e := range f.Schedules {
		switch {
		case e.ScriptID <= 0:
			errs = append(errs, fmt.Errorf("schedules[%d]: script_id must be positive", i))
		case seen[e.ScriptID]:
			errs = append(errs, fmt.Errorf("schedules[%d]: script %d listed twice", i, e.ScriptID))
		}
		seen[e.ScriptID] = true

		if err := schedule.Validate(e.Expression()); err != nil {
			errs = append(errs, fmt.Errorf("schedules[%d]: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return f.Schedules, nil
}
