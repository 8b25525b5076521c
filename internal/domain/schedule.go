package domain

import (
	"errors"
	"strings"
	"time"
)

// JobSchedule is a cron-driven trigger for a pipeline. LastRun and NextRun
// are mutated by the scheduler's cron tick; IsActive by explicit
// enable/disable.
type JobSchedule struct {
	ID             string
	PipelineID     string
	CronExpression string
	Variables      Variables
	IsActive       bool
	LastRun        *time.Time
	NextRun        *time.Time
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s JobSchedule) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("schedule id is required")
	}
	if strings.TrimSpace(s.PipelineID) == "" {
		return errors.New("schedule pipeline id is required")
	}
	if strings.TrimSpace(s.CronExpression) == "" {
		return errors.New("schedule cron expression is required")
	}
	return nil
}
