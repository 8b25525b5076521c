package domain

import "testing"

func TestJobStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from JobStatus
		to   JobStatus
		want bool
	}{
		{"pending to running", JobPending, JobRunning, true},
		{"pending to cancelled", JobPending, JobCancelled, true},
		{"pending to completed", JobPending, JobCompleted, false},
		{"running to completed", JobRunning, JobCompleted, true},
		{"running to failed", JobRunning, JobFailed, true},
		{"running to cancelled", JobRunning, JobCancelled, true},
		{"running to pending", JobRunning, JobPending, false},
		{"completed is terminal", JobCompleted, JobRunning, false},
		{"failed is terminal", JobFailed, JobPending, false},
		{"cancelled is terminal", JobCancelled, JobRunning, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Fatalf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	terminal := []JobStatus{JobCompleted, JobFailed, JobCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobPending, JobRunning} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestJobMetricsAdd(t *testing.T) {
	m := JobMetrics{RowsProcessed: 10, QuadsGenerated: 5}
	m.Add(JobMetrics{RowsProcessed: 90, QuadsGenerated: 45, RowErrors: 3})

	if m.RowsProcessed != 100 || m.QuadsGenerated != 50 || m.RowErrors != 3 {
		t.Fatalf("unexpected metrics after add: %+v", m)
	}
}

func TestJobValidate(t *testing.T) {
	job := Job{
		ID:              "job-1",
		PipelineID:      "pipe-1",
		PipelineVersion: 1,
		Status:          JobPending,
		TriggeredBy:     TriggerManual,
	}
	if err := job.Validate(); err != nil {
		t.Fatalf("valid job rejected: %v", err)
	}

	bad := job
	bad.Progress = 101
	if err := bad.Validate(); err == nil {
		t.Fatal("progress > 100 accepted")
	}

	bad = job
	bad.PipelineVersion = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("version 0 accepted")
	}
}
