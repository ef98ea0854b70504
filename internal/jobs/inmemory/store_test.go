package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/investment-ledger/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	job := &jobs.ImportJob{JobID: "job-1", SourceURI: "gs://b/ledger.xlsx", Status: jobs.JobStatusPending}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	job.Status = jobs.JobStatusFailed
	got, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != jobs.JobStatusPending {
		t.Errorf("stored job changed through caller pointer: status %q", got.Status)
	}

	got.Status = jobs.JobStatusCompleted
	again, _ := s.GetJob(ctx, "job-1")
	if again.Status != jobs.JobStatusPending {
		t.Errorf("stored job changed through returned copy: status %q", again.Status)
	}
}

func TestStore_Errors(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.SaveJob(ctx, &jobs.ImportJob{}); err == nil {
		t.Error("SaveJob without id should fail")
	}
	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob(missing) error = %v, want ErrJobNotFound", err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, st := range []jobs.JobStatus{jobs.JobStatusCompleted, jobs.JobStatusFailed, jobs.JobStatusCompleted} {
		job := &jobs.ImportJob{
			JobID:     string(rune('a' + i)),
			Status:    st,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"c", "b", "a"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusCompleted}, []string{"c", "a"}},
		{"limit", jobs.JobFilter{Limit: 1}, []string{"c"}},
		{"offset", jobs.JobFilter{Offset: 2}, []string{"a"}},
		{"offset past end", jobs.JobFilter{Offset: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListJobs() returned %d jobs, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].JobID != id {
					t.Errorf("job[%d] = %q, want %q", i, got[i].JobID, id)
				}
			}
		})
	}
}
