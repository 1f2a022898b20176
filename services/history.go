package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"basic-cleaning/storage"
)

// RunHistory prints past runs together with the artifact versions they consumed.
type RunHistory struct {
	registry storage.Registry
	out      io.Writer
}

func NewRunHistory(registry storage.Registry, out io.Writer) *RunHistory {
	return &RunHistory{registry: registry, out: out}
}

// Print lists the runs of jobType, oldest first. An empty jobType lists every run.
func (h *RunHistory) Print(ctx context.Context, jobType string) error {
	runs, err := h.registry.ListRuns(ctx, jobType)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(h.out, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(h.out, "%-19s  %-8s  %-16s  %-8s  %s\n", "STARTED", "RUN", "JOB", "STATUS", "INPUTS")
	for _, r := range runs {
		inputs, err := h.registry.RunInputs(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		tags := make([]string, 0, len(inputs))
		for _, v := range inputs {
			tags = append(tags, v.Tag())
		}
		used := "-"
		if len(tags) > 0 {
			used = strings.Join(tags, ", ")
		}

		fmt.Fprintf(h.out, "%-19s  %-8s  %-16s  %-8s  %s\n",
			r.StartedAt.Format(dateTimeLayout), shortID(r.ID), truncate(r.JobType, 16), r.Status, used)
	}
	return nil
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
