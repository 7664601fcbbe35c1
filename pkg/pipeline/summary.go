// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package pipeline

import (
	"errors"
	"fmt"
	"io"
)

// WriteSummary renders a human-readable account of run: what was created, which
// step failed, what was torn down and what must be reclaimed by hand.
func WriteSummary(w io.Writer, run *Run) error {
	pw := &summaryWriter{w: w}

	pw.printf("Run status: %s (%s)\n", run.Status(), run.State())

	handles := run.Handles()
	pw.printf("Created %d of %d resource(s):\n", len(handles), len(run.Order()))
	for _, h := range handles {
		pw.printf("  + %s (%s) %s\n", h.Step, h.Kind, h.ID)
	}

	if step := run.FailedStep(); step != "" {
		cause := run.Err()
		var creation *CreationError
		if errors.As(cause, &creation) {
			cause = creation.Err
		}
		pw.printf("Failed at step %s: %v\n", step, cause)
	}

	if run.State() == StateTornDown {
		tornDown := run.TornDown()
		pw.printf("Torn down %d resource(s):\n", len(tornDown))
		for _, h := range tornDown {
			pw.printf("  - %s (%s)\n", h.Step, h.Kind)
		}

		if leaked := run.Leaked(); len(leaked) > 0 {
			pw.printf("Teardown failed for %d resource(s), reclaim manually:\n", len(leaked))
			for _, f := range leaked {
				pw.printf("  ! %s (%s) %s: %v\n", f.Handle.Step, f.Handle.Kind, f.Handle.ID, f.Err)
			}
		}
	}
	return pw.err
}

type summaryWriter struct {
	w   io.Writer
	err error
}

func (s *summaryWriter) printf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}
