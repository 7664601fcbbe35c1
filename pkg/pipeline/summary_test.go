// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSummary_FailedRun(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	client.failCreate["c"] = errors.New("domain not available")
	client.failDelete["a"] = errors.New("resource group locked")

	run, _ := NewExecutor(client).Run(context.Background(), linearPlan(t))

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, run))
	out := buf.String()

	assert.Contains(t, out, "Run status: partial-failure (TornDown)")
	assert.Contains(t, out, "Created 2 of 3 resource(s)")
	assert.Contains(t, out, "Failed at step c: domain not available")
	assert.Contains(t, out, "Torn down 1 resource(s)")
	assert.Contains(t, out, "  - b (Test::Kind)")
	assert.Contains(t, out, "reclaim manually")
	assert.Contains(t, out, "  ! a (Test::Kind) /ids/a: resource group locked")
}

func TestWriteSummary_SucceededRunBeforeTeardown(t *testing.T) {
	t.Parallel()
	run, err := NewExecutor(newFakeClient()).Execute(context.Background(), linearPlan(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, run))

	assert.Contains(t, buf.String(), "Run status: success (Succeeded)")
	assert.NotContains(t, buf.String(), "Torn down")
	assert.NotContains(t, buf.String(), "Failed at step")
}
