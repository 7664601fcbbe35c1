// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	cmd := List()

	require.NotNil(t, cmd)
	assert.Equal(t, "list", cmd.Use)

	flag := cmd.Flags().Lookup("resource-group")
	require.NotNil(t, flag)
	assert.Equal(t, "g", flag.Shorthand)
	assert.Equal(t, []string{"true"}, flag.Annotations[cobra.BashCompOneRequiredFlag])
}

func TestList_MissingResourceGroup(t *testing.T) {
	cmd := Root()
	cmd.SetArgs([]string{"list"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource-group")
}
