// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/platform-engineering-labs/formae/pkg/plugin"
)

// NewLogger returns the formae plugin logger the pipeline and provisioners log
// through, writing text records at or above level (debug, info, warn, error) to w.
func NewLogger(w io.Writer, level string) (plugin.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return plugin.NewPluginLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))), nil
}
