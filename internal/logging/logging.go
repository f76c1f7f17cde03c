// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package logging sets up the logger and the colors used to highlight names, versions and paths in
// log messages.
package logging

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

var (
	pathStyle = lipgloss.NewStyle()
	goodStyle = lipgloss.NewStyle()
	badStyle  = lipgloss.NewStyle()
	warnStyle = lipgloss.NewStyle()
)

// Setup configures the standard logrus logger to write to w and returns it. Debug messages are
// only shown if verbose is set. Highlights are colored only if w is a terminal that supports it.
func Setup(w io.Writer, verbose bool) *logrus.Logger {
	l := logrus.StandardLogger()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
	l.SetLevel(logrus.InfoLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}

	r := lipgloss.NewRenderer(w)
	pathStyle = r.NewStyle().Foreground(lipgloss.Color("4"))
	goodStyle = r.NewStyle().Foreground(lipgloss.Color("2"))
	badStyle = r.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle = r.NewStyle().Foreground(lipgloss.Color("3"))
	return l
}

// Path highlights a file path or URL.
func Path(s string) string { return pathStyle.Render(s) }

// Good highlights a project, count or version that was updated.
func Good(s string) string { return goodStyle.Render(s) }

// Bad highlights the subject of an error.
func Bad(s string) string { return badStyle.Render(s) }

// Warn highlights the subject of a warning.
func Warn(s string) string { return warnStyle.Render(s) }
