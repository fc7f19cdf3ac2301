package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"tuneport/internal/jobs"
	"tuneport/internal/textutil"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 22
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return paint(statusKindColor(kind), base, colorize)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) color.Attribute {
	switch kind {
	case statusOK:
		return color.FgGreen
	case statusWarn:
		return color.FgYellow
	case statusError:
		return color.FgRed
	default:
		return color.FgBlue
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	return []string{paint(color.FgBlue, line, colorize), paint(color.FgBlue, rule, colorize)}
}

// jobStatusLabel renders a job status for tables, e.g. "Awaiting Fallback".
func jobStatusLabel(status string, colorize bool) string {
	label := textutil.TitleCase(strings.ReplaceAll(status, "_", " "))
	return paint(jobStatusColor(jobs.Status(status)), label, colorize)
}

func jobStatusColor(status jobs.Status) color.Attribute {
	switch status {
	case jobs.StatusCompleted:
		return color.FgGreen
	case jobs.StatusFailed:
		return color.FgRed
	case jobs.StatusAwaitingFallback:
		return color.FgYellow
	case jobs.StatusQueued:
		return color.FgWhite
	default:
		return color.FgCyan
	}
}

func paint(attr color.Attribute, value string, colorize bool) string {
	if !colorize {
		return value
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(value)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
