// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logview

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/timeexpr"
)

// Format selects how records are rendered.
type Format string

const (
	// FormatColored styles each part with the theme. Colors degrade to
	// plain text when the writer is not a color terminal.
	FormatColored Format = "colored"

	// FormatPlain never emits escape sequences.
	FormatPlain Format = "plain"

	// FormatJSON writes each record payload as one JSON object.
	FormatJSON Format = "json"

	// FormatNone writes nothing.
	FormatNone Format = "none"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch format := Format(name); format {
	case FormatColored, FormatPlain, FormatJSON, FormatNone:
		return format, nil
	default:
		return "", fmt.Errorf("invalid format %q (valid: colored, plain, json, none)", name)
	}
}

// Options configures a Renderer. The zero value renders the bare
// message in FormatColored with DefaultTheme.
type Options struct {
	Format Format
	Theme  *Theme

	// Metadata columns, in rendering order.
	ShowTimestamps bool
	ShowPID        bool
	ShowLevel      bool
	ShowProject    bool
}

// Renderer writes records to one destination. It is not safe for
// concurrent use; callers that render from several goroutines
// serialize through their own lock.
type Renderer struct {
	writer  io.Writer
	options Options

	levels  map[logrecord.Level]lipgloss.Style
	faint   lipgloss.Style
	project lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	notice  lipgloss.Style
}

// NewRenderer creates a renderer that detects the color profile of w.
func NewRenderer(w io.Writer, options Options) *Renderer {
	return newRenderer(w, options, lipgloss.NewRenderer(w))
}

// NewRendererWithProfile creates a renderer with a fixed color
// profile, bypassing terminal detection.
func NewRendererWithProfile(w io.Writer, options Options, profile termenv.Profile) *Renderer {
	styles := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	styles.SetColorProfile(profile)
	return newRenderer(w, options, styles)
}

func newRenderer(w io.Writer, options Options, styles *lipgloss.Renderer) *Renderer {
	if options.Format == "" {
		options.Format = FormatColored
	}
	theme := DefaultTheme
	if options.Theme != nil {
		theme = *options.Theme
	}
	if options.Format != FormatColored {
		styles.SetColorProfile(termenv.Ascii)
	}

	renderer := &Renderer{
		writer:  w,
		options: options,
		levels:  make(map[logrecord.Level]lipgloss.Style, len(logrecord.Levels)),
		faint:   theme.FaintStyle(styles),
		project: theme.base(styles, theme.Project, Emphasis{}),
		success: theme.SuccessStyle(styles),
		failure: theme.FailureStyle(styles),
		notice:  theme.NoticeStyle(styles),
	}
	for _, level := range logrecord.Levels {
		renderer.levels[level] = theme.LevelStyle(styles, level)
	}
	return renderer
}

// Format renders data as one line without a trailing newline.
func (r *Renderer) Format(data logrecord.Data) string {
	if r.options.Format == FormatJSON {
		encoded, err := json.Marshal(data)
		if err != nil {
			// Data holds only strings and an integer.
			return fmt.Sprintf(`{"error":%q}`, err.Error())
		}
		return string(encoded)
	}

	var parts []string
	if r.options.ShowTimestamps {
		parts = append(parts, r.faint.Render(displayTimestamp(data.Timestamp)))
	}
	if r.options.ShowPID {
		parts = append(parts, r.faint.Render("["+strconv.FormatInt(data.PID, 10)+"]"))
	}
	if r.options.ShowLevel {
		label := fmt.Sprintf("%-5s", strings.ToUpper(string(data.Level)))
		parts = append(parts, r.levelStyle(data.Level).Render(label))
	}
	if r.options.ShowProject {
		parts = append(parts, r.project.Render(data.Project))
	}
	if r.options.ShowLevel && data.Source == logrecord.SourceStderr {
		parts = append(parts, r.faint.Render("stderr"))
	}
	parts = append(parts, r.levelStyle(data.Level).Render(data.Message))
	return strings.Join(parts, " ")
}

// Write renders data followed by a newline. FormatNone writes nothing.
func (r *Renderer) Write(data logrecord.Data) error {
	if r.options.Format == FormatNone {
		return nil
	}
	_, err := io.WriteString(r.writer, r.Format(data)+"\n")
	return err
}

// Success, Failure, and Notice style a status line about the tool
// itself rather than a record.
func (r *Renderer) Success(text string) string { return r.success.Render(text) }

func (r *Renderer) Failure(text string) string { return r.failure.Render(text) }

func (r *Renderer) Notice(text string) string { return r.notice.Render(text) }

// Faint styles secondary text.
func (r *Renderer) Faint(text string) string { return r.faint.Render(text) }

// Level styles text in the color of level.
func (r *Renderer) Level(level logrecord.Level, text string) string {
	return r.levelStyle(level).Render(text)
}

func (r *Renderer) levelStyle(level logrecord.Level) lipgloss.Style {
	if style, ok := r.levels[level]; ok {
		return style
	}
	return r.levels[logrecord.LevelInfo]
}

// displayTimestamp shortens a parseable timestamp to local
// millisecond time and leaves anything else as sent.
func displayTimestamp(timestamp string) string {
	instant, err := timeexpr.ParseTimestamp(timestamp)
	if err != nil {
		return timestamp
	}
	return instant.Local().Format(time.DateTime + ".000")
}
