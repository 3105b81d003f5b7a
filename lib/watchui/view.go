// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/logview"
)

const (
	// logRowsTop is the screen row of the first log line: below the
	// header and the panel's top border.
	logRowsTop = 2

	// chromeRows is everything but log lines: the header, both panel
	// borders, and the status bar.
	chromeRows = 4

	// unsizedRows is the log height assumed before the first
	// WindowSizeMsg.
	unsizedRows = 20
)

var levelTags = map[logrecord.Level]string{
	logrecord.LevelError: "ERR",
	logrecord.LevelWarn:  "WRN",
	logrecord.LevelInfo:  "INF",
	logrecord.LevelDebug: "DBG",
}

type styles struct {
	levels   map[logrecord.Level]lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
	notice   lipgloss.Style
	faint    lipgloss.Style
	header   lipgloss.Style
	command  lipgloss.Style
	border   lipgloss.Style
	selected lipgloss.Style
	dimmed   lipgloss.Style
	accent   lipgloss.Style
}

func newStyles(theme logview.Theme) styles {
	if theme == (logview.Theme{}) {
		theme = logview.DefaultTheme
	}
	renderer := lipgloss.DefaultRenderer()
	result := styles{
		levels:   make(map[logrecord.Level]lipgloss.Style, len(logrecord.Levels)),
		success:  theme.SuccessStyle(renderer),
		failure:  theme.FailureStyle(renderer),
		notice:   theme.NoticeStyle(renderer),
		faint:    theme.FaintStyle(renderer),
		header:   renderer.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6")).Bold(true),
		command:  renderer.NewStyle().Foreground(lipgloss.Color("8")),
		border:   renderer.NewStyle().Foreground(theme.FaintText),
		selected: renderer.NewStyle().Reverse(true),
		dimmed:   renderer.NewStyle().Foreground(theme.FaintText).Faint(true),
		accent:   renderer.NewStyle().Foreground(theme.Notice).Bold(true),
	}
	for _, level := range logrecord.Levels {
		result.levels[level] = theme.LevelStyle(renderer, level)
	}
	return result
}

func (s styles) level(level logrecord.Level) lipgloss.Style {
	if style, ok := s.levels[level]; ok {
		return style
	}
	return s.levels[logrecord.LevelInfo]
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Starting..."
	}
	sections := []string{model.renderHeader()}
	sections = append(sections, model.renderPanel()...)
	sections = append(sections, model.renderStatus())
	return strings.Join(sections, "\n")
}

func (model Model) logRows() int {
	if !model.ready {
		return unsizedRows
	}
	return max(1, model.height-chromeRows)
}

func (model Model) renderHeader() string {
	project := model.styles.header.Render(" " + model.config.Project + " ")
	command := strings.Join(model.config.Command, " ")
	room := model.width - lipgloss.Width(project) - 1
	if room <= 0 {
		return project
	}
	return project + " " + model.styles.command.Render(ansi.Truncate(command, room, "…"))
}

func (model Model) panelTitle() string {
	if model.filtered() {
		return fmt.Sprintf(" Logs (%d/%d) - Filtered ", model.matchCount(), len(model.lines))
	}
	return fmt.Sprintf(" Logs (%d) ", len(model.lines))
}

func (model Model) renderPanel() []string {
	inner := max(2, model.width-2)
	contentWidth := inner - 1
	rows := model.logRows()

	title := ansi.Truncate(model.panelTitle(), max(0, inner-1), "")
	top := model.styles.border.Render("╭─") + model.styles.accent.Render(title) +
		model.styles.border.Render(strings.Repeat("─", max(0, inner-1-ansi.StringWidth(title)))+"╮")
	bottom := model.styles.border.Render("╰" + strings.Repeat("─", inner) + "╯")

	var body []string
	if model.mode == modeHelp {
		body = model.renderHelp(contentWidth)
	} else {
		start, end := model.visibleRange()
		for index := start; index < end; index++ {
			body = append(body, model.renderLine(index, contentWidth))
		}
	}
	for len(body) < rows {
		body = append(body, "")
	}
	body = body[:rows]

	start, _ := model.visibleRange()
	scrollbar := strings.Split(renderScrollbar(model.styles, rows, len(model.lines), rows, start), "\n")

	lines := make([]string, 0, rows+2)
	lines = append(lines, top)
	side := model.styles.border.Render("│")
	for index, row := range body {
		lines = append(lines, side+padRight(row, contentWidth)+scrollbar[index]+side)
	}
	return append(lines, bottom)
}

func (model Model) renderLine(index, width int) string {
	captured := model.lines[index]
	timestamp := captured.time.Local().Format(time.TimeOnly)

	tag := levelTags[captured.level]
	style := model.styles.level(captured.level)
	switch captured.kind {
	case lineNotice:
		tag, style = "SYS", model.styles.notice
	case lineSuccess:
		tag, style = "SYS", model.styles.success
	case lineFailure:
		tag, style = "SYS", model.styles.failure
	}
	if tag == "" {
		tag = levelTags[logrecord.LevelInfo]
	}

	room := max(0, width-len(timestamp)-len(tag)-2)
	message := ansi.Truncate(captured.message, room, "…")

	switch {
	case index == model.selected:
		return model.styles.selected.Render(padRight(timestamp+" "+tag+" "+message, width))
	case !model.matches(captured):
		return model.styles.dimmed.Render(timestamp + " " + tag + " " + message)
	default:
		return model.styles.faint.Render(timestamp) + " " + style.Render(tag) + " " + style.Render(message)
	}
}

func (model Model) renderHelp(width int) []string {
	lines := []string{model.styles.accent.Render("Keys"), ""}
	for _, binding := range model.keys.helpBindings() {
		help := binding.Help()
		lines = append(lines, ansi.Truncate(fmt.Sprintf("  %-8s %s", help.Key, help.Desc), width, "…"))
	}
	return append(lines, "", model.styles.faint.Render("Press any key to close"))
}

func (model Model) renderStatus() string {
	separator := model.styles.faint.Render(" │ ")
	var parts []string

	switch {
	case model.mode == modeSearch:
		parts = append(parts, model.styles.accent.Render("Search (regex): ")+model.input+"█",
			model.styles.faint.Render("Enter confirm  Esc cancel"))
	case model.mode == modeSave:
		parts = append(parts, model.styles.accent.Render("Save to: ")+model.input+"█",
			model.styles.faint.Render("default "+model.config.Project+"_logs.txt"))
	case model.state == stateWaiting:
		parts = append(parts, model.styles.failure.Render("Process exited"),
			"r Restart  q Quit",
			fmt.Sprintf("Auto-quit in %ds...", model.countdown))
	case model.state == stateRestarting:
		parts = append(parts, model.styles.notice.Render("Restarting..."))
	default:
		parts = append(parts,
			fmt.Sprintf("PID: %d", model.launch.PID),
			"Uptime: "+formatUptime(model.config.Clock.Now().Sub(model.startedAt)),
			"Scroll: "+model.scrollLabel(),
			"Status: "+model.captureLabel(),
			"Filter: "+model.filterLabel(),
			model.throughput(),
			model.shortcutLabel(),
		)
	}
	if model.searchNotice != "" && model.mode == modeNormal {
		parts = append(parts, model.styles.notice.Render(model.searchNotice))
	}
	return ansi.Truncate(strings.Join(parts, separator), model.width, "…")
}

func (model Model) scrollLabel() string {
	if model.autoScroll {
		return "AUTO"
	}
	_, end := model.visibleRange()
	return fmt.Sprintf("%d/%d", end, len(model.lines))
}

func (model Model) captureLabel() string {
	if model.paused {
		return model.styles.levels[logrecord.LevelWarn].Render("PAUSED")
	}
	return model.styles.success.Render("LIVE")
}

func (model Model) filterLabel() string {
	if filter := model.levelFilter(); filter != "" {
		return strings.ToUpper(string(filter))
	}
	return "ALL"
}

func (model Model) throughput() string {
	var sent uint64
	if model.config.Stats != nil {
		sent = model.config.Stats().Sent
	}
	rate := 0.0
	if elapsed := model.config.Clock.Now().Sub(model.startedAt).Seconds(); elapsed > 0 {
		rate = float64(model.received) / elapsed
	}
	return fmt.Sprintf("↓%d ↑%d %.1f/s", model.received, sent, rate)
}

func (model Model) shortcutLabel() string {
	labels := make([]string, 0, 7)
	for _, binding := range model.keys.shortcuts() {
		help := binding.Help()
		labels = append(labels, model.styles.accent.Render(help.Key)+" "+help.Desc)
	}
	return strings.Join(labels, " ")
}

// formatUptime renders d as 42s, 3m7s, or 2h5m.
func formatUptime(d time.Duration) string {
	seconds := int(max(0, d/time.Second))
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm%ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh%dm", seconds/3600, seconds%3600/60)
	}
}

func padRight(text string, width int) string {
	if gap := width - ansi.StringWidth(text); gap > 0 {
		return text + strings.Repeat(" ", gap)
	}
	return text
}

// renderScrollbar produces a one-column scrollbar of the given height.
// The thumb spans the whole track when everything fits.
func renderScrollbar(s styles, height, total, visible, offset int) string {
	if height <= 0 {
		return ""
	}
	track := s.border.Render("│")
	thumb := s.accent.Render("┃")
	lines := make([]string, height)

	if total <= visible || total <= 0 {
		for index := range lines {
			lines[index] = thumb
		}
		return strings.Join(lines, "\n")
	}

	thumbSize := max(1, height*visible/total)
	scrollable := total - visible
	trackRange := height - thumbSize
	thumbOffset := 0
	if scrollable > 0 && trackRange > 0 {
		thumbOffset = offset * trackRange / scrollable
	}
	thumbOffset = min(thumbOffset, height-thumbSize)

	for index := range lines {
		if index >= thumbOffset && index < thumbOffset+thumbSize {
			lines[index] = thumb
		} else {
			lines[index] = track
		}
	}
	return strings.Join(lines, "\n")
}
