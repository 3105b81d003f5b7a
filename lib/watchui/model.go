// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/logrelay/lib/agent"
	"github.com/bureau-foundation/logrelay/lib/clock"
	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/logview"
)

const (
	// countdownTicks is how many ticks the view waits after the
	// command exits before quitting.
	countdownTicks = 5

	tickInterval = time.Second

	wheelStep = 3
	pageStep  = 10

	// DefaultMaxLines bounds the buffer when Config.MaxLines is zero.
	DefaultMaxLines = 10000
)

// Process is the supervised command the view can restart.
type Process interface {
	Restart(ctx context.Context) (agent.Launch, error)
}

// Config configures a Model.
type Config struct {
	// Project and Command are shown in the header. Project also names
	// the default save file.
	Project string
	Command []string

	Process Process

	// Stats reports delivery to the collector. Nil shows nothing sent.
	Stats func() agent.ShipperStats

	Theme logview.Theme

	// MaxLines bounds the buffer; the oldest lines are discarded
	// first. Zero means DefaultMaxLines.
	MaxLines int

	// AutoQuit quits as soon as the command exits.
	AutoQuit bool

	// Dir resolves relative save paths. Empty means the current
	// directory.
	Dir string

	Clock clock.Clock
}

// RecordMsg delivers one captured record to the view.
type RecordMsg struct {
	Record logrecord.Record
}

// ExitMsg reports that a launch of the command finished. Exits of
// stopped or replaced launches are ignored.
type ExitMsg struct {
	Exit agent.Exit
}

type restartedMsg struct {
	launch agent.Launch
	err    error
}

type tickMsg time.Time

type savedMsg struct {
	path  string
	count int
	err   error
}

type processState int

const (
	stateRunning processState = iota
	// stateWaiting counts down to quitting after the command exited
	// or could not be started.
	stateWaiting
	stateRestarting
)

type inputMode int

const (
	modeNormal inputMode = iota
	modeSearch
	modeSave
	modeHelp
)

type lineKind int

const (
	lineRecord lineKind = iota
	lineNotice
	lineSuccess
	lineFailure
)

type line struct {
	time    time.Time
	level   logrecord.Level
	message string
	kind    lineKind
}

func (l line) system() bool { return l.kind != lineRecord }

// levelFilters is the order the filter key cycles through. The empty
// level shows every line.
var levelFilters = []logrecord.Level{"", logrecord.LevelError, logrecord.LevelWarn, logrecord.LevelInfo, logrecord.LevelDebug}

// Model is the bubbletea model of the watch view.
type Model struct {
	config Config
	keys   KeyMap
	styles styles

	launch    agent.Launch
	state     processState
	countdown int
	startedAt time.Time

	lines    []line
	paused   bool
	pending  []line
	received uint64

	filterIndex  int
	search       *regexp.Regexp
	searchNotice string

	mode  inputMode
	input string

	// scrollOffset counts lines hidden below the view; zero shows the
	// newest line.
	scrollOffset int
	autoScroll   bool
	// selected indexes lines; -1 means no selection.
	selected int

	width  int
	height int
	ready  bool
}

// NewModel creates the view for a command that was just launched, or
// that failed to start when startErr is set.
func NewModel(config Config, launch agent.Launch, startErr error) Model {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.MaxLines <= 0 {
		config.MaxLines = DefaultMaxLines
	}
	model := Model{
		config:     config,
		keys:       DefaultKeyMap,
		styles:     newStyles(config.Theme),
		launch:     launch,
		startedAt:  config.Clock.Now(),
		autoScroll: true,
		selected:   -1,
	}
	if startErr != nil {
		model.addSystem(lineFailure, "Failed to start: "+startErr.Error())
		model.wait()
	} else {
		model.addSystem(lineSuccess, fmt.Sprintf("Process started (PID: %d)", launch.PID))
	}
	return model
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(instant time.Time) tea.Msg {
		return tickMsg(instant)
	})
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return model.handleKey(message)

	case tea.MouseMsg:
		model.handleMouse(message)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.clampScroll()

	case tickMsg:
		if model.state == stateWaiting {
			model.countdown--
			if model.countdown <= 0 {
				return model, tea.Quit
			}
		}
		return model, tick()

	case RecordMsg:
		model.received++
		captured := recordLine(message.Record)
		if model.paused {
			model.pending = append(model.pending, captured)
		} else {
			model.append(captured)
		}

	case ExitMsg:
		return model.handleExit(message.Exit)

	case restartedMsg:
		if message.err != nil {
			model.addSystem(lineFailure, "Restart failed: "+message.err.Error())
			model.wait()
			return model, nil
		}
		model.launch = message.launch
		model.state = stateRunning
		model.startedAt = model.config.Clock.Now()
		model.addSystem(lineSuccess, fmt.Sprintf("Process restarted (PID: %d)", message.launch.PID))

	case savedMsg:
		if message.err != nil {
			model.addSystem(lineFailure, "Save failed: "+message.err.Error())
		} else {
			model.addSystem(lineSuccess, fmt.Sprintf("Saved %d logs to %s", message.count, message.path))
		}
	}
	return model, nil
}

func (model Model) handleExit(exit agent.Exit) (tea.Model, tea.Cmd) {
	if exit.Stopped || exit.Launch.Generation != model.launch.Generation {
		return model, nil
	}
	switch {
	case exit.Err != nil:
		model.addSystem(lineFailure, "Process failed: "+exit.Err.Error())
	case exit.Result.ExitCode == 0:
		model.addSystem(lineSuccess, "Process exited successfully")
	default:
		model.addSystem(lineFailure, fmt.Sprintf("Process exited with status: %d", exit.Result.ExitCode))
	}
	if model.config.AutoQuit {
		return model, tea.Quit
	}
	model.wait()
	return model, nil
}

func (model *Model) wait() {
	model.state = stateWaiting
	model.countdown = countdownTicks
	model.launch.PID = 0
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch model.mode {
	case modeHelp:
		// Any key closes the help panel.
		model.mode = modeNormal
		return model, nil
	case modeSearch, modeSave:
		return model.handlePromptKey(message)
	}

	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Restart):
		if model.state == stateRestarting || model.config.Process == nil {
			return model, nil
		}
		model.state = stateRestarting
		model.addSystem(lineNotice, "Restarting...")
		return model, restart(model.config.Process)

	case key.Matches(message, model.keys.Clear):
		model.lines = nil
		model.scrollOffset = 0
		model.selected = -1
		model.addSystem(lineNotice, "Logs cleared")

	case key.Matches(message, model.keys.Filter):
		model.filterIndex = (model.filterIndex + 1) % len(levelFilters)

	case key.Matches(message, model.keys.Search):
		model.mode = modeSearch
		model.input = ""
		model.searchNotice = ""

	case key.Matches(message, model.keys.Save):
		model.mode = modeSave
		model.input = ""

	case key.Matches(message, model.keys.Pause):
		model.togglePause()

	case key.Matches(message, model.keys.Copy):
		if model.selected < 0 || model.selected >= len(model.lines) {
			model.addSystem(lineNotice, "No line selected")
			return model, nil
		}
		text := model.lines[model.selected].plain()
		model.addSystem(lineSuccess, "Copied to clipboard")
		return model, copyToClipboard(text)

	case key.Matches(message, model.keys.Help):
		model.mode = modeHelp

	case key.Matches(message, model.keys.Up):
		model.scrollUp(1)
	case key.Matches(message, model.keys.Down):
		model.scrollDown(1)
	case key.Matches(message, model.keys.PageUp):
		model.scrollUp(pageStep)
	case key.Matches(message, model.keys.PageDown):
		model.scrollDown(pageStep)
	case key.Matches(message, model.keys.Home):
		model.scrollOffset = model.maxScroll()
		model.autoScroll = false
	case key.Matches(message, model.keys.End):
		model.scrollOffset = 0
		model.autoScroll = true
		model.selected = -1
	}
	return model, nil
}

// handlePromptKey edits the search or save prompt. Printable keys,
// including q, are text; ctrl+c still quits.
func (model Model) handlePromptKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case message.Type == tea.KeyCtrlC:
		return model, tea.Quit

	case key.Matches(message, model.keys.Cancel):
		if model.mode == modeSearch {
			model.search = nil
			model.searchNotice = ""
		}
		model.mode = modeNormal
		model.input = ""

	case key.Matches(message, model.keys.Confirm):
		mode := model.mode
		model.mode = modeNormal
		if mode == modeSearch {
			model.confirmSearch()
			return model, nil
		}
		return model, model.save()

	case message.Type == tea.KeyBackspace:
		if runes := []rune(model.input); len(runes) > 0 {
			model.input = string(runes[:len(runes)-1])
		}

	case message.Type == tea.KeyRunes || message.Type == tea.KeySpace:
		if message.Type == tea.KeySpace {
			model.input += " "
		} else {
			model.input += string(message.Runes)
		}
	}
	return model, nil
}

func (model *Model) confirmSearch() {
	pattern := model.input
	model.input = ""
	if pattern == "" {
		model.search = nil
		model.searchNotice = ""
		return
	}
	expression, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		model.search = nil
		model.searchNotice = "Invalid regex: " + err.Error()
		return
	}
	model.search = expression
	matches := 0
	for _, captured := range model.lines {
		if expression.MatchString(captured.message) {
			matches++
		}
	}
	model.searchNotice = fmt.Sprintf("%d matches", matches)
}

func (model *Model) togglePause() {
	model.paused = !model.paused
	if model.paused {
		model.addSystem(lineNotice, "Paused capture")
		return
	}
	pending := model.pending
	model.pending = nil
	for _, captured := range pending {
		model.append(captured)
	}
	model.addSystem(lineNotice, "Resumed capture")
}

// save writes a snapshot of the buffer in the background.
func (model *Model) save() tea.Cmd {
	path := strings.TrimSpace(model.input)
	model.input = ""
	if path == "" {
		path = model.config.Project + "_logs.txt"
	}
	if !filepath.IsAbs(path) && model.config.Dir != "" {
		path = filepath.Join(model.config.Dir, path)
	}
	snapshot := make([]string, len(model.lines))
	for index, captured := range model.lines {
		snapshot[index] = captured.plain()
	}
	return func() tea.Msg {
		content := strings.Join(snapshot, "\n")
		if len(snapshot) > 0 {
			content += "\n"
		}
		err := os.WriteFile(path, []byte(content), 0o644)
		return savedMsg{path: path, count: len(snapshot), err: err}
	}
}

func restart(process Process) tea.Cmd {
	return func() tea.Msg {
		launch, err := process.Restart(context.Background())
		return restartedMsg{launch: launch, err: err}
	}
}

func (model *Model) handleMouse(message tea.MouseMsg) {
	switch message.Button {
	case tea.MouseButtonWheelUp:
		model.scrollUp(wheelStep)
	case tea.MouseButtonWheelDown:
		model.scrollDown(wheelStep)
	case tea.MouseButtonLeft:
		if message.Action != tea.MouseActionPress {
			return
		}
		row := message.Y - logRowsTop
		start, end := model.visibleRange()
		if row < 0 || start+row >= end {
			return
		}
		model.selected = start + row
		model.autoScroll = false
	}
}

func recordLine(record logrecord.Record) line {
	instant := record.Time()
	return line{
		time:    instant,
		level:   record.Data.Level,
		message: ansi.Strip(record.Data.Message),
		kind:    lineRecord,
	}
}

func (model *Model) addSystem(kind lineKind, message string) {
	model.append(line{
		time:    model.config.Clock.Now(),
		level:   logrecord.LevelInfo,
		message: message,
		kind:    kind,
	})
}

// append adds one line, evicting the oldest beyond MaxLines. A view
// scrolled away from the bottom stays on the same lines.
func (model *Model) append(captured line) {
	model.lines = append(model.lines, captured)
	if excess := len(model.lines) - model.config.MaxLines; excess > 0 {
		model.lines = model.lines[excess:]
		if model.selected >= 0 {
			model.selected -= excess
			if model.selected < 0 {
				model.selected = -1
			}
		}
	}
	if model.autoScroll {
		model.scrollOffset = 0
		return
	}
	model.scrollOffset++
	model.clampScroll()
}

// plain is the line as saved and copied: [HH:MM:SS] Level message.
func (l line) plain() string {
	level := string(l.level)
	if level != "" {
		level = strings.ToUpper(level[:1]) + level[1:]
	}
	return fmt.Sprintf("[%s] %s %s", l.time.Local().Format(time.TimeOnly), level, l.message)
}

func (model Model) levelFilter() logrecord.Level {
	return levelFilters[model.filterIndex]
}

// matches reports whether captured passes both the level filter and
// the search. System lines ignore the level filter.
func (model Model) matches(captured line) bool {
	if filter := model.levelFilter(); filter != "" && !captured.system() && captured.level != filter {
		return false
	}
	return model.search == nil || model.search.MatchString(captured.message)
}

func (model Model) filtered() bool {
	return model.levelFilter() != "" || model.search != nil
}

func (model Model) matchCount() int {
	count := 0
	for _, captured := range model.lines {
		if model.matches(captured) {
			count++
		}
	}
	return count
}

func (model *Model) scrollUp(count int) {
	model.scrollOffset = min(model.scrollOffset+count, model.maxScroll())
	model.autoScroll = false
}

func (model *Model) scrollDown(count int) {
	if model.scrollOffset > count {
		model.scrollOffset -= count
		return
	}
	model.scrollOffset = 0
	model.autoScroll = true
}

func (model Model) maxScroll() int {
	return max(0, len(model.lines)-model.logRows())
}

func (model *Model) clampScroll() {
	model.scrollOffset = min(model.scrollOffset, model.maxScroll())
}

// visibleRange returns the half-open range of lines on screen.
func (model Model) visibleRange() (start, end int) {
	end = len(model.lines) - model.scrollOffset
	start = max(0, end-model.logRows())
	return start, end
}
