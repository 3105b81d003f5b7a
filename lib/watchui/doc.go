// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchui is the interactive view behind "logrelay-agent run
// --watch". Built on bubbletea, it shows the supervised command's
// captured lines as they arrive, with a header naming the project and
// command and a status bar with the pid, uptime, scroll position, and
// delivery counters.
//
// The view never touches the process directly. It restarts the
// command through a [Process], and receives captured records and exits
// as [RecordMsg] and [ExitMsg] sent by the caller, typically from the
// callbacks of an agent.Supervisor. When the command exits, the view
// counts down and quits unless the user restarts it; with auto-quit it
// quits at once.
package watchui
