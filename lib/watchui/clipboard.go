// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// copyToClipboard sets the system clipboard with the OSC 52 escape,
// written to /dev/tty beside bubbletea's managed output. Inside tmux
// the sequence is sent both wrapped for passthrough and bare, covering
// either clipboard setting.
func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		if err != nil {
			return nil
		}
		defer tty.Close()

		osc52 := fmt.Sprintf("\x1b]52;c;%s\x07", base64.StdEncoding.EncodeToString([]byte(text)))
		inTmux := os.Getenv("TMUX") != "" ||
			strings.HasPrefix(os.Getenv("TERM"), "tmux") ||
			strings.HasPrefix(os.Getenv("TERM"), "screen")
		if inTmux {
			fmt.Fprintf(tty, "\x1bPtmux;\x1b%s\x1b\\", osc52)
		}
		tty.WriteString(osc52)
		return nil
	}
}
