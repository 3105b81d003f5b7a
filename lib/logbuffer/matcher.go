// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logbuffer

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Matcher decides whether a message matches a search.
type Matcher interface {
	Match(message string) bool
}

// Substring returns a case-insensitive substring matcher. The empty
// query matches every message.
func Substring(query string) Matcher {
	return substringMatcher{needle: strings.ToLower(query)}
}

type substringMatcher struct {
	needle string
}

func (m substringMatcher) Match(message string) bool {
	return strings.Contains(strings.ToLower(message), m.needle)
}

// Regexp compiles a case-insensitive regular expression matcher using
// RE2 syntax.
func Regexp(pattern string) (Matcher, error) {
	compiled, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", pattern, err)
	}
	return regexpMatcher{pattern: compiled}, nil
}

type regexpMatcher struct {
	pattern *regexp.Regexp
}

func (m regexpMatcher) Match(message string) bool {
	return m.pattern.MatchString(message)
}

var fuzzyInit sync.Once

// Fuzzy returns a case-insensitive fuzzy matcher using fzf's V2
// algorithm: every rune of the query must appear in the message in
// order, not necessarily adjacent. The returned matcher reuses a
// scratch slab and must not be shared between goroutines.
func Fuzzy(query string) Matcher {
	fuzzyInit.Do(func() { algo.Init("default") })
	return &fuzzyMatcher{
		pattern: []rune(strings.ToLower(query)),
		slab:    util.MakeSlab(16*1024, 2048),
	}
}

type fuzzyMatcher struct {
	pattern []rune
	slab    *util.Slab
}

func (m *fuzzyMatcher) Match(message string) bool {
	if len(m.pattern) == 0 {
		return true
	}
	chars := util.ToChars([]byte(message))
	result, _ := algo.FuzzyMatchV2(false, false, true, &chars, m.pattern, false, m.slab)
	return result.Start >= 0
}
