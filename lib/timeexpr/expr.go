// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeexpr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bureau-foundation/logrelay/lib/codec"
)

// Expr is a time expression: either a millisecond epoch timestamp or a
// string. The zero Expr is the numeric expression 0 (the Unix epoch).
//
// Expr decodes from JSON and CBOR as either a number or a string, so
// request structs can declare startTime/endTime fields as *Expr and
// accept both forms.
type Expr struct {
	text    string
	millis  int64
	numeric bool
}

// Millis returns a numeric expression for the given milliseconds since
// the Unix epoch.
func Millis(milliseconds int64) Expr {
	return Expr{millis: milliseconds, numeric: true}
}

// String returns a string expression.
func String(text string) Expr {
	return Expr{text: text}
}

// FromFlag converts a command-line value into an expression. Values
// made only of digits are numeric epoch milliseconds; everything else
// is a string expression.
func FromFlag(value string) Expr {
	if value != "" && strings.Trim(value, "0123456789") == "" {
		if milliseconds, err := strconv.ParseInt(value, 10, 64); err == nil {
			return Millis(milliseconds)
		}
	}
	return String(value)
}

// IsNumeric reports whether the expression is a millisecond timestamp.
func (e Expr) IsNumeric() bool { return e.numeric }

// Text returns the string form of a string expression, or the decimal
// milliseconds of a numeric one.
func (e Expr) Text() string {
	if e.numeric {
		return strconv.FormatInt(e.millis, 10)
	}
	return e.text
}

func (e Expr) String() string { return e.Text() }

// MarshalJSON encodes numeric expressions as JSON numbers and string
// expressions as JSON strings.
func (e Expr) MarshalJSON() ([]byte, error) {
	if e.numeric {
		return []byte(strconv.FormatInt(e.millis, 10)), nil
	}
	return json.Marshal(e.text)
}

// UnmarshalJSON accepts a JSON number or a JSON string. Fractional
// millisecond values are truncated.
func (e *Expr) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*e = String(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("time expression must be a number or a string: %w", err)
	}
	return e.setNumber(number.String())
}

// MarshalCBOR mirrors MarshalJSON for the CBOR service protocol.
func (e Expr) MarshalCBOR() ([]byte, error) {
	if e.numeric {
		return codec.Marshal(e.millis)
	}
	return codec.Marshal(e.text)
}

// UnmarshalCBOR accepts a CBOR integer, float, or text string.
func (e *Expr) UnmarshalCBOR(data []byte) error {
	var value any
	if err := codec.Unmarshal(data, &value); err != nil {
		return err
	}
	switch typed := value.(type) {
	case string:
		*e = String(typed)
	case uint64:
		if typed > math.MaxInt64 {
			return fmt.Errorf("time expression %d overflows int64", typed)
		}
		*e = Millis(int64(typed))
	case int64:
		*e = Millis(typed)
	case float64:
		*e = Millis(int64(typed))
	default:
		return fmt.Errorf("time expression must be a number or a string, got %T", value)
	}
	return nil
}

func (e *Expr) setNumber(literal string) error {
	if milliseconds, err := strconv.ParseInt(literal, 10, 64); err == nil {
		*e = Millis(milliseconds)
		return nil
	}
	value, err := strconv.ParseFloat(literal, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("time expression %q is not a finite number", literal)
	}
	*e = Millis(int64(value))
	return nil
}
