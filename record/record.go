// Package record implements the line format sorted by linesort.
//
// A record is one line of the form "<tag>.<text>": a decimal integer tag, a
// '.' separator and a free-form text payload. The text keeps everything after
// the first '.', including the customary leading space, so "5. banana" has
// tag 5 and text " banana". Records order by text (byte-wise) and then by tag.
package record

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Separator splits the tag from the text. Only the first occurrence counts.
const Separator = '.'

// Record is a single parsed line.
type Record struct {
	Tag  int64
	Text string
}

// MalformedRecordError is returned by Parse for lines that do not follow the
// "<tag>.<text>" format.
type MalformedRecordError struct {
	// Line is the offending line without its terminator
	Line string
	// Reason describes what is wrong with the line
	Reason string
}

func (e *MalformedRecordError) Error() string {
	const maxShown = 64
	line := e.Line
	if len(line) > maxShown {
		line = line[:maxShown] + "..."
	}
	return fmt.Sprintf("malformed record %q: %s", line, e.Reason)
}

// Parse splits line at the first '.' and returns the record it encodes.
// The line must not carry its terminator.
func Parse(line string) (Record, error) {
	i := strings.IndexByte(line, Separator)
	if i < 0 {
		return Record{}, &MalformedRecordError{Line: line, Reason: "missing '.' separator"}
	}
	tag, err := strconv.ParseInt(line[:i], 10, 64)
	if err != nil {
		reason := "invalid tag"
		if i == 0 {
			reason = "empty tag"
		} else if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			reason = "tag out of range"
		}
		return Record{}, &MalformedRecordError{Line: line, Reason: reason}
	}
	return Record{Tag: tag, Text: line[i+1:]}, nil
}

// ParseBytes is Parse for a byte slice. The returned text is a copy.
func ParseBytes(line []byte) (Record, error) {
	return Parse(string(line))
}

// Format returns the line encoding of r without a terminator.
func Format(r Record) string {
	return string(r.Append(make([]byte, 0, 21+len(r.Text))))
}

// String implements fmt.Stringer using the line encoding.
func (r Record) String() string {
	return Format(r)
}

// Append appends the line encoding of r to dst and returns the extended slice.
func (r Record) Append(dst []byte) []byte {
	dst = strconv.AppendInt(dst, r.Tag, 10)
	dst = append(dst, Separator)
	return append(dst, r.Text...)
}

// Compare orders records by text, byte for byte, and then by tag ascending.
// It returns a negative number when a sorts before b, zero when they are
// equal and a positive number otherwise.
func Compare(a, b Record) int {
	if c := strings.Compare(a.Text, b.Text); c != 0 {
		return c
	}
	switch {
	case a.Tag < b.Tag:
		return -1
	case a.Tag > b.Tag:
		return 1
	}
	return 0
}

// Less reports whether a sorts strictly before b.
func Less(a, b Record) bool {
	return Compare(a, b) < 0
}

// TrimEOL strips a trailing "\n" or "\r\n" from line.
// A "\r" not followed by "\n" is part of the text.
func TrimEOL(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
		return bytes.TrimSuffix(line, []byte{'\r'})
	}
	return line
}
