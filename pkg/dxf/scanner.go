package dxf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// binarySentinel starts every binary DXF file.
var binarySentinel = []byte("AutoCAD Binary DXF")

// Tag is one group code / value pair.
type Tag struct {
	Code  int
	Value string
	Line  int // line number of the group code
}

// String returns the value with surrounding whitespace removed.
func (t Tag) String() string {
	return strings.TrimSpace(t.Value)
}

// Float parses the value as a float. Malformed numbers yield an error.
func (t Tag) Float() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(t.Value), 64)
}

// Int parses the value as an integer.
func (t Tag) Int() (int, error) {
	return strconv.Atoi(strings.TrimSpace(t.Value))
}

// SyntaxError reports malformed group code data.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("dxf: line %d: %s", e.Line, e.Msg)
}

// Scanner reads group code / value pairs from an ASCII DXF stream.
type Scanner struct {
	reader *bufio.Reader
	line   int
	peeked *Tag
	first  bool
}

// NewScanner creates a scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{
		reader: bufio.NewReader(r),
		first:  true,
	}
}

// Next returns the next tag. At the end of input it returns io.EOF.
func (s *Scanner) Next() (Tag, error) {
	if s.peeked != nil {
		t := *s.peeked
		s.peeked = nil
		return t, nil
	}

	if s.first {
		s.first = false
		head, _ := s.reader.Peek(len(binarySentinel))
		if bytes.Equal(head, binarySentinel) {
			return Tag{}, &SyntaxError{Line: 1, Msg: "binary DXF is not supported"}
		}
	}

	codeLine, err := s.readLine()
	if err != nil {
		return Tag{}, err
	}
	codeLine = strings.TrimSpace(codeLine)
	// tolerate blank lines between pairs at the end of a file
	for codeLine == "" {
		if codeLine, err = s.readLine(); err != nil {
			return Tag{}, err
		}
		codeLine = strings.TrimSpace(codeLine)
	}
	lineNo := s.line

	code, err := strconv.Atoi(codeLine)
	if err != nil {
		return Tag{}, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("invalid group code %q", codeLine)}
	}

	value, err := s.readLine()
	if err == io.EOF {
		return Tag{}, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("group code %d without value", code)}
	}
	if err != nil {
		return Tag{}, err
	}

	return Tag{Code: code, Value: value, Line: lineNo}, nil
}

// Peek returns the next tag without consuming it.
func (s *Scanner) Peek() (Tag, error) {
	if s.peeked != nil {
		return *s.peeked, nil
	}
	t, err := s.Next()
	if err != nil {
		return Tag{}, err
	}
	s.peeked = &t
	return t, nil
}

// Line returns the number of lines consumed so far.
func (s *Scanner) Line() int {
	return s.line
}

func (s *Scanner) readLine() (string, error) {
	text, err := s.reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	s.line++
	if s.line == 1 {
		text = strings.TrimPrefix(text, "\ufeff")
	}
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")
	return text, nil
}
