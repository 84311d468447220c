// Package dxf reads ASCII DXF drawings into a flat list of raw entities.
//
// Only the HEADER and ENTITIES sections are interpreted. Every entity is kept
// as its ordered list of group code / value pairs so that callers can pick
// the codes they understand and ignore the rest.
package dxf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Document is the decoded content of a DXF file.
type Document struct {
	// Header variables by name (e.g. "$INSUNITS"), each with its value tags.
	Header map[string][]Tag

	// Entities of the ENTITIES section in file order.
	Entities []Entity
}

// Version returns the $ACADVER header value, or "" when absent.
func (d *Document) Version() string {
	if tags := d.Header["$ACADVER"]; len(tags) > 0 {
		return tags[0].String()
	}
	return ""
}

// HeaderInt returns an integer header variable.
func (d *Document) HeaderInt(name string) (int, bool) {
	tags := d.Header[name]
	if len(tags) == 0 {
		return 0, false
	}
	v, err := tags[0].Int()
	return v, err == nil
}

// ReadFile reads and decodes a DXF file.
func ReadFile(filename string) (*Document, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Read(file)
}

// Read decodes a DXF document from r.
func Read(r io.Reader) (*Document, error) {
	s := NewScanner(r)
	doc := &Document{Header: make(map[string][]Tag)}
	sections := 0

	for {
		tag, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if tag.Code != 0 {
			return nil, &SyntaxError{Line: tag.Line, Msg: fmt.Sprintf("unexpected group code %d outside a section", tag.Code)}
		}
		switch tag.String() {
		case "EOF":
			return doc.finish(sections, s)
		case "SECTION":
		default:
			return nil, &SyntaxError{Line: tag.Line, Msg: fmt.Sprintf("expected SECTION, got %q", tag.String())}
		}

		name, err := s.Next()
		if err != nil {
			return nil, unexpectedEOF(err, s)
		}
		if name.Code != 2 {
			return nil, &SyntaxError{Line: name.Line, Msg: "SECTION without name"}
		}
		sections++

		switch name.String() {
		case "HEADER":
			err = readHeader(s, doc)
		case "ENTITIES":
			err = readEntities(s, doc)
		default:
			err = skipSection(s)
		}
		if err != nil {
			return nil, err
		}
	}

	return doc.finish(sections, s)
}

func (d *Document) finish(sections int, s *Scanner) (*Document, error) {
	if sections == 0 {
		return nil, &SyntaxError{Line: s.Line(), Msg: "no SECTION found"}
	}
	dec := newTextDecoder(d)
	for i := range d.Entities {
		d.Entities[i].decodeText(dec)
	}
	return d, nil
}

func unexpectedEOF(err error, s *Scanner) error {
	if errors.Is(err, io.EOF) {
		return &SyntaxError{Line: s.Line(), Msg: "unexpected end of file"}
	}
	return err
}

func isEndSec(t Tag) bool {
	return t.Code == 0 && t.String() == "ENDSEC"
}

// readHeader collects header variables. A variable starts with a code 9
// tag holding its name; the following tags up to the next variable are its
// value.
func readHeader(s *Scanner, doc *Document) error {
	var current string
	for {
		tag, err := s.Next()
		if err != nil {
			return unexpectedEOF(err, s)
		}
		if isEndSec(tag) {
			return nil
		}
		if tag.Code == 9 {
			current = tag.String()
			doc.Header[current] = nil
			continue
		}
		if current != "" {
			doc.Header[current] = append(doc.Header[current], tag)
		}
	}
}

func readEntities(s *Scanner, doc *Document) error {
	var current *Entity
	for {
		tag, err := s.Next()
		if err != nil {
			return unexpectedEOF(err, s)
		}
		if tag.Code == 0 {
			if current != nil {
				doc.Entities = append(doc.Entities, *current)
				current = nil
			}
			if isEndSec(tag) {
				return nil
			}
			current = &Entity{Type: strings.ToUpper(tag.String()), Line: tag.Line}
			continue
		}
		if current == nil {
			return &SyntaxError{Line: tag.Line, Msg: fmt.Sprintf("group code %d before first entity", tag.Code)}
		}
		current.Tags = append(current.Tags, tag)
	}
}

func skipSection(s *Scanner) error {
	for {
		tag, err := s.Next()
		if err != nil {
			return unexpectedEOF(err, s)
		}
		if isEndSec(tag) {
			return nil
		}
	}
}
