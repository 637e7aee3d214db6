package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/xmlstore/backend/internal/models"
	"golang.org/x/net/html/charset"
)

// ErrMalformed is returned when a document is not well-formed XML.
var ErrMalformed = errors.New("malformed document")

// Elements returns a lazy sequence of the element-open events in r, in
// document order. Close events, character data, comments and processing
// instructions are skipped. The sequence stops after yielding an error that
// wraps ErrMalformed if the document is not well-formed.
func Elements(r io.Reader) iter.Seq2[models.Element, error] {
	return func(yield func(models.Element, error) bool) {
		s := newScanner(r)
		for {
			el, err := s.next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(models.Element{}, err)
				return
			}
			if !yield(el, nil) {
				return
			}
		}
	}
}

// Collect drains Elements(r) into a slice.
func Collect(r io.Reader) ([]models.Element, error) {
	var out []models.Element
	for el, err := range Elements(r) {
		if err != nil {
			return out, err
		}
		out = append(out, el)
	}
	return out, nil
}

type scanner struct {
	dec   *xml.Decoder
	open  []xml.Name // names of unclosed elements, innermost last
	roots int
	read  bool // a token has been consumed
}

var byteOrderMark = []byte("\ufeff")

func newScanner(r io.Reader) *scanner {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	return &scanner{dec: dec}
}

// next reads raw tokens so names keep the prefixes written in the document;
// end tags are matched against the open element stack here.
func (s *scanner) next() (models.Element, error) {
	for {
		tok, err := s.dec.RawToken()
		if err == io.EOF {
			if s.roots == 0 {
				return models.Element{}, s.malformed(errors.New("no element found"))
			}
			if len(s.open) > 0 {
				return models.Element{}, s.malformed(errors.New("unexpected EOF"))
			}
			return models.Element{}, io.EOF
		}
		if err != nil {
			return models.Element{}, s.malformed(err)
		}
		first := !s.read
		s.read = true

		switch t := tok.(type) {
		case xml.StartElement:
			if len(s.open) == 0 {
				s.roots++
				if s.roots > 1 {
					return models.Element{}, s.malformed(errors.New("junk after document element"))
				}
			}
			s.open = append(s.open, t.Name)
			return s.element(t)
		case xml.EndElement:
			if len(s.open) == 0 {
				return models.Element{}, s.malformed(fmt.Errorf("unexpected end element </%s>", qualified(t.Name)))
			}
			top := s.open[len(s.open)-1]
			if top != t.Name {
				return models.Element{}, s.malformed(fmt.Errorf("element <%s> closed by </%s>", qualified(top), qualified(t.Name)))
			}
			s.open = s.open[:len(s.open)-1]
		case xml.CharData:
			if len(s.open) > 0 {
				continue
			}
			text := t
			if first {
				text = bytes.TrimPrefix(text, byteOrderMark)
				if len(text) == 0 {
					s.read = false
				}
			}
			if len(bytes.TrimSpace(text)) > 0 {
				return models.Element{}, s.malformed(errors.New("text outside of document element"))
			}
		case xml.ProcInst:
			if t.Target == "xml" && !first {
				return models.Element{}, s.malformed(errors.New("XML declaration not at start of document"))
			}
		}
	}
}

func (s *scanner) malformed(cause error) error {
	line, col := s.dec.InputPos()
	return fmt.Errorf("%w: line %d, column %d: %v", ErrMalformed, line, col, cause)
}

// element reports the local element name and attribute names as written.
// An attribute name may appear only once per element.
func (s *scanner) element(t xml.StartElement) (models.Element, error) {
	el := models.Element{Name: t.Name.Local}
	if len(t.Attr) == 0 {
		return el, nil
	}

	el.Attrs = make([]models.ElementAttr, 0, len(t.Attr))
	seen := make(map[xml.Name]struct{}, len(t.Attr))
	for _, a := range t.Attr {
		if _, dup := seen[a.Name]; dup {
			return models.Element{}, s.malformed(fmt.Errorf("duplicate attribute %q", qualified(a.Name)))
		}
		seen[a.Name] = struct{}{}
		el.Attrs = append(el.Attrs, models.ElementAttr{
			Name:  qualified(a.Name),
			Value: a.Value,
		})
	}
	return el, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
