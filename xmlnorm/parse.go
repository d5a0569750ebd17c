package xmlnorm

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
)

// ParseTree builds a generic DOM from a well-formed, already-canonical XML
// document (used for v3 headers, which need no attribute-form property
// rewriting). Every element's Line is the source line of its start tag.
func ParseTree(r io.Reader) (*Element, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))

	var stack []*Element
	var root *Element
	for {
		preOffset := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{
				Name:  t.Name.Local,
				Line:  lineForOffset(raw, preOffset),
				Attrs: convertAttrs(t.Attr),
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			} else {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].CharData += string(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("xmlnorm: empty document")
	}
	return root, nil
}

func convertAttrs(attrs []xml.Attr) []Attr {
	out := make([]Attr, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, Attr{Name: a.Name.Local, Value: a.Value})
	}
	return out
}
