package xmlnorm

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ErrorKind distinguishes the two fatal conditions NormalizeLegacyProperties
// can raise. The das2 package translates these into its own typed Error
// kinds (MalformedProperty / UnexpectedElement) without this package needing
// to depend on it.
type ErrorKind string

// Error kinds returned by NormalizeLegacyProperties.
const (
	ErrMalformedProperty ErrorKind = "MalformedProperty"
	ErrUnexpectedElement ErrorKind = "UnexpectedElement"
)

// NormalizeError reports a fatal condition found while rewriting legacy
// attribute-form properties.
type NormalizeError struct {
	Kind ErrorKind
	Line int
	Tag  string
	Attr string
	Msg  string
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("xmlnorm: %s at line %d: %s", e.Kind, e.Line, e.Msg)
}

// NormalizeLegacyProperties parses a legacy das2.2 header and rewrites every
// attribute-form <properties .../> element into the canonical
// <properties><p name="..." type="...">value</p>...</properties> shape.
// Any literal <p> element present in the input is rejected, guaranteeing
// every <p> in the result tree was synthesized here. Character data outside
// <properties> is preserved, trimmed only at its edges. Source line numbers
// of the original <properties> element are copied onto every synthesized
// child.
func NormalizeLegacyProperties(r io.Reader) (*Element, error) {
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
			line := lineForOffset(raw, preOffset)
			if t.Name.Local == "p" {
				return nil, &NormalizeError{
					Kind: ErrUnexpectedElement,
					Line: line,
					Tag:  "p",
					Msg:  "literal <p> element in un-normalized legacy header",
				}
			}
			var el *Element
			if t.Name.Local == "properties" {
				el = &Element{Name: "properties", Line: line}
				for _, a := range t.Attr {
					// encoding/xml splits a "Type:Name" key into Space and
					// Local; rejoin them so the type prefix is not lost.
					key := a.Name.Local
					if a.Name.Space != "" {
						key = a.Name.Space + ":" + a.Name.Local
					}
					name, typ, err := splitPropertyKey(key)
					if err != nil {
						return nil, &NormalizeError{
							Kind: ErrMalformedProperty,
							Line: line,
							Attr: key,
							Msg:  err.Error(),
						}
					}
					p := &Element{Name: "p", Line: line, CharData: strings.TrimSpace(a.Value)}
					p.SetAttr("name", name)
					if typ != "" {
						p.SetAttr("type", typ)
					}
					el.Children = append(el.Children, p)
				}
			} else {
				el = &Element{Name: t.Name.Local, Line: line, Attrs: convertAttrs(t.Attr)}
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
				parent := stack[len(stack)-1]
				if parent.Name != "properties" {
					text := strings.TrimSpace(string(t))
					if text != "" {
						parent.CharData += text
					}
				}
			}
		}
	}
	if root == nil {
		return nil, &NormalizeError{Kind: ErrUnexpectedElement, Line: 1, Msg: "empty document"}
	}
	return root, nil
}

// splitPropertyKey separates a legacy properties attribute key into its
// (name, type) parts. A bare key ("sourceId") has no type. A "Type:Name" key
// must split into exactly two non-empty parts; the "String" type prefix is
// elided since string is the default.
func splitPropertyKey(key string) (name string, typ string, err error) {
	if !strings.Contains(key, ":") {
		return key, "", nil
	}
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("property key %q does not split into exactly two non-empty parts", key)
	}
	typ = parts[0]
	name = parts[1]
	if typ == "String" {
		typ = ""
	}
	return name, typ, nil
}
