package das2

import (
	"strconv"
	"strings"

	"github.com/das2io/das2stream/xmlnorm"
)

// setChildNames names the data-plane children LengthDeriver recognizes in
// version 3.0 (basic) headers. Plain x/y/z/w behave like their *set
// counterparts but with items fixed at 1 (no nitems attribute is consulted).
var setChildNames = map[string]bool{
	"x": true, "y": true, "z": true, "w": true,
	"yset": true, "zset": true, "wset": true,
}

// DeriveLength computes the byte size of one data packet from a parsed
// data-header element, per SPEC_FULL.md §4.2. offset is the wire position of
// the header body, stamped onto any error returned so callers can locate it.
// It returns a nil size (with a nil error) when strict is false and the
// header is malformed; in strict mode the same conditions surface as a typed
// Error.
func DeriveLength(root *xmlnorm.Element, version string, id int, strict bool, offset int64) (*int, error) {
	switch version {
	case "2.2":
		return deriveLength22(root, id, strict, offset)
	case "3.0":
		return deriveLength30(root, id, strict, offset)
	default:
		return nil, UnknownVersionError(offset, "packet %d: unrecognized stream version %q", id, version)
	}
}

func deriveLength22(root *xmlnorm.Element, id int, strict bool, offset int64) (*int, error) {
	total := 0
	for _, child := range root.Children {
		typeAttr, ok := child.Attr("type")
		if !ok {
			if strict {
				return nil, MissingAttributeError(offset, "type", "packet %d: element %q missing required type attribute", id, child.Name)
			}
			return nil, nil
		}
		width, err := ValueSizer(typeAttr)
		if err != nil {
			if strict {
				return nil, stampOffset(err, offset)
			}
			return nil, nil
		}
		items := 1
		if child.Name == "yscan" {
			if n, ok := child.Attr("nitems"); ok {
				parsed, err := strconv.Atoi(n)
				if err != nil {
					if strict {
						return nil, BadLengthError(offset, "packet %d: yscan nitems %q is not numeric", id, n)
					}
					return nil, nil
				}
				items = parsed
			}
		}
		total += width * items
	}
	return &total, nil
}

func deriveLength30(root *xmlnorm.Element, id int, strict bool, offset int64) (*int, error) {
	total := 0
	for _, child := range root.Children {
		if !setChildNames[child.Name] {
			continue
		}
		items := 1
		if strings.HasSuffix(child.Name, "set") {
			if n, ok := child.Attr("nitems"); ok {
				product, err := productOfDims(n)
				if err != nil {
					if strict {
						return nil, BadLengthError(offset, "packet %d: %s nitems %q is malformed", id, child.Name, n)
					}
					return nil, nil
				}
				items = product
			}
		}
		for _, arr := range child.ChildrenNamed("array") {
			encode, ok := arr.Attr("encode")
			if !ok {
				if strict {
					return nil, MissingAttributeError(offset, "encode", "packet %d: %s array missing required encode attribute", id, child.Name)
				}
				return nil, nil
			}
			width, err := ValueSizer(encode)
			if err != nil {
				if strict {
					return nil, stampOffset(err, offset)
				}
				return nil, nil
			}
			total += width * items
		}
	}
	return &total, nil
}

// stampOffset records where on the wire a ValueSizer error was found.
// ValueSizer itself stays a pure function of its type token per SPEC_FULL.md
// §4.1, with no notion of stream position, so the offset is attached here by
// its caller instead.
func stampOffset(err error, offset int64) error {
	if de, ok := err.(*Error); ok {
		de.Offset = offset
	}
	return err
}

// productOfDims multiplies a comma-separated list of dimension sizes. The
// literal "*" denotes a runtime-variable dimension and contributes a factor
// of 1.
func productOfDims(nitems string) (int, error) {
	product := 1
	for _, part := range strings.Split(nitems, ",") {
		part = strings.TrimSpace(part)
		if part == "*" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, err
		}
		product *= n
	}
	return product, nil
}
