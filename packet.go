package das2

import (
	"bytes"
	"sync"

	"github.com/das2io/das2stream/xmlnorm"
)

// Tag classifies a packet's role on the wire. For legacy framing the tag is
// derived by PacketReader since the wire form alone does not distinguish all
// six roles (see SPEC_FULL.md §4.5a).
type Tag string

// Recognized packet tags.
const (
	TagStreamHeader Tag = "Hs"
	TagDataHeader   Tag = "Hx"
	TagData         Tag = "Dx"
	TagComment      Tag = "Hc"
	TagException    Tag = "He"
	TagQStreamData  Tag = "Qd"
)

// Packet is the fundamental entity yielded by PacketReader. Polymorphism
// comes from the tagged variant {HeaderPacket, DataHeaderPacket, DataPacket}
// below, not from an inheritance hierarchy: every concrete type embeds the
// same packetBase and adds only the fields its role needs.
type Packet interface {
	Version() string
	Tag() Tag
	ID() int
	Length() int
	Content() []byte
}

type packetBase struct {
	version string
	tag     Tag
	id      int
	content []byte
	// offset is the byte position where this packet's body begins, recorded
	// by PacketReader so errors raised while deriving its XML tree or
	// length can report where on the wire they were detected.
	offset int64
}

func (p *packetBase) Version() string { return p.version }
func (p *packetBase) Tag() Tag         { return p.tag }
func (p *packetBase) ID() int          { return p.id }
func (p *packetBase) Length() int      { return len(p.content) }
func (p *packetBase) Content() []byte  { return p.content }

// HeaderPacket is any packet whose body is XML: stream headers, comments,
// exceptions, and (embedded into DataHeaderPacket below) data headers. Tree
// parses and caches the normalized tree on first call; legacy bodies go
// through xmlnorm.NormalizeLegacyProperties, v3 bodies through
// xmlnorm.ParseTree.
type HeaderPacket struct {
	packetBase
	legacy  bool
	once    sync.Once
	tree    *xmlnorm.Element
	treeErr error
}

func newHeaderPacket(base packetBase, legacy bool) *HeaderPacket {
	return &HeaderPacket{packetBase: base, legacy: legacy}
}

// Tree returns the packet's normalized XML tree, parsing and memoizing it on
// first call. Subsequent calls return the cached result.
func (h *HeaderPacket) Tree() (*xmlnorm.Element, error) {
	h.once.Do(func() {
		if h.legacy {
			h.tree, h.treeErr = xmlnorm.NormalizeLegacyProperties(bytes.NewReader(h.content))
		} else {
			h.tree, h.treeErr = xmlnorm.ParseTree(bytes.NewReader(h.content))
		}
		if h.treeErr != nil {
			h.treeErr = translateXMLNormError(h.treeErr, h.offset)
		}
	})
	return h.tree, h.treeErr
}

func (h *HeaderPacket) presetTree(tree *xmlnorm.Element, err error) {
	h.once.Do(func() {
		h.tree, h.treeErr = tree, err
	})
}

// DataHeaderPacket is a header packet that additionally describes the byte
// size of the data packets it precedes. BaseDataLen is memoized the same way
// Tree is; PacketReader typically pre-populates both caches at construction
// time since it must already perform this parse to fill its own size table,
// satisfying the "at most once" memoization law regardless of who asks
// first.
type DataHeaderPacket struct {
	HeaderPacket
	strict      bool
	sizeOnce    sync.Once
	baseDataLen *int
	lenErr      error
}

func newDataHeaderPacket(base packetBase, legacy bool, strict bool) *DataHeaderPacket {
	return &DataHeaderPacket{HeaderPacket: HeaderPacket{packetBase: base, legacy: legacy}, strict: strict}
}

// BaseDataLen returns the minimum byte length every subsequent Dx packet
// with this packet's id must contain, parsing and deriving it on first call
// if the reader has not already pre-populated it.
func (d *DataHeaderPacket) BaseDataLen() (*int, error) {
	d.sizeOnce.Do(func() {
		tree, err := d.Tree()
		if err != nil {
			d.lenErr = err
			return
		}
		d.baseDataLen, d.lenErr = DeriveLength(tree, d.version, d.id, d.strict, d.offset)
	})
	return d.baseDataLen, d.lenErr
}

func (d *DataHeaderPacket) presetBaseDataLen(n *int, err error) {
	d.sizeOnce.Do(func() {
		d.baseDataLen, d.lenErr = n, err
	})
}

// DataPacket is an opaque payload packet; it carries no XML.
type DataPacket struct {
	packetBase
}

func newDataPacket(base packetBase) *DataPacket {
	return &DataPacket{packetBase: base}
}

// translateXMLNormError converts an xmlnorm.NormalizeError (which carries no
// dependency on this package) into the matching typed Error, stamped with
// the wire offset of the header body it was found in.
func translateXMLNormError(err error, offset int64) error {
	ne, ok := err.(*xmlnorm.NormalizeError)
	if !ok {
		return err
	}
	switch ne.Kind {
	case xmlnorm.ErrMalformedProperty:
		return MalformedPropertyError(offset, ne.Attr, "line %d: %s", ne.Line, ne.Msg)
	case xmlnorm.ErrUnexpectedElement:
		return UnexpectedElementError(offset, ne.Tag, "line %d: %s", ne.Line, ne.Msg)
	default:
		return err
	}
}
