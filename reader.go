package das2

import (
	"bytes"
	"encoding/binary"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/b71729/bin"
	"github.com/das2io/das2stream/logger"
)

// ContentKind distinguishes the two wire families PacketReader can detect.
// QStream is legacy das1-era content riding the same legacy/variable framing;
// it is detected but otherwise read identically to Das2 content.
type ContentKind string

// Recognized content kinds.
const (
	ContentDas2    ContentKind = "das2"
	ContentQStream ContentKind = "qstream"
)

// PacketReader is a single-threaded, pull-based iterator over one byte
// source. It detects the stream's framing style and version from a
// non-destructive lookahead, then yields Packet values one frame at a time
// via Next until the source is exhausted.
//
// A PacketReader is bound to exactly one Source for its whole lifetime; it
// never seeks and never reads ahead beyond what framing requires.
type PacketReader struct {
	br     bin.Reader
	closer io.Closer
	strict bool

	contentKind  ContentKind
	version      string
	variableTags bool

	firstFrame   bool
	sizeTable    map[int]*int
	definedTable map[int]bool
}

// NewPacketReader constructs a PacketReader over src. It performs a single
// non-destructive lookahead of up to opt.PeekSize bytes to classify the
// stream, then replays those bytes ahead of the source for every subsequent
// read so detection never consumes data the caller's first Next call needs.
func NewPacketReader(src Source, opt Options) (*PacketReader, error) {
	peekSize := opt.PeekSize
	if peekSize <= 0 {
		peekSize = 80
	}

	peek := make([]byte, 0, peekSize)
	for len(peek) < peekSize {
		chunk, err := src.Read(peekSize - len(peek))
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		peek = append(peek, chunk...)
	}

	combined := io.MultiReader(bytes.NewReader(peek), asIOReader(src))
	pr := &PacketReader{
		br:           bin.NewReader(combined, binary.BigEndian),
		strict:       opt.Strict,
		firstFrame:   true,
		sizeTable:    make(map[int]*int),
		definedTable: make(map[int]bool),
	}
	if c, ok := src.(io.Closer); ok {
		pr.closer = c
	}
	pr.detect(peek)
	return pr, nil
}

// detect classifies content kind, version, and framing style from the
// lookahead bytes. Absent any evidence to the contrary it assumes the most
// common case: das2, version 2.2, legacy fixed-tag framing.
func (pr *PacketReader) detect(peek []byte) {
	pr.contentKind = ContentDas2
	pr.version = "2.2"
	pr.variableTags = false

	if len(peek) > 0 && peek[0] == '|' {
		pr.variableTags = true
	}
	s := string(peek)
	if strings.HasPrefix(s, "|Qs|") || strings.Contains(s, "dataset_id") {
		pr.contentKind = ContentQStream
	}
	if strings.Contains(s, "version") && (strings.Contains(s, `"3.0"`) || strings.Contains(s, `'3.0'`)) {
		pr.version = "3.0"
	}
}

// Version returns the stream version PacketReader detected: "2.2" or "3.0".
func (pr *PacketReader) Version() string { return pr.version }

// ContentKind returns the detected content family.
func (pr *PacketReader) ContentKind() ContentKind { return pr.contentKind }

// VariableTags reports whether the stream's first frame used pipe-delimited
// variable-tag framing rather than legacy fixed-tag framing.
func (pr *PacketReader) VariableTags() bool { return pr.variableTags }

// Offset returns the total number of bytes consumed from the source so far,
// counting the replayed lookahead.
func (pr *PacketReader) Offset() int64 { return pr.br.GetPosition() }

// Close releases the underlying source if it implements io.Closer.
func (pr *PacketReader) Close() error {
	if pr.closer != nil {
		return pr.closer.Close()
	}
	return nil
}

// Next reads and returns the next packet on the stream. It returns io.EOF
// (with a nil Packet) when the source is exhausted cleanly between frames;
// any other error is fatal and leaves the reader's position undefined for
// further calls.
func (pr *PacketReader) Next() (Packet, error) {
	start := pr.br.GetPosition()
	lead, err := pr.readExact(4)
	if err != nil {
		// A short or empty read while starting a new frame ends the
		// sequence rather than failing it: until the first byte is seen
		// there is no frame to call truncated.
		return nil, io.EOF
	}

	switch {
	case lead[0] == '|':
		return pr.nextVariableTag(lead, start)
	case lead[0] == '[' || lead[0] == ':':
		if pr.strict && lead[0] == '[' && pr.version == "3.0" {
			return nil, BadFramingError(start, "legacy fixed-tag frame %q seen in strict mode on a version 3.0 stream", lead)
		}
		return pr.nextFixedTag(lead, start)
	default:
		return nil, BadFramingError(start, "unrecognized frame leader byte %q", lead[0])
	}
}

func (pr *PacketReader) readExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := pr.br.ReadBytes(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// nextFixedTag handles legacy "[NN]"/"[xx]"/"[XX]" header frames and
// ":NN:" data frames, per SPEC_FULL.md §4.5a.
func (pr *PacketReader) nextFixedTag(lead []byte, start int64) (Packet, error) {
	open, closeByte := lead[0], lead[3]
	if open == '[' && closeByte != ']' {
		return nil, BadFramingError(start, "malformed legacy header frame %q: expected a closing ']'", lead)
	}
	if open == ':' && closeByte != ':' {
		return nil, BadFramingError(start, "malformed legacy data frame %q: expected a closing ':'", lead)
	}

	idField := string(lead[1:3])
	special := open == '[' && (idField == "xx" || idField == "XX")

	if pr.firstFrame {
		pr.firstFrame = false
		if open != '[' || special || idField != "00" {
			return nil, NotDasStreamError(start, "first frame %q is not a [00] stream header", lead)
		}
	}

	if open == ':' {
		id, err := parseFixedID(idField)
		if err != nil {
			return nil, BadFramingError(start, "malformed legacy data frame id %q", idField)
		}
		return pr.nextFixedData(id, start)
	}

	var id int
	if !special {
		parsed, err := parseFixedID(idField)
		if err != nil {
			return nil, BadFramingError(start, "malformed legacy header frame id %q", idField)
		}
		id = parsed
	}

	lenField, err := pr.readExact(6)
	if err != nil {
		return nil, TruncatedHeaderError(start, "stream ended while reading the 6-digit header length field")
	}
	n, perr := parseFixedLen(lenField)
	if perr != nil {
		return nil, BadLengthError(start, "header length field %q is not numeric", lenField)
	}
	if n < 1 {
		return nil, ShortHeaderError(start, "declared header length %d is below the minimum of 1", n)
	}

	bodyStart := pr.br.GetPosition()
	body, err := pr.readExact(n)
	if err != nil {
		return nil, TruncatedHeaderError(bodyStart, "header declared %d bytes, stream ended early", n)
	}
	if !utf8.Valid(body) {
		return nil, BadUTF8Error(bodyStart, "header body is not valid utf-8")
	}

	if special {
		tag := classifyCommentException(body)
		base := packetBase{version: pr.version, tag: tag, id: -1, content: body, offset: bodyStart}
		logger.Debugf("legacy %s packet len=%d", tag, n)
		return newHeaderPacket(base, true), nil
	}

	pr.definedTable[id] = true
	base := packetBase{version: pr.version, id: id, content: body, offset: bodyStart}

	if id == 0 {
		base.tag = TagStreamHeader
		logger.Debugf("legacy stream header id=%d len=%d", id, n)
		return newHeaderPacket(base, true), nil
	}

	base.tag = TagDataHeader
	dhp := newDataHeaderPacket(base, true, pr.strict)
	tree, terr := dhp.Tree()
	if terr != nil {
		return nil, terr
	}
	size, derr := DeriveLength(tree, pr.version, id, pr.strict, bodyStart)
	if derr != nil {
		return nil, derr
	}
	dhp.presetBaseDataLen(size, nil)
	pr.sizeTable[id] = size
	logger.Debugf("legacy data header id=%d len=%d base_data_len=%s", id, n, formatSize(size))
	return dhp, nil
}

func (pr *PacketReader) nextFixedData(id int, start int64) (Packet, error) {
	if !pr.definedTable[id] {
		return nil, UndefinedDataPacketError(start, "data frame for id %d seen before its header", id)
	}
	size, ok := pr.sizeTable[id]
	if !ok || size == nil {
		return nil, newError(KindSizeUnknown, start, "size unknown for id %d despite a defined header", id)
	}
	body, err := pr.readExact(*size)
	if err != nil {
		return nil, TruncatedDataError(start, "data frame for id %d declared %d bytes, stream ended early", id, *size)
	}
	base := packetBase{version: pr.version, tag: TagData, id: id, content: body}
	logger.Debugf("legacy data packet id=%d len=%d", id, *size)
	return newDataPacket(base), nil
}

// nextVariableTag handles pipe-delimited "|TAG|ID|LEN|body" framing, per
// SPEC_FULL.md §4.5b.
func (pr *PacketReader) nextVariableTag(lead []byte, start int64) (Packet, error) {
	tagBuf := append([]byte(nil), lead...)
	pipes := 0
	for _, c := range tagBuf {
		if c == '|' {
			pipes++
		}
	}
	for pipes < 4 {
		if len(tagBuf) >= 38 {
			return nil, TagTooLongError(start, "variable-tag frame exceeded the 38-byte sanity cap")
		}
		b, err := pr.readExact(1)
		if err != nil {
			return nil, TruncatedPacketError(pr.br.GetPosition(), "stream ended while accumulating a variable-tag frame")
		}
		tagBuf = append(tagBuf, b...)
		if b[0] == '|' {
			pipes++
		}
	}

	parts := bytes.SplitN(tagBuf, []byte("|"), 5)
	if len(parts) < 4 {
		return nil, BadFramingError(start, "malformed variable-tag frame %q", tagBuf)
	}
	tagField, idField, lenField := parts[1], parts[2], parts[3]

	if !utf8.Valid(tagField) {
		return nil, BadUTF8Error(start, "variable-tag TAG field is not valid utf-8")
	}
	tagStr := string(tagField)

	id := 0
	if len(idField) > 0 {
		parsed, err := strconv.Atoi(string(idField))
		if err != nil || parsed < 0 {
			return nil, BadIDError(start, "variable-tag ID field %q is not a non-negative integer", idField)
		}
		id = parsed
	}

	lenN, err := strconv.Atoi(string(lenField))
	if err != nil {
		return nil, BadLengthError(start, "variable-tag LEN field %q is not numeric", lenField)
	}
	if lenN < 2 {
		return nil, ShortPacketError(start, "variable-tag LEN %d is below the minimum of 2", lenN)
	}

	bodyStart := pr.br.GetPosition()
	body, err := pr.readExact(lenN)
	if err != nil {
		return nil, TruncatedPacketError(bodyStart, "variable-tag frame tag=%s id=%d declared %d bytes, stream ended early", tagStr, id, lenN)
	}

	tag := Tag(tagStr)
	base := packetBase{version: pr.version, tag: tag, id: id, content: body, offset: bodyStart}

	switch tag {
	case TagData, TagQStreamData:
		if min, ok := pr.sizeTable[id]; ok && min != nil && lenN < *min {
			return nil, ShortDataPacketError(bodyStart, "data frame tag=%s id=%d length %d below derived minimum %d", tagStr, id, lenN, *min)
		}
		logger.Debugf("variable data packet tag=%s id=%d len=%d", tagStr, id, lenN)
		return newDataPacket(base), nil

	case TagDataHeader:
		if !utf8.Valid(body) {
			return nil, BadUTF8Error(bodyStart, "header body for tag=%s id=%d is not valid utf-8", tagStr, id)
		}
		dhp := newDataHeaderPacket(base, false, pr.strict)
		tree, terr := dhp.Tree()
		if terr != nil {
			return nil, terr
		}
		size, derr := DeriveLength(tree, pr.version, id, pr.strict, bodyStart)
		if derr != nil {
			return nil, derr
		}
		dhp.presetBaseDataLen(size, nil)
		pr.sizeTable[id] = size
		logger.Debugf("variable data header tag=%s id=%d len=%d base_data_len=%s", tagStr, id, lenN, formatSize(size))
		return dhp, nil

	default:
		if !utf8.Valid(body) {
			return nil, BadUTF8Error(bodyStart, "header body for tag=%s id=%d is not valid utf-8", tagStr, id)
		}
		logger.Debugf("header packet tag=%s id=%d len=%d", tagStr, id, lenN)
		return newHeaderPacket(base, false), nil
	}
}

func parseFixedID(s string) (int, error) {
	if len(s) != 2 || !isDigit(s[0]) || !isDigit(s[1]) {
		return 0, errNotTwoDigits
	}
	return strconv.Atoi(s)
}

func parseFixedLen(b []byte) (int, error) {
	for _, c := range b {
		if !isDigit(c) {
			return 0, errNotNumeric
		}
	}
	return strconv.Atoi(string(b))
}

// classifyCommentException distinguishes a legacy [xx]/[XX] sentinel body as
// a comment or an exception by scanning for the leading matching substring;
// it defaults to comment when neither, or only "comment", is found.
func classifyCommentException(body []byte) Tag {
	s := string(body)
	ic := strings.Index(s, "comment")
	ie := strings.Index(s, "exception")
	if ie >= 0 && (ic < 0 || ie < ic) {
		return TagException
	}
	return TagComment
}

func formatSize(n *int) string {
	if n == nil {
		return "nil"
	}
	return strconv.Itoa(*n)
}

var (
	errNotTwoDigits = simpleErr("not two decimal digits")
	errNotNumeric   = simpleErr("not numeric")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

// asIOReader adapts a Source to an io.Reader so it can be wrapped by
// bin.Reader, which is built against the standard library's read contract.
func asIOReader(s Source) io.Reader { return &sourceIOReader{s: s} }

type sourceIOReader struct{ s Source }

func (a *sourceIOReader) Read(p []byte) (int, error) {
	b, err := a.s.Read(len(p))
	if err != nil {
		return 0, err
	}
	if len(b) == 0 {
		return 0, io.EOF
	}
	return copy(p, b), nil
}
