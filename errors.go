package das2

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// Kind classifies a fatal framing or parsing error. Every Kind maps to
// exactly one of the conditions enumerated in the wire-format reference.
type Kind string

// Error kinds surfaced by PacketReader and its collaborators.
const (
	KindBadFraming          Kind = "BadFraming"
	KindNotDasStream        Kind = "NotDasStream"
	KindUndefinedDataPacket Kind = "UndefinedDataPacket"
	KindTruncatedHeader     Kind = "TruncatedHeader"
	KindTruncatedData       Kind = "TruncatedData"
	KindTruncatedPacket     Kind = "TruncatedPacket"
	KindShortHeader         Kind = "ShortHeader"
	KindShortPacket         Kind = "ShortPacket"
	KindShortDataPacket     Kind = "ShortDataPacket"
	KindBadID               Kind = "BadId"
	KindBadLength           Kind = "BadLength"
	KindInvalidEncoding     Kind = "InvalidEncoding"
	KindMissingAttribute    Kind = "MissingAttribute"
	KindMalformedProperty   Kind = "MalformedProperty"
	KindUnexpectedElement   Kind = "UnexpectedElement"
	KindBadUTF8             Kind = "BadUtf8"
	KindTagTooLong          Kind = "TagTooLong"
	KindUnknownVersion      Kind = "UnknownVersion"
	KindUnknownStreamKind   Kind = "UnknownStreamKind"
	// KindSizeUnknown is an internal consistency error: a legacy data frame
	// was about to be read for an id whose header claims to be defined but
	// whose derived size is missing. It should never surface in practice
	// since size_table and defined_table are always updated together.
	KindSizeUnknown Kind = "SizeUnknown"
)

// Error is the single typed-error shape returned by every collaborator in
// this package. It embeds the formatted cause (built through
// github.com/pkg/errors so %+v on a returned Error carries a stack trace)
// and carries the byte offset and, where meaningful, the offending tag or
// attribute name.
type Error struct {
	Kind   Kind
	Offset int64
	Tag    string
	Attr   string
	cause  error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + " at offset " + strconv.FormatInt(e.Offset, 10)
	if e.Tag != "" {
		msg += " tag=" + e.Tag
	}
	if e.Attr != "" {
		msg += " attr=" + e.Attr
	}
	return msg + ": " + e.cause.Error()
}

// Unwrap exposes the formatted cause so errors.Is/errors.As can see through
// it.
func (e *Error) Unwrap() error { return e.cause }

// Format prints the message followed by the cause's pkg/errors stack trace
// for %+v; every other verb formats the message as Error returns it.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s\n%+v", e.Error(), e.cause)
		return
	}
	fmt.Fprintf(s, fmt.FormatString(s, verb), e.Error())
}

func newError(kind Kind, offset int64, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Offset: offset, cause: errors.Errorf(format, a...)}
}

func newErrorTag(kind Kind, offset int64, tag string, format string, a ...interface{}) *Error {
	err := newError(kind, offset, format, a...)
	err.Tag = tag
	return err
}

func newErrorAttr(kind Kind, offset int64, attr string, format string, a ...interface{}) *Error {
	err := newError(kind, offset, format, a...)
	err.Attr = attr
	return err
}

// BadFramingError reports an unrecognized frame leader, mismatched bracket
// delimiters, or an out-of-range stream-id.
func BadFramingError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindBadFraming, offset, format, a...)
}

// NotDasStreamError reports a legacy stream whose first frame is not [00].
func NotDasStreamError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindNotDasStream, offset, format, a...)
}

// UndefinedDataPacketError reports a legacy data frame seen before its header.
func UndefinedDataPacketError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindUndefinedDataPacket, offset, format, a...)
}

// TruncatedHeaderError reports source exhaustion mid legacy header frame.
func TruncatedHeaderError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindTruncatedHeader, offset, format, a...)
}

// TruncatedDataError reports source exhaustion mid legacy data frame.
func TruncatedDataError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindTruncatedData, offset, format, a...)
}

// TruncatedPacketError reports source exhaustion mid variable-tag frame.
func TruncatedPacketError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindTruncatedPacket, offset, format, a...)
}

// ShortHeaderError reports a legacy header length field below the minimum.
func ShortHeaderError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindShortHeader, offset, format, a...)
}

// ShortPacketError reports a variable-tag LEN field below the minimum.
func ShortPacketError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindShortPacket, offset, format, a...)
}

// ShortDataPacketError reports a variable-tag data frame shorter than the
// length derived from its header.
func ShortDataPacketError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindShortDataPacket, offset, format, a...)
}

// BadIDError reports a non-numeric or negative packet id.
func BadIDError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindBadID, offset, format, a...)
}

// BadLengthError reports a non-numeric length field.
func BadLengthError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindBadLength, offset, format, a...)
}

// InvalidEncodingError reports ValueSizer finding no trailing digits.
func InvalidEncodingError(format string, a ...interface{}) *Error {
	return newError(KindInvalidEncoding, 0, format, a...)
}

// MissingAttributeError reports a required XML attribute absent in strict mode.
func MissingAttributeError(offset int64, attr string, format string, a ...interface{}) *Error {
	return newErrorAttr(KindMissingAttribute, offset, attr, format, a...)
}

// MalformedPropertyError reports a legacy property key not in Name or
// Type:Name form.
func MalformedPropertyError(offset int64, attr string, format string, a ...interface{}) *Error {
	return newErrorAttr(KindMalformedProperty, offset, attr, format, a...)
}

// UnexpectedElementError reports a literal <p> element in an un-normalized
// legacy header.
func UnexpectedElementError(offset int64, tag string, format string, a ...interface{}) *Error {
	return newErrorTag(KindUnexpectedElement, offset, tag, format, a...)
}

// BadUTF8Error reports a header body that is not valid UTF-8.
func BadUTF8Error(offset int64, format string, a ...interface{}) *Error {
	return newError(KindBadUTF8, offset, format, a...)
}

// TagTooLongError reports variable-tag accumulation exceeding the sanity cap.
func TagTooLongError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindTagTooLong, offset, format, a...)
}

// UnknownVersionError reports a stream version LengthDeriver does not know.
func UnknownVersionError(offset int64, format string, a ...interface{}) *Error {
	return newError(KindUnknownVersion, offset, format, a...)
}

// UnknownStreamKindError reports a (version, variant) SchemaResolver cannot map.
func UnknownStreamKindError(format string, a ...interface{}) *Error {
	return newError(KindUnknownStreamKind, 0, format, a...)
}
