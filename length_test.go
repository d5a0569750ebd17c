package das2

import (
	"strings"
	"testing"

	"github.com/das2io/das2stream/xmlnorm"
	"github.com/stretchr/testify/assert"
)

func parseFixture(t *testing.T, xml string, legacy bool) *xmlnorm.Element {
	t.Helper()
	var tree *xmlnorm.Element
	var err error
	if legacy {
		tree, err = xmlnorm.NormalizeLegacyProperties(strings.NewReader(xml))
	} else {
		tree, err = xmlnorm.ParseTree(strings.NewReader(xml))
	}
	assert.NoError(t, err)
	return tree
}

func TestDeriveLength22SumsPlaneWidths(t *testing.T) {
	t.Parallel()
	tree := parseFixture(t, `<stream><x type="time22"/><y type="float32"/></stream>`, true)
	size, err := DeriveLength(tree, "2.2", 1, false, 0)
	assert.NoError(t, err)
	assert.NotNil(t, size)
	assert.Equal(t, 22+32, *size)
}

func TestDeriveLength22YscanNitems(t *testing.T) {
	t.Parallel()
	tree := parseFixture(t, `<stream><yscan type="float32" nitems="10"/></stream>`, true)
	size, err := DeriveLength(tree, "2.2", 1, false, 0)
	assert.NoError(t, err)
	assert.Equal(t, 320, *size)
}

func TestDeriveLength22MissingTypeNonStrict(t *testing.T) {
	t.Parallel()
	tree := parseFixture(t, `<stream><x/></stream>`, true)
	size, err := DeriveLength(tree, "2.2", 1, false, 0)
	assert.NoError(t, err)
	assert.Nil(t, size)
}

func TestDeriveLength22MissingTypeStrict(t *testing.T) {
	t.Parallel()
	tree := parseFixture(t, `<stream><x/></stream>`, true)
	_, err := DeriveLength(tree, "2.2", 1, true, 77)
	assert.Error(t, err)
	var derr *Error
	assert.ErrorAs(t, err, &derr)
	assert.Equal(t, KindMissingAttribute, derr.Kind)
	assert.Equal(t, int64(77), derr.Offset)
}

func TestDeriveLength30ArraySum(t *testing.T) {
	t.Parallel()
	tree := parseFixture(t, `<packet><x><array encode="float32"/></x></packet>`, false)
	size, err := DeriveLength(tree, "3.0", 1, false, 0)
	assert.NoError(t, err)
	assert.Equal(t, 32, *size)
}

func TestDeriveLength30SetNitemsProduct(t *testing.T) {
	t.Parallel()
	tree := parseFixture(t, `<packet><yset nitems="2,3"><array encode="float64"/></yset></packet>`, false)
	size, err := DeriveLength(tree, "3.0", 1, false, 0)
	assert.NoError(t, err)
	assert.Equal(t, 64*6, *size)
}

func TestDeriveLength30WildcardDimensionIsOne(t *testing.T) {
	t.Parallel()
	tree := parseFixture(t, `<packet><zset nitems="*,4"><array encode="float32"/></zset></packet>`, false)
	size, err := DeriveLength(tree, "3.0", 1, false, 0)
	assert.NoError(t, err)
	assert.Equal(t, 32*4, *size)
}

func TestDeriveLength30PlainChildItemsFixedAtOne(t *testing.T) {
	t.Parallel()
	// A plain "x" child ignores any nitems attribute (only *set children
	// consult it), so it always contributes exactly one item's width per array.
	tree := parseFixture(t, `<packet><x nitems="5"><array encode="float32"/></x></packet>`, false)
	size, err := DeriveLength(tree, "3.0", 1, false, 0)
	assert.NoError(t, err)
	assert.Equal(t, 32, *size)
}

func TestDeriveLength22InvalidEncodingStrictReportsOffset(t *testing.T) {
	t.Parallel()
	tree := parseFixture(t, `<stream><x type="ascii"/></stream>`, true)
	_, err := DeriveLength(tree, "2.2", 1, true, 12)
	assert.Error(t, err)
	var derr *Error
	assert.ErrorAs(t, err, &derr)
	assert.Equal(t, KindInvalidEncoding, derr.Kind)
	assert.Equal(t, int64(12), derr.Offset)
}

func TestDeriveLength30MissingEncodeStrictReportsOffset(t *testing.T) {
	t.Parallel()
	tree := parseFixture(t, `<packet><x><array/></x></packet>`, false)
	_, err := DeriveLength(tree, "3.0", 1, true, 55)
	assert.Error(t, err)
	var derr *Error
	assert.ErrorAs(t, err, &derr)
	assert.Equal(t, KindMissingAttribute, derr.Kind)
	assert.Equal(t, int64(55), derr.Offset)
}

func TestDeriveLengthUnknownVersion(t *testing.T) {
	t.Parallel()
	tree := parseFixture(t, `<stream/>`, true)
	_, err := DeriveLength(tree, "9.9", 1, false, 99)
	assert.Error(t, err)
	var derr *Error
	assert.ErrorAs(t, err, &derr)
	assert.Equal(t, KindUnknownVersion, derr.Kind)
	assert.Equal(t, int64(99), derr.Offset)
}

func TestProductOfDimsWildcardAndWhitespace(t *testing.T) {
	t.Parallel()
	n, err := productOfDims("2, *, 3")
	assert.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestProductOfDimsMalformed(t *testing.T) {
	t.Parallel()
	_, err := productOfDims("2,abc")
	assert.Error(t, err)
}
