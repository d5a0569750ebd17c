package xmlnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLegacyPropertiesRewritesBareKey(t *testing.T) {
	t.Parallel()
	root, err := NormalizeLegacyProperties(strings.NewReader(`<stream><properties sourceId="das2_server"/></stream>`))
	assert.NoError(t, err)

	props := root.ChildrenNamed("properties")
	assert.Len(t, props, 1)
	ps := props[0].ChildrenNamed("p")
	assert.Len(t, ps, 1)

	name, ok := ps[0].Attr("name")
	assert.True(t, ok)
	assert.Equal(t, "sourceId", name)
	_, hasType := ps[0].Attr("type")
	assert.False(t, hasType)
	assert.Equal(t, "das2_server", ps[0].CharData)
}

func TestNormalizeLegacyPropertiesSplitsTypedKey(t *testing.T) {
	t.Parallel()
	root, err := NormalizeLegacyProperties(strings.NewReader(`<stream><properties Datum:xTagWidth="86400"/></stream>`))
	assert.NoError(t, err)

	p := root.ChildrenNamed("properties")[0].ChildrenNamed("p")[0]
	name, _ := p.Attr("name")
	typ, _ := p.Attr("type")
	assert.Equal(t, "xTagWidth", name)
	assert.Equal(t, "Datum", typ)
}

func TestNormalizeLegacyPropertiesElidesStringType(t *testing.T) {
	t.Parallel()
	root, err := NormalizeLegacyProperties(strings.NewReader(`<stream><properties String:title="a title"/></stream>`))
	assert.NoError(t, err)

	p := root.ChildrenNamed("properties")[0].ChildrenNamed("p")[0]
	_, hasType := p.Attr("type")
	assert.False(t, hasType)
}

func TestNormalizeLegacyPropertiesTrimsAttributeValue(t *testing.T) {
	t.Parallel()
	root, err := NormalizeLegacyProperties(strings.NewReader(`<stream><properties Datum:xTagWidth="128.000000 s "/></stream>`))
	assert.NoError(t, err)

	p := root.ChildrenNamed("properties")[0].ChildrenNamed("p")[0]
	assert.Equal(t, "128.000000 s", p.CharData)
}

func TestNormalizeLegacyPropertiesRejectsLiteralP(t *testing.T) {
	t.Parallel()
	_, err := NormalizeLegacyProperties(strings.NewReader(`<stream><p name="x">1</p></stream>`))
	assert.Error(t, err)
	var ne *NormalizeError
	assert.ErrorAs(t, err, &ne)
	assert.Equal(t, ErrUnexpectedElement, ne.Kind)
}

func TestNormalizeLegacyPropertiesMalformedKey(t *testing.T) {
	t.Parallel()
	_, err := NormalizeLegacyProperties(strings.NewReader(`<stream><properties Datum:=""/></stream>`))
	assert.Error(t, err)
	var ne *NormalizeError
	assert.ErrorAs(t, err, &ne)
	assert.Equal(t, ErrMalformedProperty, ne.Kind)
}

func TestNormalizeLegacyPropertiesPreservesPlaneElements(t *testing.T) {
	t.Parallel()
	root, err := NormalizeLegacyProperties(strings.NewReader(`<stream><plane type="y" nitems="100"/></stream>`))
	assert.NoError(t, err)
	planes := root.ChildrenNamed("plane")
	assert.Len(t, planes, 1)
	nitems, ok := planes[0].Attr("nitems")
	assert.True(t, ok)
	assert.Equal(t, "100", nitems)
}
