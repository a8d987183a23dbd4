package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	src := []byte(`---
title: Hello
order: 3
tags: [tip, habits]
---

Some **bold** text.
`)

	doc, err := NewParser().Parse(src)
	require.NoError(t, err)

	assert.Equal(t, "Hello", doc.String("title"))
	assert.Equal(t, 3, doc.Int("order"))
	assert.Equal(t, []string{"tip", "habits"}, doc.Strings("tags"))
	assert.Contains(t, string(doc.HTML), "<strong>bold</strong>")
	assert.NotContains(t, string(doc.HTML), "title: Hello")
}

func TestParse_NoFrontmatter(t *testing.T) {
	doc, err := NewParser().Parse([]byte("# Heading"))
	require.NoError(t, err)

	assert.Empty(t, doc.Meta)
	assert.Equal(t, "", doc.String("title"))
	assert.Nil(t, doc.Strings("tags"))
	assert.Contains(t, string(doc.HTML), `<h1 id="heading">Heading</h1>`)
}
