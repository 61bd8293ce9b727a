package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmpty(t *testing.T) {
	p := NewHTMLParser()

	text, err := p.Parse("   ")
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestParseParagraphsAndEmphasis(t *testing.T) {
	p := NewHTMLParser()

	text, err := p.Parse(`<html><head><title>x</title></head><body><p>Hello <b>world</b></p><p>Second <em>line</em></p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Hello **world**\n\nSecond _line_", text)
}

func TestParseLinks(t *testing.T) {
	p := NewHTMLParser()

	text, err := p.Parse(`<p><a href="https://example.com/story">Read more</a> or <a href="mailto:desk@example.com">email us</a></p>`)
	require.NoError(t, err)
	assert.Equal(t, "[Read more](https://example.com/story) or email us", text)
}

func TestParseHeadingsAndLists(t *testing.T) {
	p := NewHTMLParser()

	text, err := p.Parse(`<h2>Markets</h2><ul><li>Stocks up</li><li>Bonds flat</li></ul>`)
	require.NoError(t, err)
	assert.Equal(t, "## Markets\n\n- Stocks up\n- Bonds flat", text)
}

func TestParseDropsScriptsStylesAndImages(t *testing.T) {
	p := NewHTMLParser()

	text, err := p.Parse(`<style>.a{color:red}</style><script>alert(1)</script><div>Body<img src="x.png" alt="logo"></div>`)
	require.NoError(t, err)
	assert.Equal(t, "Body", text)
}

func TestParseRemovesInvisibleCharacters(t *testing.T) {
	p := NewHTMLParser()

	text, err := p.Parse("<p>Co\u200bde&nbsp;42</p>")
	require.NoError(t, err)
	assert.Equal(t, "Code 42", text)
}
