package readnotes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMarkdown = `# The Left Hand of Darkness

Some preamble that belongs to no entry.

> Light is the left hand of darkness
> and darkness the right hand of light.

Two are one, life and death.

![](https://img.test/yin.png)

> The only thing that makes life possible is permanent, intolerable uncertainty.

- not knowing
- what comes next

## Summary:

A story about duality.

Also about ice.
`

func TestParseMarkdown(t *testing.T) {
	note, err := ParseMarkdown(strings.NewReader(sampleMarkdown))
	require.NoError(t, err)

	assert.Equal(t, "The Left Hand of Darkness", note.Title)
	assert.Equal(t, DefaultFontSize, note.FontSize)
	assert.Equal(t, DefaultBackground, note.Background)
	assert.Equal(t, FontSystem, note.ReaderFont())
	require.NoError(t, note.Validate())

	require.Len(t, note.Entries, 2)
	first := note.Entries[0]
	assert.Equal(t, "Light is the left hand of darkness and darkness the right hand of light.", first.Text)
	assert.Equal(t, "Two are one, life and death.", first.Thoughts)
	assert.Equal(t, "https://img.test/yin.png", first.ImageURL)

	second := note.Entries[1]
	assert.Equal(t, "The only thing that makes life possible is permanent, intolerable uncertainty.", second.Text)
	assert.Equal(t, "not knowing what comes next", second.Thoughts)
	assert.Empty(t, second.ImageURL)

	assert.Equal(t, "A story about duality. Also about ice.", note.Summary)
}

func TestParseMarkdownOtherHeadingsEndSummary(t *testing.T) {
	md := "# T\n\n## Summary\n\nshort\n\n## Appendix\n\n> late quote\n\nlate thought\n"
	note, err := ParseMarkdown(strings.NewReader(md))
	require.NoError(t, err)

	assert.Equal(t, "short", note.Summary)
	require.Len(t, note.Entries, 1)
	assert.Equal(t, "late quote", note.Entries[0].Text)
	assert.Equal(t, "late thought", note.Entries[0].Thoughts)
}

func TestParseMarkdownEmpty(t *testing.T) {
	note, err := ParseMarkdown(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, note.Title)
	assert.Empty(t, note.Entries)
	assert.False(t, note.HasSummary())
}
