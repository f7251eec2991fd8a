package readnotes

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "title": "Walden",
  "entries": [
    {"text": "I went to the woods", "thoughts": "deliberately", "imageUrl": "https://x.test/pond.png"},
    {"text": "Simplify, simplify.", "thoughts": ""}
  ],
  "summary": "Live deliberately.",
  "font": "serif",
  "background": "parchment"
}`

func TestDecodeNote(t *testing.T) {
	note, err := DecodeNote(strings.NewReader(sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "Walden", note.Title)
	require.Len(t, note.Entries, 2)
	assert.Equal(t, "https://x.test/pond.png", note.Entries[0].ImageURL)
	assert.False(t, note.Entries[1].HasImage())
	assert.True(t, note.HasSummary())
	assert.Equal(t, FontSerif, note.ReaderFont())
	assert.Equal(t, DefaultFontSize, note.FontSize)
	assert.Equal(t, "parchment", note.Background)
}

func TestDecodeNoteRejectsUnknownFields(t *testing.T) {
	_, err := DecodeNote(strings.NewReader(`{"title": "x", "colour": "red"}`))
	assert.Error(t, err)

	_, err = DecodeNote(strings.NewReader(`{"title": `))
	assert.Error(t, err)
}

func TestLoadNote(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "walden.json")
	mdPath := filepath.Join(dir, "walden.md")
	txtPath := filepath.Join(dir, "walden.txt")
	require.NoError(t, os.WriteFile(jsonPath, []byte(sampleJSON), 0o644))
	require.NoError(t, os.WriteFile(mdPath, []byte("# Walden\n\n> I went to the woods\n"), 0o644))
	require.NoError(t, os.WriteFile(txtPath, []byte("plain"), 0o644))

	fromJSON, err := LoadNote(jsonPath)
	require.NoError(t, err)
	fromMD, err := LoadNote(mdPath)
	require.NoError(t, err)
	assert.Equal(t, fromJSON.Title, fromMD.Title)
	assert.Equal(t, fromJSON.Entries[0].Text, fromMD.Entries[0].Text)

	_, err = LoadNote(txtPath)
	assert.ErrorContains(t, err, "unsupported note format")

	_, err = LoadNote(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListNoteFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.md", "c.markdown", "notes.txt", ".hidden.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	files, err := ListNoteFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.md"),
		filepath.Join(dir, "b.json"),
		filepath.Join(dir, "c.markdown"),
	}, files)

	_, err = ListNoteFiles(t.TempDir())
	assert.ErrorContains(t, err, "no note files")
}

func TestIsNoteFile(t *testing.T) {
	assert.True(t, IsNoteFile("walden.json"))
	assert.True(t, IsNoteFile("/notes/Meditations.MD"))
	assert.True(t, IsNoteFile("a.markdown"))
	assert.False(t, IsNoteFile("notes.txt"))
	assert.False(t, IsNoteFile(".walden.json"))
	assert.False(t, IsNoteFile(TempFilePrefix+"123"))
}

func TestMatchNoteFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"top.md", "a/one.md", "a/b/two.md", "a/three.json", "a/skip.txt", ".git/x.md"} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("# x"), 0o644))
	}

	files, err := MatchNoteFiles(dir, "**/*.md")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a", "b", "two.md"),
		filepath.Join(dir, "a", "one.md"),
		filepath.Join(dir, "top.md"),
	}, files)

	files, err = MatchNoteFiles(dir, "a/*")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a", "one.md"),
		filepath.Join(dir, "a", "three.json"),
	}, files)

	_, err = MatchNoteFiles(dir, "**/*.pdf")
	assert.ErrorContains(t, err, "no note files")

	_, err = MatchNoteFiles(dir, "a/[")
	assert.ErrorContains(t, err, "invalid note pattern")
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "walden.pdf", OutputName("/notes/walden.json", ".pdf"))
	assert.Equal(t, "my.notes.pdf", OutputName("my.notes.md", ".pdf"))
	assert.Equal(t, "README.pdf", OutputName("README", ".pdf"))
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.pdf")
	require.NoError(t, WriteFileAtomic(path, []byte("hello"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteAtomicLeavesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.pdf")
	boom := errors.New("render failed")

	err := WriteAtomic(path, 0o644, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteAtomicKeepsPreviousFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, WriteFileAtomic(path, []byte("old"), 0o644))

	err := WriteAtomic(path, 0o644, func(w io.Writer) error {
		io.WriteString(w, "new but broken")
		return errors.New("cancelled")
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}
