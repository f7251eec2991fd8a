package readnotes

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// TempFilePrefix marks files that are still being written.
const TempFilePrefix = ".readnotes-tmp-"

// LoadNote reads a note from a .json or .md file.
func LoadNote(path string) (*Note, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening note: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return DecodeNote(f)
	case ".md", ".markdown":
		return ParseMarkdown(f)
	default:
		return nil, fmt.Errorf("unsupported note format %q", filepath.Ext(path))
	}
}

// DecodeNote reads a JSON encoded note. A missing font size gets the default.
func DecodeNote(r io.Reader) (*Note, error) {
	var note Note
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&note); err != nil {
		return nil, fmt.Errorf("decoding note: %w", err)
	}
	if note.FontSize == 0 {
		note.FontSize = DefaultFontSize
	}
	return &note, nil
}

// IsNoteFile reports whether name looks like an exportable note file.
// Hidden files and files still being written are not notes.
func IsNoteFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, TempFilePrefix) {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".json", ".md", ".markdown":
		return true
	}
	return false
}

// ListNoteFiles returns the note files directly inside dir, sorted by name.
func ListNoteFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading note directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsNoteFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no note files found in %s", dir)
	}

	sort.Strings(files)
	return files, nil
}

// MatchNoteFiles returns the note files under root whose slash separated
// path relative to root matches pattern, e.g. "**/*.md". Files inside
// hidden directories are skipped.
func MatchNoteFiles(root, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid note pattern %q", pattern)
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("matching note files: %w", err)
	}

	var files []string
	for _, rel := range matches {
		if !IsNoteFile(rel) || inHiddenDir(rel) {
			continue
		}
		files = append(files, filepath.Join(root, filepath.FromSlash(rel)))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no note files in %s match %q", root, pattern)
	}

	sort.Strings(files)
	return files, nil
}

func inHiddenDir(rel string) bool {
	dirs := strings.Split(path.Dir(rel), "/")
	for _, d := range dirs {
		if len(d) > 1 && strings.HasPrefix(d, ".") {
			return true
		}
	}
	return false
}

// OutputName derives a document file name from a note file path.
func OutputName(notePath, ext string) string {
	base := filepath.Base(notePath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

// WriteFileAtomic writes data to a temp file next to filename and renames it
// into place, so readers never observe a partial file.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return WriteAtomic(filename, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteAtomic streams into a temp file via write and renames it to filename
// only when write succeeds. On failure the temp file is removed.
func WriteAtomic(filename string, perm os.FileMode, write func(w io.Writer) error) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if err := write(tmpFile); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", filename, err)
	}
	return nil
}
