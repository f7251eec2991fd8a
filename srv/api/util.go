package api

import (
	"fmt"
	"mime"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

func isValidJobID(jobID string) bool {
	if jobID == "" {
		return false
	}
	_, err := uuid.Parse(jobID)
	return err == nil
}

// downloadName turns a note title into a safe PDF file name.
func downloadName(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "notes"
	}
	return name + ".pdf"
}

func contentDisposition(title string) string {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": downloadName(title)})
	if disposition == "" {
		return fmt.Sprintf("attachment; filename=%q", "notes.pdf")
	}
	return disposition
}
