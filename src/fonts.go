package readnotes

import "strings"

// ReaderFont is one of the fonts a reader can pick for their notes.
type ReaderFont int

const (
	FontSystem ReaderFont = iota
	FontSerif
	FontCursive
	FontSansSerif
	FontInter
	FontDyslexic
	FontPoppins
)

// Typeface is the concrete face a ReaderFont renders with. Family is a PDF
// core font name used directly when File is empty, or used as the
// registration name for File otherwise.
type Typeface struct {
	Family string
	Style  string
	File   string
}

// DefaultTypeface is what every unresolvable font falls back to.
var DefaultTypeface = Typeface{Family: "Helvetica"}

// UnicodeFontFile, when present in the font directory, replaces the core PDF
// faces. Core faces only encode cp1252, so text in other scripts needs it.
const UnicodeFontFile = "reader_unicode_font.ttf"

type fontInfo struct {
	id       string
	name     string
	typeface Typeface
}

var fontTable = []fontInfo{
	FontSystem:    {id: "system", name: "System Default", typeface: DefaultTypeface},
	FontSerif:     {id: "serif", name: "Serif", typeface: Typeface{Family: "Times"}},
	FontCursive:   {id: "cursive", name: "Cursive", typeface: Typeface{Family: "Times", Style: "I"}},
	FontSansSerif: {id: "sans-serif", name: "SansSerif", typeface: Typeface{Family: "Helvetica"}},
	FontInter:     {id: "inter", name: "Inter", typeface: Typeface{Family: "Inter", File: "reader_inter_font.ttf"}},
	FontDyslexic:  {id: "dyslexic", name: "OpenDyslexic", typeface: Typeface{Family: "Inter", File: "reader_inter_font.ttf"}},
	FontPoppins:   {id: "poppins", name: "Poppins", typeface: Typeface{Family: "Poppins", File: "poppins_regular.ttf"}},
}

func (f ReaderFont) info() fontInfo {
	if f < 0 || int(f) >= len(fontTable) {
		return fontTable[FontSystem]
	}
	return fontTable[f]
}

// ID is the stable identifier stored in notes.
func (f ReaderFont) ID() string { return f.info().id }

// Name is the display name shown to readers.
func (f ReaderFont) Name() string { return f.info().name }

// Typeface returns the face used to render this font.
func (f ReaderFont) Typeface() Typeface { return f.info().typeface }

func (f ReaderFont) String() string { return f.ID() }

// AllFonts lists every reader font in declaration order.
func AllFonts() []ReaderFont {
	fonts := make([]ReaderFont, len(fontTable))
	for i := range fontTable {
		fonts[i] = ReaderFont(i)
	}
	return fonts
}

// FontByID looks a font up by id. Unknown ids resolve to FontSystem.
func FontByID(id string) ReaderFont {
	for i, info := range fontTable {
		if info.id == id {
			return ReaderFont(i)
		}
	}
	return FontSystem
}

// FontByName looks a font up by display name, ignoring case.
// Unknown names resolve to FontSystem.
func FontByName(name string) ReaderFont {
	for i, info := range fontTable {
		if strings.EqualFold(info.name, name) {
			return ReaderFont(i)
		}
	}
	return FontSystem
}
