package notecompiler

import "strings"

// Wrap breaks text into lines no wider than maxWidth, splitting only at
// single spaces. A word wider than maxWidth gets a line of its own and is not
// split further. Empty text yields no lines.
func Wrap(text string, maxWidth float64, measure func(string) float64) []string {
	if text == "" {
		return nil
	}

	var lines []string
	words := strings.Split(text, " ")
	currentLine := ""

	for _, word := range words {
		testLine := word
		if currentLine != "" {
			testLine = currentLine + " " + word
		}

		if measure(testLine) > maxWidth {
			if currentLine != "" {
				lines = append(lines, currentLine)
				currentLine = word
			} else {
				lines = append(lines, word)
			}
		} else {
			currentLine = testLine
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}
