package tuitest

import (
	"regexp"
	"strings"
)

// Screen is one rendered terminal frame with the escape codes stripped.
type Screen struct {
	Seq  int
	Text string
}

var (
	clearSequence = regexp.MustCompile(`\x1b\[[0-9;]*J`)
	csiSequence   = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	oscSequence   = regexp.MustCompile(`\x1b\][^\x07]*(\x07|\x1b\\)`)
)

// parseScreens splits the raw stream on clear-screen sequences, which is how
// bubbletea redraws, and normalizes each segment to plain text.
func parseScreens(raw []byte) []Screen {
	cleaned := strings.ReplaceAll(string(raw), "\r", "")
	segments := clearSequence.Split(cleaned, -1)
	screens := make([]Screen, 0, len(segments))
	for _, segment := range segments {
		segment = strings.Trim(segment, "\x00")
		segment = strings.TrimPrefix(segment, "\x1b[H")
		if segment == "" {
			continue
		}
		text := plainText(segment)
		if strings.TrimSpace(text) == "" {
			continue
		}
		screens = append(screens, Screen{Seq: len(screens), Text: text})
	}
	if len(screens) == 0 && len(cleaned) > 0 {
		screens = append(screens, Screen{Seq: 0, Text: plainText(cleaned)})
	}
	return screens
}

// Last returns the final screen; ok is false when nothing was drawn.
func (c *Capture) Last() (Screen, bool) {
	if c == nil || len(c.Screens) == 0 {
		return Screen{}, false
	}
	return c.Screens[len(c.Screens)-1], true
}

// Contains reports whether any screen of the run showed the substring.
func (c *Capture) Contains(substr string) bool {
	if c == nil {
		return false
	}
	for _, screen := range c.Screens {
		if strings.Contains(screen.Text, substr) {
			return true
		}
	}
	return false
}

func plainText(segment string) string {
	segment = oscSequence.ReplaceAllString(segment, "")
	segment = csiSequence.ReplaceAllString(segment, "")
	segment = strings.ReplaceAll(segment, "\x0f", "")
	segment = strings.ReplaceAll(segment, "\x0e", "")

	lines := strings.Split(segment, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
