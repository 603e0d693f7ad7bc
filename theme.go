package tutor

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme.
type Theme struct {
	Student int // Student turn accent
	Error   int // Error messages
	Hint    int // Recovery hints under errors
	Muted   int // Status bar, placeholders, code gutters
	Accent  int // Headings, links, spinner
	Bold    int // Emphasis inside assistant turns
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		Student: 4,
		Error:   1,
		Hint:    3,
		Muted:   8,
		Accent:  5,
		Bold:    -1,
	}
}
