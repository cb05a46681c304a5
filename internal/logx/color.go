package logx

import "github.com/fatih/color"

// colorFor returns the fatih/color attribute used to render a level.
func colorFor(l Level) *color.Color {
	switch l {
	case Debug:
		return color.New(color.FgCyan)
	case Info:
		return color.New(color.FgGreen)
	case Warn:
		return color.New(color.FgYellow)
	case Error, Fatal:
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}
