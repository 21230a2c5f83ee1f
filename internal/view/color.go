package view

const (
	reset  = "\x1b[0m"
	bold   = "\x1b[1m"
	dim    = "\x1b[2m"
	red    = "\x1b[31m"
	green  = "\x1b[32m"
	yellow = "\x1b[33m"
)

// One accent per seat, in player index order.
var playerColors = []string{"\x1b[34m", "\x1b[32m", "\x1b[33m", "\x1b[35m"}

func (r *Renderer) paint(code, s string) string {
	if !r.opts.Color {
		return s
	}
	return code + s + reset
}

func (r *Renderer) playerColor(index int, s string) string {
	if index < 0 || index >= len(playerColors) {
		return s
	}
	return r.paint(playerColors[index], s)
}
