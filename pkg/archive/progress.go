package archive

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// mksquashfs renders a 50-column progress bar on stdout.
const progressBarWidth = 50

var (
	// "[====================/          ]  1234 inodes"
	barPattern = regexp.MustCompile(`\[([= ]*)/([= ]*)\]\s+\d+\s+inodes`)
	// "12.5% (456/3650 inodes)"
	pctPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)%\s*\(`)
)

// ParseProgress extracts a 0-100 completion percentage from a line of
// mksquashfs or unsquashfs output. The second return is false for lines
// that carry no progress information. Three formats are recognized: the
// mksquashfs progress bar, its percentage summary, and the bare integers
// emitted by unsquashfs -percentage.
func ParseProgress(line string) (int, bool) {
	line = strings.TrimSpace(line)
	if m := barPattern.FindStringSubmatch(line); m != nil {
		done := len(strings.TrimRight(m[1], " "))
		return clampPercent(done * 100 / progressBarWidth), true
	}
	if m := pctPattern.FindStringSubmatch(line); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return clampPercent(int(f)), true
		}
	}
	if n, err := strconv.Atoi(line); err == nil && n >= 0 && n <= 100 {
		return n, true
	}
	return 0, false
}

func clampPercent(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// consoleProgress renders an in-place percentage line on a writer,
// redrawing only when the percentage changes.
type consoleProgress struct {
	w     io.Writer
	label string
	last  int
}

func newConsoleProgress(w io.Writer, label string) *consoleProgress {
	return &consoleProgress{w: w, label: label, last: -1}
}

// Line consumes one line of command output.
func (p *consoleProgress) Line(line string) {
	pct, ok := ParseProgress(line)
	if !ok || pct == p.last {
		return
	}
	p.last = pct
	fmt.Fprintf(p.w, "\r%s... %3d%%", p.label, pct)
}

// Finish terminates the progress line.
func (p *consoleProgress) Finish(success bool) {
	if p.last < 0 {
		return
	}
	if success {
		fmt.Fprintf(p.w, "\r%s... done\n", p.label)
	} else {
		fmt.Fprintln(p.w)
	}
}
