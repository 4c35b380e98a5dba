// Package viz renders solved trajectories in the terminal: static
// asciigraph plots and a bubbletea live playback view.
package viz

import "github.com/guptarohit/asciigraph"

const (
	plotWidth  = 80
	plotHeight = 10
)

// Plot renders one series as an ascii graph with a caption.
func Plot(series []float64, caption string) string {
	return asciigraph.Plot(series,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(caption),
	)
}
