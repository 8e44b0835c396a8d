package sim

import (
	"image"
	"time"

	"github.com/fogleman/gg"

	"obstacar/core"
	"obstacar/nav"
)

// State band colours, indexed by nav.State
var stateColors = [...][3]float64{
	nav.StateIdle:       {0.90, 0.90, 0.90},
	nav.StateNoObstacle: {0.80, 0.95, 0.80},
	nav.StateFar:        {0.85, 0.92, 1.00},
	nav.StateMid:        {1.00, 0.93, 0.75},
	nav.StateNear:       {1.00, 0.80, 0.80},
	nav.StateHold:       {0.85, 0.80, 0.95},
	nav.StateUndecided:  {0.97, 0.97, 0.97},
}

const plotMargin = 40

// Render draws the trace: state bands behind the true distance (grey) and the
// measured distance (blue), with the band thresholds as dashed lines
func (t *Trace) Render(width, height int, bands nav.Bands) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	if len(t.Samples) == 0 {
		return dc.Image()
	}

	end := t.Samples[len(t.Samples)-1].At
	if end <= 0 {
		end = time.Millisecond
	}
	maxCM := float64(bands.Far) * 1.5
	for _, s := range t.Samples {
		if s.Truth > maxCM {
			maxCM = s.Truth
		}
	}

	w := float64(width - 2*plotMargin)
	h := float64(height - 2*plotMargin)
	x := func(at time.Duration) float64 {
		return plotMargin + w*at.Seconds()/end.Seconds()
	}
	y := func(cm float64) float64 {
		if cm > maxCM {
			cm = maxCM
		}
		return plotMargin + h - h*cm/maxCM
	}

	// State bands
	for i, s := range t.Samples {
		from := time.Duration(0)
		if i > 0 {
			from = t.Samples[i-1].At
		}
		c := stateColors[nav.StateIdle]
		if int(s.Status.State) < len(stateColors) {
			c = stateColors[s.Status.State]
		}
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawRectangle(x(from), plotMargin, x(s.At)-x(from)+1, h)
		dc.Fill()
	}

	// Thresholds
	dc.SetRGB(0.5, 0.5, 0.5)
	dc.SetLineWidth(1)
	dc.SetDash(4, 4)
	for _, cm := range []float32{bands.Far, bands.Mid, bands.Near} {
		dc.DrawLine(plotMargin, y(float64(cm)), plotMargin+w, y(float64(cm)))
		dc.Stroke()
	}
	dc.SetDash()

	plotLine := func(value func(Sample) float64) {
		for i, s := range t.Samples {
			if i == 0 {
				dc.MoveTo(x(s.At), y(value(s)))
				continue
			}
			dc.LineTo(x(s.At), y(value(s)))
		}
		dc.Stroke()
	}
	dc.SetLineWidth(2)
	dc.SetRGB(0.4, 0.4, 0.4)
	plotLine(func(s Sample) float64 { return s.Truth })
	dc.SetRGB(0.1, 0.3, 0.9)
	plotLine(func(s Sample) float64 { return float64(s.Measured) })

	// Axes
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(plotMargin, plotMargin+h, plotMargin+w, plotMargin+h)
	dc.DrawLine(plotMargin, plotMargin, plotMargin, plotMargin+h)
	dc.Stroke()
	dc.DrawStringAnchored("0", plotMargin-4, plotMargin+h, 1, 0.5)
	dc.DrawStringAnchored(formatCM(maxCM), plotMargin-4, plotMargin, 1, 0.5)
	dc.DrawStringAnchored(end.Round(time.Millisecond).String(), plotMargin+w, plotMargin+h+14, 1, 0.5)

	return dc.Image()
}

// Plot renders the trace to a PNG file
func (t *Trace) Plot(path string, width, height int, bands nav.Bands) error {
	return gg.SavePNG(path, t.Render(width, height, bands))
}

func formatCM(cm float64) string {
	return core.Itoa(int(cm)) + "cm"
}
