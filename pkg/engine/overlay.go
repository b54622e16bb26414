package engine

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"lumen/pkg/renderer"
	"lumen/pkg/ui"
)

const overlayPadding = 6

// Overlay draws frame statistics in the top-left corner. Text is clipped
// to the panel.
type Overlay struct {
	Visible bool

	font *ui.Font
	dc   *ui.DrawingContext
}

func NewOverlay() (*Overlay, error) {
	font, err := ui.DefaultFont()
	if err != nil {
		return nil, fmt.Errorf("overlay font: %w", err)
	}
	return &Overlay{Visible: true, font: font, dc: ui.NewDrawingContext()}, nil
}

// Build records the overlay for stats. The returned context is reused by
// the next call.
func (o *Overlay) Build(stats renderer.Statistics) *ui.DrawingContext {
	o.dc.Clear()
	if !o.Visible {
		return o.dc
	}

	lines := []string{
		fmt.Sprintf("FPS: %d", stats.FramesPerSecond),
		fmt.Sprintf("Frame: %.2f ms (%.2f ms capped)", stats.PureFrameTime*1000, stats.CappedFrameTime*1000),
		fmt.Sprintf("Surfaces: %d Lights: %d", stats.DrawnSurfaces, stats.LightsDrawn),
	}
	lineHeight := o.font.Height()
	panel := ui.Rect{X: 8, Y: 8, W: 260, H: float32(len(lines))*lineHeight + 2*overlayPadding}

	o.dc.SetNesting(0)
	o.dc.PushRectFilled(panel, color.NRGBA{A: 160})
	o.dc.CommitGeometry(ui.NoTexture())

	o.dc.SetNesting(1)
	o.dc.PushRectFilled(panel, color.NRGBA{A: 255})
	o.dc.CommitClip()
	for i, line := range lines {
		pos := mgl32.Vec2{panel.X + overlayPadding, panel.Y + overlayPadding + float32(i)*lineHeight}
		o.dc.PushText(o.font, line, pos, color.NRGBA{R: 230, G: 230, B: 230, A: 255})
	}
	o.dc.CommitGeometry(ui.FontTexture(o.font))
	o.dc.SetNesting(0)

	return o.dc
}

// Release frees the font atlas on the GPU
func (o *Overlay) Release() {
	o.font.Atlas().Release()
}
