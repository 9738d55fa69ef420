// Package render draws the live pitch to a PNG. Debug tooling only: the
// /api/debug/frame endpoint and the snapshot tests use it to eyeball the
// simulation without a game client.
package render

import (
	"bytes"
	"fmt"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"soccer-arena/internal/game"
	"soccer-arena/internal/physics"
	"soccer-arena/internal/world"
)

// scale maps pitch coordinates (3520x1600) to the output image (880x400).
const scale = 0.25

// Renderer draws world snapshots over the static geometry.
type Renderer struct {
	world *world.World
}

// NewRenderer creates a renderer for the loaded world.
func NewRenderer(w *world.World) *Renderer {
	return &Renderer{world: w}
}

// RenderPNG draws one frame and encodes it as PNG.
func (r *Renderer) RenderPNG(snap *game.WorldSnapshot) ([]byte, error) {
	if snap == nil {
		return nil, errors.New("render: nil snapshot")
	}

	w := int(physics.PitchWidth * scale)
	h := int(physics.PitchHeight * scale)
	dc := gg.NewContext(w, h)

	// Grass.
	dc.SetRGB(0.13, 0.45, 0.18)
	dc.Clear()

	// Halfway line and centre circle.
	dc.SetRGBA(1, 1, 1, 0.5)
	dc.SetLineWidth(1.5)
	dc.DrawLine(float64(w)/2, 0, float64(w)/2, float64(h))
	dc.Stroke()
	dc.DrawCircle(float64(w)/2, float64(h)/2, 180*scale)
	dc.Stroke()

	// Static colliders.
	dc.SetRGBA(0.55, 0.55, 0.55, 0.9)
	for _, rect := range r.world.Colliders {
		dc.DrawRectangle(rect.X*scale, rect.Y*scale, rect.Width*scale, rect.Height*scale)
		dc.Fill()
	}

	// Goal zones.
	for _, g := range r.world.Goals {
		if g.Team == world.TeamRed {
			dc.SetRGBA(0.9, 0.2, 0.2, 0.35)
		} else {
			dc.SetRGBA(0.2, 0.4, 0.9, 0.35)
		}
		dc.DrawRectangle(g.X*scale, g.Y*scale, g.Width*scale, g.Height*scale)
		dc.Fill()
	}

	// Players.
	for _, p := range snap.Players {
		switch {
		case p.IsSpectator:
			dc.SetRGBA(0.8, 0.8, 0.8, 0.6)
		case p.IsGhosted:
			dc.SetRGBA(0.6, 0.9, 0.6, 0.5)
		default:
			dc.SetRGB(0.95, 0.95, 0.3)
		}
		dc.DrawCircle(p.X*scale, p.Y*scale, physics.PlayerRadius*scale)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		label := p.ID
		if len(label) > 6 {
			label = label[:6]
		}
		dc.DrawStringAnchored(label, p.X*scale, p.Y*scale-10, 0.5, 0.5)
	}

	// Ball.
	dc.SetRGB(1, 1, 1)
	dc.DrawCircle(snap.Ball.X*scale, snap.Ball.Y*scale, physics.BallRadius*scale)
	dc.Fill()
	dc.SetRGB(0, 0, 0)
	dc.DrawCircle(snap.Ball.X*scale, snap.Ball.Y*scale, physics.BallRadius*scale)
	dc.Stroke()

	// Scoreboard.
	dc.SetRGB(1, 1, 1)
	hud := fmt.Sprintf("%s  red %d - %d blue  tick %d", snap.Status, snap.ScoreRed, snap.ScoreBlue, snap.ServerTick)
	dc.DrawStringAnchored(hud, float64(w)/2, 12, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(err, "encoding frame")
	}
	return buf.Bytes(), nil
}
