// Package gif renders played games as animated GIFs, one frame per move.
package gif

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"math"

	"github.com/azplay/azplay/game"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

var regular *truetype.Font

const (
	dpi             = 72.0
	fontsize        = 14.0
	lineheight      = 1.2
	dummyLongString = `Generation 1000, Game 10000`

	moveDelay = 50  // hundredths of a second
	endDelay  = 300 // the final position stays a little longer
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

var (
	background = color.White
	ink        = color.Black
	crossInk   = color.RGBA{0xc0, 0x20, 0x20, 0xff}
	noughtInk  = color.RGBA{0x20, 0x40, 0xc0, 0xff}

	globPalette = color.Palette{background, ink, crossInk, noughtInk}
)

// Encoder is a structure that encodes a game state according to the azplay.OutputEncoder interface
type Encoder struct {
	Cell int // size of a board position in pixels
	font.Drawer

	w    io.Writer
	out  *gif.GIF
	face font.Face

	H, W        int
	pad         int // padding so everything don't start at the topleft
	dy          int // line height
	initialized bool
}

// NewEncoder creates an encoder writing to w when flushed.
func NewEncoder(w io.Writer, cell int) *Encoder {
	return &Encoder{
		Cell: cell,
		w:    w,
		out:  &gif.GIF{LoopCount: 0},
		pad:  10,
	}
}

func (enc *Encoder) init(rows, cols int) {
	enc.face = truetype.NewFace(regular, &truetype.Options{
		Size:    fontsize,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	enc.Drawer.Src = image.NewUniform(ink)
	enc.Drawer.Face = enc.face
	enc.dy = int(math.Ceil(fontsize * lineheight * dpi / 72))

	textW := font.MeasureString(enc.face, dummyLongString).Ceil()
	enc.W = maxInt(cols*enc.Cell, textW) + 2*enc.pad
	enc.H = rows*enc.Cell + 3*enc.dy + 2*enc.pad // 3 lines of text: game name, game number, and winner
	enc.initialized = true
}

// Encode draws the current position of a game as a new frame.
func (enc *Encoder) Encode(ms game.MetaState) error {
	s := ms.State()
	if s == nil {
		return errors.New("Cannot encode a game without a state")
	}
	rows, cols := s.BoardSize()
	if !enc.initialized {
		enc.init(rows, cols)
	}

	im := image.NewPaletted(image.Rect(0, 0, enc.W, enc.H), globPalette)
	draw.Draw(im, im.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	enc.drawBoard(im, s, rows, cols)

	y := enc.pad + rows*enc.Cell + enc.dy
	enc.Dst = im
	enc.Dot = fixed.P(enc.pad, y)
	enc.DrawString(ms.Name())
	y += enc.dy

	enc.Dot = fixed.P(enc.pad, y)
	enc.DrawString(fmt.Sprintf("Generation %d, Game %d", ms.Epoch(), ms.GameNumber()))
	y += enc.dy

	delay := moveDelay
	if ended, winner := s.Ended(); ended {
		delay = endDelay
		enc.Dot = fixed.P(enc.pad, y)
		if winner == game.Nobody {
			enc.DrawString("Draw")
		} else {
			enc.DrawString(fmt.Sprintf("Winner: %s", winner))
		}
	}
	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, delay)
	return nil
}

func (enc *Encoder) drawBoard(im *image.Paletted, s *game.State, rows, cols int) {
	c := enc.Cell
	for r := 0; r <= rows; r++ {
		draw.Draw(im, image.Rect(enc.pad, enc.pad+r*c, enc.pad+cols*c+1, enc.pad+r*c+1), image.NewUniform(ink), image.Point{}, draw.Src)
	}
	for col := 0; col <= cols; col++ {
		draw.Draw(im, image.Rect(enc.pad+col*c, enc.pad, enc.pad+col*c+1, enc.pad+rows*c+1), image.NewUniform(ink), image.Point{}, draw.Src)
	}

	for i := 0; i < s.ActionSpace(); i++ {
		row, col := s.Coord(game.Action(i))
		r := image.Rect(enc.pad+col*c, enc.pad+row*c, enc.pad+(col+1)*c, enc.pad+(row+1)*c)
		switch s.At(i) {
		case game.Black:
			cross(c).Draw(im, r, image.NewUniform(crossInk), image.Point{})
		case game.White:
			nought(c).Draw(im, r, image.NewUniform(noughtInk), image.Point{})
		}
	}
}

// cross rasterizes an X in a square of size c.
func cross(c int) *vector.Rasterizer {
	z := vector.NewRasterizer(c, c)
	f := float32(c)
	m, t := f*0.2, f*0.07 // margin, half thickness
	z.MoveTo(m, m+t)
	z.LineTo(m+t, m)
	z.LineTo(f-m, f-m-t)
	z.LineTo(f-m-t, f-m)
	z.ClosePath()

	z.MoveTo(f-m-t, m)
	z.LineTo(f-m, m+t)
	z.LineTo(m+t, f-m)
	z.LineTo(m, f-m-t)
	z.ClosePath()
	return z
}

// nought rasterizes a ring in a square of size c.
func nought(c int) *vector.Rasterizer {
	z := vector.NewRasterizer(c, c)
	f := float32(c)
	centre := f / 2
	outer, inner := f*0.32, f*0.2
	const segments = 32
	circle := func(radius float32, clockwise bool) {
		for i := 0; i <= segments; i++ {
			θ := 2 * math.Pi * float64(i) / segments
			if !clockwise {
				θ = -θ
			}
			x := centre + radius*float32(math.Cos(θ))
			y := centre + radius*float32(math.Sin(θ))
			if i == 0 {
				z.MoveTo(x, y)
			} else {
				z.LineTo(x, y)
			}
		}
		z.ClosePath()
	}
	circle(outer, true)
	circle(inner, false)
	return z
}

// Frames returns the number of frames encoded since the last flush.
func (enc *Encoder) Frames() int { return len(enc.out.Image) }

// Flush writes the gif into the writer, and starts a new one.
func (enc *Encoder) Flush() error {
	if len(enc.out.Image) == 0 {
		return nil
	}
	if err := gif.EncodeAll(enc.w, enc.out); err != nil {
		return errors.WithStack(err)
	}
	enc.out = &gif.GIF{LoopCount: 0}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
