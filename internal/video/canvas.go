package video

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"time"
)

// Canvas is the output frame geometry shared by every segment.
type Canvas struct {
	Width     int
	Height    int
	FrameRate float64
}

func (c Canvas) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("canvas size %dx%d is invalid", c.Width, c.Height)
	}
	if c.FrameRate <= 0 || math.IsNaN(c.FrameRate) || math.IsInf(c.FrameRate, 0) {
		return fmt.Errorf("canvas frame rate %v is invalid", c.FrameRate)
	}
	return nil
}

func (c Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width, c.Height)
}

// NewFrame allocates a transparent frame.
func (c Canvas) NewFrame() *image.RGBA {
	return image.NewRGBA(c.Bounds())
}

func (c Canvas) FrameBytes() int {
	return c.Width * c.Height * 4
}

// Frames converts a duration to a whole number of frames, rounding to the
// nearest frame.
func (c Canvas) Frames(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * c.FrameRate))
}

// Timestamp of frame n.
func (c Canvas) Timestamp(n int) time.Duration {
	return time.Duration(math.Round(float64(n) * float64(time.Second) / c.FrameRate))
}

// Rate formats the frame rate for ffmpeg arguments.
func (c Canvas) Rate() string {
	return strconv.FormatFloat(c.FrameRate, 'f', -1, 64)
}

func (c Canvas) Size() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

func (c Canvas) String() string {
	return fmt.Sprintf("%s@%sfps", c.Size(), c.Rate())
}

// ChooseCanvas picks the output geometry: the first clip's size and the
// highest frame rate among all clips. Non-zero override fields win. Sizes
// are rounded down to even numbers for 4:2:0 chroma subsampling.
func ChooseCanvas(infos []*Info, override Canvas) (Canvas, error) {
	var c Canvas
	if len(infos) > 0 && infos[0] != nil {
		c.Width = infos[0].Width
		c.Height = infos[0].Height
	}
	for _, info := range infos {
		if info != nil && info.FrameRate > c.FrameRate {
			c.FrameRate = info.FrameRate
		}
	}

	if override.Width > 0 && override.Height > 0 {
		c.Width, c.Height = override.Width, override.Height
	}
	if override.FrameRate > 0 {
		c.FrameRate = override.FrameRate
	}

	c.Width -= c.Width % 2
	c.Height -= c.Height % 2

	if err := c.Validate(); err != nil {
		return Canvas{}, err
	}
	return c, nil
}
