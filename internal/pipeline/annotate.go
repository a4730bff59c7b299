package pipeline

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/signlens/internal/detector"
)

// Annotation geometry.
const (
	// BoxOffset pads the bounding box outward on every side, in pixels.
	BoxOffset     = 10
	boxThickness  = 4
	labelGap      = 10
	labelScale    = 1.3
	labelStroke   = 3
	landmarkSize  = 4
	connectorSize = 2
)

var (
	black     = color.RGBA{0, 0, 0, 255}
	landmarkC = color.RGBA{255, 48, 48, 255}
	connectC  = color.RGBA{224, 224, 224, 255}
)

// BoundingBox returns the pixel rectangle drawn around hand on a width x height
// frame: the min/max landmark coordinates scaled to the frame, offset outward
// by BoxOffset and clamped to the frame.
func BoundingBox(hand *detector.HandLandmarks, width, height int) image.Rectangle {
	b := hand.Bounds()
	box := image.Rect(
		int(b.MinX*float64(width))-BoxOffset,
		int(b.MinY*float64(height))-BoxOffset,
		int(b.MaxX*float64(width))+BoxOffset,
		int(b.MaxY*float64(height))+BoxOffset,
	)
	return box.Intersect(image.Rect(0, 0, width, height))
}

// LabelOrigin is where the label text baseline starts for box.
func LabelOrigin(box image.Rectangle) image.Point {
	return image.Pt(box.Min.X, box.Min.Y-labelGap)
}

// DrawLandmarks draws the hand skeleton onto img.
func DrawLandmarks(img *gocv.Mat, hand *detector.HandLandmarks) {
	w, h := img.Cols(), img.Rows()
	px := func(i int) image.Point {
		p := hand.Points[i]
		return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}

	for _, c := range detector.Connections {
		gocv.Line(img, px(c[0]), px(c[1]), connectC, connectorSize)
	}
	for i := range hand.Points {
		gocv.Circle(img, px(i), landmarkSize, landmarkC, -1)
	}
}

// DrawLabel draws the bounding box and the label text above it.
func DrawLabel(img *gocv.Mat, hand *detector.HandLandmarks, label string) {
	box := BoundingBox(hand, img.Cols(), img.Rows())
	gocv.Rectangle(img, box, black, boxThickness)
	gocv.PutTextWithParams(img, label, LabelOrigin(box), gocv.FontHersheySimplex, labelScale, black, labelStroke, gocv.LineAA, false)
}
