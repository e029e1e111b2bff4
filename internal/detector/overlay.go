package detector

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// HandConnections are the landmark pairs joined when drawing a hand,
// following MediaPipe's HAND_CONNECTIONS.
var HandConnections = [][2]int{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{RingMCP, PinkyMCP}, {Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
}

var (
	connectionColor = color.RGBA{G: 255}
	landmarkColor   = color.RGBA{R: 255}
)

// DrawHand draws the hand's skeleton onto img: connections in green, then
// landmarks as red dots. Connections with a missing end are skipped.
func DrawHand(img *gocv.Mat, hand HandLandmarks) {
	if img == nil || img.Empty() {
		return
	}

	w, h := img.Cols(), img.Rows()
	px := func(p Point3D) image.Point {
		return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}

	for _, c := range HandConnections {
		if !hand.Has(c[0]) || !hand.Has(c[1]) {
			continue
		}
		gocv.Line(img, px(hand.Points[c[0]]), px(hand.Points[c[1]]), connectionColor, 3)
	}
	for _, p := range hand.Points {
		gocv.Circle(img, px(p), 3, landmarkColor, -1)
	}
}
