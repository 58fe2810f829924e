package checkers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	corecheckers "github.com/park285/kakao-checkers-bot/internal/checkers"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type MoveHighlight struct {
	From  corecheckers.Square
	To    corecheckers.Square
	Mover corecheckers.Color
}

type RenderOptions struct {
	Highlight *MoveHighlight
	Material  MaterialScore
	HUDHeader string
	HUDTurn   string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *corecheckers.Board, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct {
	face font.Face
}

func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{face: basicfont.Face7x13}
}

const (
	squareSize           = 72
	boardSize            = squareSize * corecheckers.Size
	sideMargin           = 36
	topMargin            = 110
	bottomMargin         = 36
	titleHeight          = 40
	secondaryPanelHeight = 32
	gapBetweenPanels     = 14
	gapToBoard           = 22
	panelRadius          = 12
	titlePaddingX        = 28
	scorePaddingX        = 24
	turnPaddingX         = 20
	titleMinWidth        = 320
	scoreMinWidth        = 96
	turnMinWidth         = 140
	shadowOffsetY        = 6
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board *corecheckers.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}

	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	boardOrigin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(boardOrigin.X, boardOrigin.Y, boardOrigin.X+boardSize, boardOrigin.Y+boardSize)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	r.drawHUD(img, opts, boardRect)
	drawBoardShadow(img, boardRect)
	drawSquares(img, boardOrigin)
	r.drawSquareNumbers(img, boardOrigin)
	drawHighlight(img, opts.Highlight, boardOrigin)
	if err := drawPieces(img, board, boardOrigin); err != nil {
		return nil, err
	}
	r.drawCoordinates(img, boardOrigin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

var (
	backgroundColor          = color.RGBA{R: 22, G: 24, B: 34, A: 255}
	lightSquare              = color.RGBA{R: 0xFF, G: 0xCE, B: 0x9E, A: 255}
	darkSquare               = color.RGBA{R: 0xD1, G: 0x8B, B: 0x47, A: 255}
	lightMoveHighlightFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	darkMoveHighlightArrow   = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveHighlightFill = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	hudPanelColor            = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTurnPanelColor        = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudShadowColor           = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary           = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTurnTextColor         = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	boardShadowColor         = color.NRGBA{0, 0, 0, 60}
	coordinateTextColor      = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	squareNumberColor        = color.NRGBA{R: 60, G: 32, B: 8, A: 200}
)

func drawBoardShadow(img *image.RGBA, boardRect image.Rectangle) {
	shadowRect := image.Rect(boardRect.Min.X+4, boardRect.Min.Y+8, boardRect.Max.X+10, boardRect.Max.Y+12)
	imagedraw.Draw(img, shadowRect, image.NewUniform(boardShadowColor), image.Point{}, imagedraw.Over)
}

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for row := 0; row < corecheckers.Size; row++ {
		for col := 0; col < corecheckers.Size; col++ {
			sq := corecheckers.Sq(row, col)
			imagedraw.Draw(dst, squareRect(sq, origin), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *corecheckers.Board, origin image.Point) error {
	for row := 0; row < corecheckers.Size; row++ {
		for col := 0; col < corecheckers.Size; col++ {
			sq := corecheckers.Sq(row, col)
			piece := board.At(sq)
			if piece.Empty() {
				continue
			}
			img, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, squareRect(sq, origin), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

// Light 의 수는 출발/도착 칸을 칠하고, Dark 의 수는 화살표로 그린다.
func drawHighlight(img *image.RGBA, highlight *MoveHighlight, origin image.Point) {
	if highlight == nil || !highlight.From.Valid() || !highlight.To.Valid() {
		return
	}
	switch highlight.Mover {
	case corecheckers.Light:
		drawSquareOverlay(img, highlight.From, origin, lightMoveHighlightFill)
		drawSquareOverlay(img, highlight.To, origin, lightMoveHighlightFill)
	case corecheckers.Dark:
		drawSquareOverlay(img, highlight.From, origin, neutralMoveHighlightFill)
		drawArrow(img, highlight.From, highlight.To, origin, darkMoveHighlightArrow)
	default:
		drawArrow(img, highlight.From, highlight.To, origin, neutralMoveHighlightFill)
	}
}

func (r *svgBoardRenderer) drawHUD(img *image.RGBA, opts RenderOptions, boardRect image.Rectangle) {
	drawer := &font.Drawer{Dst: img, Face: r.face}

	title := strings.TrimSpace(opts.HUDHeader)
	if title == "" {
		title = "Player vs Computer"
	}
	scoreText := formatMaterialDiff(opts.Material)
	turnText := strings.TrimSpace(opts.HUDTurn)
	if turnText == "" {
		turnText = "Turn"
	}

	turnBottom := boardRect.Min.Y - gapToBoard
	turnTop := turnBottom - secondaryPanelHeight
	titleBottom := turnTop - gapBetweenPanels
	titleTop := titleBottom - titleHeight

	titleWidth := maxInt(titleMinWidth, drawer.MeasureString(title).Round()+titlePaddingX*2)
	scoreWidth := maxInt(scoreMinWidth, drawer.MeasureString(scoreText).Round()+scorePaddingX*2)
	turnWidth := maxInt(turnMinWidth, drawer.MeasureString(turnText).Round()+turnPaddingX*2)

	maxTitleWidth := maxInt(titleMinWidth, boardRect.Dx()-scoreWidth-24)
	if titleWidth > maxTitleWidth {
		titleWidth = maxTitleWidth
	}
	if maxTurnWidth := boardRect.Dx() - 40; turnWidth > maxTurnWidth {
		turnWidth = maxTurnWidth
	}

	titleRect := image.Rect(boardRect.Min.X, titleTop, boardRect.Min.X+titleWidth, titleBottom)
	scoreRect := image.Rect(boardRect.Max.X-scoreWidth, titleTop, boardRect.Max.X, titleBottom)
	turnLeft := boardRect.Min.X + (boardRect.Dx()-turnWidth)/2
	turnRect := image.Rect(turnLeft, turnTop, turnLeft+turnWidth, turnBottom)

	for _, rect := range []image.Rectangle{titleRect, scoreRect, turnRect} {
		drawRoundedPanel(img, rect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
	}

	title = truncateWithEllipsis(r.face, title, titleRect.Dx()-titlePaddingX*2)
	turnText = truncateWithEllipsis(r.face, turnText, turnRect.Dx()-turnPaddingX*2)

	drawRoundedPanel(img, titleRect, panelRadius, hudPanelColor)
	drawRoundedPanel(img, scoreRect, panelRadius, hudPanelColor)
	drawRoundedPanel(img, turnRect, panelRadius, hudTurnPanelColor)

	drawCenteredString(drawer, titleRect, title, hudTextPrimary)
	drawCenteredString(drawer, scoreRect, scoreText, hudTextPrimary)
	drawCenteredString(drawer, turnRect, turnText, hudTurnTextColor)
}

// drawSquareNumbers 는 숫자 표기(1-32)를 어두운 칸 왼쪽 위에 적는다.
func (r *svgBoardRenderer) drawSquareNumbers(img *image.RGBA, origin image.Point) {
	drawer := &font.Drawer{Dst: img, Face: r.face, Src: image.NewUniform(squareNumberColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	for n := 1; n <= 32; n++ {
		sq, ok := corecheckers.SquareFromNumber(n)
		if !ok {
			continue
		}
		rect := squareRect(sq, origin)
		drawer.Dot = fixed.P(rect.Min.X+4, rect.Min.Y+2+ascent)
		drawer.DrawString(strconv.Itoa(n))
	}
}

func (r *svgBoardRenderer) drawCoordinates(img *image.RGBA, origin image.Point) {
	drawer := &font.Drawer{Dst: img, Face: r.face, Src: image.NewUniform(coordinateTextColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + boardSize

	for i := 0; i < corecheckers.Size; i++ {
		rankCenter := origin.Y + i*squareSize + squareSize/2
		drawCenteredText(drawer, strconv.Itoa(corecheckers.Size-i), origin.X-sideMargin/2, rankCenter+ascent/2)

		fileCenter := origin.X + i*squareSize + squareSize/2
		drawCenteredText(drawer, string(rune('a'+i)), fileCenter, boardEndY+ascent+4)
	}
}

func drawSquareOverlay(img *image.RGBA, sq corecheckers.Square, origin image.Point, clr color.Color) {
	imagedraw.Draw(img, squareRect(sq, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawArrow(img *image.RGBA, from, to corecheckers.Square, origin image.Point, clr color.Color) {
	if from == to {
		return
	}
	startRect := squareRect(from, origin)
	endRect := squareRect(to, origin)
	sx := float64(startRect.Min.X + squareSize/2)
	sy := float64(startRect.Min.Y + squareSize/2)
	ex := float64(endRect.Min.X + squareSize/2)
	ey := float64(endRect.Min.Y + squareSize/2)

	dx, dy := ex-sx, ey-sy
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(squareSize) * 0.12
	headWidth := float64(squareSize) * 0.4

	baseX := sx + dirX*baseLength
	baseY := sy + dirY*baseLength

	fillQuad(img,
		pointF{sx - perpX*halfWidth, sy - perpY*halfWidth},
		pointF{sx + perpX*halfWidth, sy + perpY*halfWidth},
		pointF{baseX + perpX*halfWidth, baseY + perpY*halfWidth},
		pointF{baseX - perpX*halfWidth, baseY - perpY*halfWidth},
		clr,
	)
	fillTriangleF(img,
		pointF{ex, ey},
		pointF{baseX - perpX*headWidth/2, baseY - perpY*headWidth/2},
		pointF{baseX + perpX*headWidth/2, baseY + perpY*headWidth/2},
		clr,
	)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	radius = maxInt(radius, 0)
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	// 가운데 세로 띠 + 좌우 띠 + 네 모서리 원
	core := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	if core.Dx() > 0 {
		imagedraw.Draw(img, core, fill, image.Point{}, imagedraw.Over)
	}
	leftRect := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius)
	if leftRect.Dy() > 0 {
		imagedraw.Draw(img, leftRect, fill, image.Point{}, imagedraw.Over)
	}
	rightRect := image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	if rightRect.Dy() > 0 {
		imagedraw.Draw(img, rightRect, fill, image.Point{}, imagedraw.Over)
	}

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, center := range corners {
		drawQuarterDisc(img, center, radius, clr, rect)
	}
}

// drawQuarterDisc 는 core/좌우 띠와 겹치지 않는 모서리 부분만 칠한다.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, clr color.Color, bounds image.Rectangle) {
	inner := image.Rect(bounds.Min.X+radius, bounds.Min.Y+radius, bounds.Max.X-radius, bounds.Max.Y-radius)
	core := image.Rect(bounds.Min.X+radius, bounds.Min.Y, bounds.Max.X-radius, bounds.Max.Y)
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			p := image.Pt(center.X+x, center.Y+y)
			if !p.In(bounds) || p.In(core) {
				continue
			}
			if p.Y >= inner.Min.Y && p.Y < inner.Max.Y {
				continue
			}
			blendPixel(img, p.X, p.Y, clr)
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if drawer == nil || text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := maxInt(rect.Min.X, rect.Min.X+(rect.Dx()-width)/2)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func formatMaterialDiff(material MaterialScore) string {
	diff := material.Diff()
	if diff == 0 {
		return fmt.Sprintf("%d : %d", material.Light, material.Dark)
	}
	return fmt.Sprintf("%d : %d (%+d)", material.Light, material.Dark, diff)
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	// premultiplied source-over
	inv := 65535 - sa
	dst := img.RGBAAt(x, y)
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(dst.R)*257*inv/65535) >> 8),
		G: uint8((sg + uint32(dst.G)*257*inv/65535) >> 8),
		B: uint8((sb + uint32(dst.B)*257*inv/65535) >> 8),
		A: uint8((sa + uint32(dst.A)*257*inv/65535) >> 8),
	})
}

// squareRect 는 Row 0 이 위쪽(Dark 진영)이 되도록 칸 영역을 계산한다.
func squareRect(sq corecheckers.Square, origin image.Point) image.Rectangle {
	x := origin.X + sq.Col*squareSize
	y := origin.Y + sq.Row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq corecheckers.Square) color.Color {
	if sq.Dark() {
		return darkSquare
	}
	return lightSquare
}

type pointF struct {
	X float64
	Y float64
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
