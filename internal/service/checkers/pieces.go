package checkers

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"strings"
	"sync"

	corecheckers "github.com/park285/kakao-checkers-bot/internal/checkers"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

// 말 이미지는 (색, 킹, 크기) 조합마다 한 번만 래스터화한다.
type pieceCacheKey struct {
	piece corecheckers.Piece
	size  int
}

var pieceCache sync.Map // pieceCacheKey -> image.Image

// oksvg 가 읽지 못하는 style 표기(콜론 뒤 공백, # 누락)
var svgStyleFixer = strings.NewReplacer(
	"fill:000000", "fill:#000000",
	"fill: none", "fill:none",
	"fill: #", "fill:#",
	"stroke: #", "stroke:#",
	"stop-color: #", "stop-color:#",
)

func renderPieceImage(piece corecheckers.Piece, size int) (image.Image, error) {
	if piece.Empty() {
		return nil, fmt.Errorf("cannot render empty piece")
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid piece size %d", size)
	}
	key := pieceCacheKey{piece: piece, size: size}
	if img, ok := pieceCache.Load(key); ok {
		return img.(image.Image), nil
	}

	img, err := rasterizePiece(piece, size)
	if err != nil {
		return nil, err
	}
	actual, _ := pieceCache.LoadOrStore(key, img)
	return actual.(image.Image), nil
}

func rasterizePiece(piece corecheckers.Piece, size int) (image.Image, error) {
	name := pieceAssetName(piece)
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader([]byte(svgStyleFixer.Replace(string(data)))))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		icon.ViewBox.W, icon.ViewBox.H = float64(size), float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	// NewRGBA 는 투명으로 초기화된다.
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)
	return img, nil
}

func pieceAssetName(piece corecheckers.Piece) string {
	side, kind := "light", "man"
	if piece.Color == corecheckers.Dark {
		side = "dark"
	}
	if piece.King {
		kind = "king"
	}
	return "assets/pieces/" + side + "_" + kind + ".svg"
}
