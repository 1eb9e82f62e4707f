package stubapi

import (
	"bytes"
	"crypto/sha256"
	"image"
	"image/color"
	"image/png"
)

const (
	qrModules = 21
	qrScale   = 8
	qrQuiet   = 4
)

// renderCode draws a QR-looking matrix derived from payload. It carries the
// three finder patterns but is not a decodable QR symbol.
func renderCode(payload []byte) ([]byte, error) {
	sum := sha256.Sum256(payload)
	size := (qrModules + 2*qrQuiet) * qrScale
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	for y := 0; y < qrModules; y++ {
		for x := 0; x < qrModules; x++ {
			if module(sum, x, y) {
				fill(img, x, y)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func module(sum [sha256.Size]byte, x, y int) bool {
	for _, origin := range [][2]int{{0, 0}, {qrModules - 7, 0}, {0, qrModules - 7}} {
		dx, dy := x-origin[0], y-origin[1]
		if dx >= 0 && dx < 7 && dy >= 0 && dy < 7 {
			ring := dx == 0 || dx == 6 || dy == 0 || dy == 6
			core := dx >= 2 && dx <= 4 && dy >= 2 && dy <= 4
			return ring || core
		}
	}
	bit := (y*qrModules + x) % (len(sum) * 8)
	return sum[bit/8]&(1<<(bit%8)) != 0
}

func fill(img *image.Gray, x, y int) {
	x0 := (x + qrQuiet) * qrScale
	y0 := (y + qrQuiet) * qrScale
	for dy := 0; dy < qrScale; dy++ {
		for dx := 0; dx < qrScale; dx++ {
			img.SetGray(x0+dx, y0+dy, color.Gray{Y: 0})
		}
	}
}
