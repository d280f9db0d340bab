package acquisition

import (
	"bytes"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
)

// cropToAspect is the picker's editing step: a centred crop to aspect[0]:aspect[1]. Data that is
// not a decodable still image, or already has the ratio, is returned unchanged with edited=false.
func cropToAspect(data []byte, mimeType string, aspect [2]int) (out []byte, outMIME string, edited bool, err error) {
	if aspect[0] <= 0 || aspect[1] <= 0 {
		return data, mimeType, false, nil
	}

	var img image.Image
	switch mimeType {
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	case "image/gif":
		img, err = gif.Decode(bytes.NewReader(data))
	default:
		return data, mimeType, false, nil
	}
	if err != nil {
		return nil, "", false, err
	}

	rect, ok := centredCrop(img.Bounds(), aspect)
	if !ok {
		return data, mimeType, false, nil
	}

	var cropped image.Image
	if sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		cropped = sub.SubImage(rect)
	} else {
		rgba := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, rect.Min, draw.Src)
		cropped = rgba
	}

	var buf bytes.Buffer
	switch mimeType {
	case "image/jpeg":
		err = jpeg.Encode(&buf, cropped, &jpeg.Options{Quality: 90})
	default:
		// GIF frames are flattened to PNG after editing.
		err = png.Encode(&buf, cropped)
		mimeType = "image/png"
	}
	if err != nil {
		return nil, "", false, err
	}
	return buf.Bytes(), mimeType, true, nil
}

// centredCrop returns the largest rectangle with the requested ratio centred in b, and false when
// b already has that ratio.
func centredCrop(b image.Rectangle, aspect [2]int) (image.Rectangle, bool) {
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return b, false
	}
	aw, ah := aspect[0], aspect[1]
	switch {
	case w*ah > h*aw:
		nw := h * aw / ah
		if nw == 0 || nw == w {
			return b, false
		}
		x0 := b.Min.X + (w-nw)/2
		return image.Rect(x0, b.Min.Y, x0+nw, b.Max.Y), true
	case w*ah < h*aw:
		nh := w * ah / aw
		if nh == 0 || nh == h {
			return b, false
		}
		y0 := b.Min.Y + (h-nh)/2
		return image.Rect(b.Min.X, y0, b.Max.X, y0+nh), true
	default:
		return b, false
	}
}
