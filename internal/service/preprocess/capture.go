package preprocess

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"framepickr/internal/model"

	"github.com/bep/imagemeta"
)

var captureTags = map[string]bool{
	"Make":             true,
	"Model":            true,
	"DateTimeOriginal": true,
	"Software":         true,
}

var captureFormats = map[string]imagemeta.ImageFormat{
	"image/jpeg": imagemeta.JPEG,
	"image/png":  imagemeta.PNG,
	"image/webp": imagemeta.WebP,
	"image/tiff": imagemeta.TIFF,
}

// ReadCaptureInfo extracts camera EXIF fields from the original upload.
// Missing or unreadable metadata yields an empty CaptureInfo.
func ReadCaptureInfo(data []byte, contentType string) model.CaptureInfo {
	var info model.CaptureInfo

	format, ok := captureFormats[contentType]
	if !ok || len(data) == 0 {
		return info
	}

	_, err := imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: format,
		Sources:     imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return captureTags[ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			value := tagValueString(ti.Value)
			switch ti.Tag {
			case "Make":
				info.Make = value
			case "Model":
				info.Model = value
			case "DateTimeOriginal":
				info.TakenAt = value
			case "Software":
				info.Software = value
			}
			return nil
		},
	})
	if err != nil {
		return model.CaptureInfo{}
	}
	return info
}

func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
