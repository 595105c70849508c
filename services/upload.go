package services

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cppla/blogapi/utils"
)

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	Size        int64 // as declared by the client; -1 when unknown
	ContentType string
	Body        io.Reader
}

// readUpload loads at most limit bytes of the upload. Bigger files fail with PayloadTooLarge,
// both when the declared size says so and when the body turns out longer than declared.
func readUpload(u *Upload, limit int64, tooLarge *utils.AppError) ([]byte, error) {
	if u.Size > limit {
		return nil, tooLarge
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(u.Body, limit+1))
	if err != nil {
		return nil, utils.Unhandled(50010, "failed to read upload", err)
	}
	if n > limit {
		return nil, tooLarge
	}
	return buf.Bytes(), nil
}

func contentTypeOf(u *Upload) string {
	if u.ContentType != "" {
		return u.ContentType
	}
	return "application/octet-stream"
}

// parseID converts a path id. Empty ids yield emptyErr, malformed ones badErr.
func parseID(raw string, emptyErr, badErr *utils.AppError) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, emptyErr
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, badErr
	}
	return uint(id), nil
}

func humanBytes(n int64) string {
	switch {
	case n >= 1000000:
		return fmt.Sprintf("%gmb", float64(n)/1000000)
	case n >= 1000:
		return fmt.Sprintf("%gkb", float64(n)/1000)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
