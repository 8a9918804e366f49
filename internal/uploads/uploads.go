// Package uploads stores user files on local disk and serves them back
// under /files. Each asset type has its own size cap and accepted
// content types. Stored names are random, so uploads never collide and
// original filenames leak nothing.
package uploads

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tunehire/tunehire/internal/authz"
	"github.com/tunehire/tunehire/internal/middleware"
	"github.com/tunehire/tunehire/internal/utils"
)

var uploadDir = "uploads"

// Init sets the storage directory and makes sure it exists.
func Init(dir string) error {
	uploadDir = dir
	return os.MkdirAll(dir, 0o755)
}

const (
	maxSheetMusicBytes = 4 << 20
	maxAudioBytes      = 16 << 20
	maxImageBytes      = 4 << 20
)

var (
	sheetMusicTypes = map[string]string{
		"application/pdf": ".pdf",
	}
	audioTypes = map[string]string{
		"audio/mpeg":  ".mp3",
		"audio/wav":   ".wav",
		"audio/x-wav": ".wav",
		"audio/ogg":   ".ogg",
		"audio/flac":  ".flac",
		"audio/mp4":   ".m4a",
	}
	imageTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
	}
)

// SheetMusic accepts the PDF a buyer attaches to an order request.
func SheetMusic(c echo.Context) error {
	return store(c, "file", maxSheetMusicBytes, sheetMusicTypes)
}

// Audio accepts a delivered recording or a profile sample.
func Audio(c echo.Context) error {
	return store(c, "file", maxAudioBytes, audioTypes)
}

// Image accepts profile and service images.
func Image(c echo.Context) error {
	return store(c, "file", maxImageBytes, imageTypes)
}

func store(c echo.Context, field string, maxBytes int64, accepted map[string]string) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	fileHeader, err := c.FormFile(field)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	if fileHeader.Size > maxBytes {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file too large"})
	}

	contentType := normalizeContentType(fileHeader)
	ext, ok := accepted[contentType]
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported file type"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read upload"})
	}
	defer src.Close()

	name := uuid.New().String() + ext
	dstPath := filepath.Join(uploadDir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		utils.Logger().Error("upload destination create failed", zap.String("path", dstPath), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store upload"})
	}
	defer dst.Close()

	// The size header is client-supplied; enforce the cap on the actual
	// bytes too.
	written, err := io.Copy(dst, io.LimitReader(src, maxBytes+1))
	if err != nil {
		_ = os.Remove(dstPath)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store upload"})
	}
	if written > maxBytes {
		_ = os.Remove(dstPath)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file too large"})
	}

	utils.Logger().Info("file uploaded",
		zap.String("user_id", sess.UserID), zap.String("name", name), zap.Int64("bytes", written))

	return c.JSON(http.StatusOK, echo.Map{
		"url":          "/files/" + name,
		"size":         written,
		"content_type": contentType,
	})
}

func normalizeContentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}
