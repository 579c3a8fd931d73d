// Package storage persists uploaded media under a local root, one
// directory tree per owning user.
package storage

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/big"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"chronicle/internal/models"
	"chronicle/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	ThumbnailMaxSize = 256
	WebPQuality      = 70

	suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	suffixLength   = 5
)

// MediaKind selects the per-user subdirectory an upload lands in.
type MediaKind string

const (
	KindImage MediaKind = "images"
	KindVideo MediaKind = "videos"
	KindAudio MediaKind = "audios"
)

// Store writes media files under root, keyed by owner.
type Store struct {
	root               string
	maxUploadSizeBytes int64
}

// NewStore returns a Store rooted at root. maxUploadSizeMB caps individual
// uploads; zero or negative means 25MB.
func NewStore(root string, maxUploadSizeMB int) *Store {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = 25
	}
	return &Store{
		root:               root,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Root returns the store's base directory.
func (s *Store) Root() string {
	return s.root
}

// SavedImage describes where an image upload and its thumbnail landed,
// relative to the store root.
type SavedImage struct {
	Path          string
	ThumbnailPath string
}

// SaveImage validates, stores and thumbnails an uploaded image. Paths are
// relative to the store root, shaped user_<id>/images/<name>_<rand>.<ext>.
func (s *Store) SaveImage(ownerID uuid.UUID, filename string, content []byte) (*SavedImage, error) {
	if len(content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(content)
	if !isAllowedImageMIME(detectedType) {
		observability.BlobOperations.WithLabelValues("save_image", "rejected").Inc()
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		observability.BlobOperations.WithLabelValues("save_image", "rejected").Inc()
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}

	rel, err := s.uploadPath(ownerID, KindImage, filename)
	if err != nil {
		return nil, err
	}
	if err := writeBytesToFile(filepath.Join(s.root, rel), content); err != nil {
		observability.BlobOperations.WithLabelValues("save_image", "error").Inc()
		return nil, models.NewInternalError(err)
	}

	thumb := resizeToFit(decoded, ThumbnailMaxSize, ThumbnailMaxSize)
	thumbBytes, err := encodeWebP(thumb, WebPQuality)
	if err != nil {
		_ = os.Remove(filepath.Join(s.root, rel))
		return nil, models.NewInternalError(err)
	}

	thumbRel := thumbnailPathFor(rel)
	if err := writeBytesToFile(filepath.Join(s.root, thumbRel), thumbBytes); err != nil {
		_ = os.Remove(filepath.Join(s.root, rel))
		observability.BlobOperations.WithLabelValues("save_image", "error").Inc()
		return nil, models.NewInternalError(err)
	}

	observability.BlobOperations.WithLabelValues("save_image", "ok").Inc()
	return &SavedImage{Path: rel, ThumbnailPath: thumbRel}, nil
}

// SaveBlob stores an opaque upload (video, audio) without decoding it.
func (s *Store) SaveBlob(ownerID uuid.UUID, kind MediaKind, filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxUploadSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	rel, err := s.uploadPath(ownerID, kind, filename)
	if err != nil {
		return "", err
	}
	if err := writeBytesToFile(filepath.Join(s.root, rel), content); err != nil {
		observability.BlobOperations.WithLabelValues("save_blob", "error").Inc()
		return "", models.NewInternalError(err)
	}

	observability.BlobOperations.WithLabelValues("save_blob", "ok").Inc()
	return rel, nil
}

// Delete removes a stored file and its thumbnail if present. Missing files
// are not an error.
func (s *Store) Delete(rel string) error {
	abs, err := s.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		observability.BlobOperations.WithLabelValues("delete", "error").Inc()
		return models.NewInternalError(err)
	}
	if thumbAbs, err := s.Abs(thumbnailPathFor(rel)); err == nil {
		_ = os.Remove(thumbAbs)
	}
	observability.BlobOperations.WithLabelValues("delete", "ok").Inc()
	return nil
}

// Abs resolves a stored relative path under the root, rejecting traversal.
func (s *Store) Abs(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", models.NewValidationError("Invalid media path")
	}
	return filepath.Join(s.root, cleaned), nil
}

func (s *Store) uploadPath(ownerID uuid.UUID, kind MediaKind, filename string) (string, error) {
	base := filepath.Base(filepath.FromSlash(filename))
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if name == "" || name == "." {
		return "", models.NewValidationError("Invalid filename")
	}

	suffix, err := randomSuffix(suffixLength)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	return filepath.ToSlash(filepath.Join(
		fmt.Sprintf("user_%s", ownerID.String()),
		string(kind),
		fmt.Sprintf("%s_%s%s", name, suffix, strings.ToLower(ext)),
	)), nil
}

// thumbnailPathFor places the thumbnail next to the original with a
// _thumb marker and webp extension.
func thumbnailPathFor(rel string) string {
	ext := filepath.Ext(rel)
	return strings.TrimSuffix(rel, ext) + "_thumb.webp"
}

func randomSuffix(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(suffixAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = suffixAlphabet[idx.Int64()]
	}
	return string(out), nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
