package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"nodeback/internal/config"
	"nodeback/internal/models"
	"nodeback/internal/validation"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

const (
	DefaultMediaDir         = "./media"
	DefaultImageMaxUploadKB = 1536
	PreviewMaxSize          = 1080
	PreviewWebPQuality      = 70
	postImageSubdir         = "posts"
	previewExtension        = ".webp"
	svgSniffLimit           = 1024
)

// UploadImageInput is one uploaded file.
type UploadImageInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage locates a saved upload relative to the media root.
type StoredImage struct {
	Path        string `json:"path"`
	PreviewPath string `json:"preview_path,omitempty"`
}

// ImageService validates post image uploads and stores them under the media
// directory with a WebP preview for raster formats.
type ImageService struct {
	mediaDir           string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	s := &ImageService{
		mediaDir:           DefaultMediaDir,
		maxUploadSizeBytes: DefaultImageMaxUploadKB * 1024,
	}
	if cfg != nil {
		if cfg.MediaDir != "" {
			s.mediaDir = cfg.MediaDir
		}
		if n := cfg.ImageMaxUploadBytes(); n > 0 {
			s.maxUploadSizeBytes = n
		}
	}
	return s
}

// MediaDir is the root that stored paths are relative to.
func (s *ImageService) MediaDir() string {
	return s.mediaDir
}

func (s *ImageService) MaxUploadBytes() int64 {
	return s.maxUploadSizeBytes
}

// Validate checks the upload without touching the filesystem.
func (s *ImageService) Validate(in UploadImageInput) (string, error) {
	if len(in.Content) == 0 {
		return "", models.NewFieldValidationError("post_img", "Uploaded image is empty")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", models.NewFieldValidationError("post_img",
			fmt.Sprintf("Image too large (max %.1f MB)", float64(s.maxUploadSizeBytes)/(1024*1024)))
	}
	ext, err := validation.ImageExtension(in.Filename)
	if err != nil {
		return "", models.NewFieldValidationError("post_img", err.Error())
	}

	if ext == ".svg" {
		head := in.Content
		if len(head) > svgSniffLimit {
			head = head[:svgSniffLimit]
		}
		if !bytes.Contains(bytes.ToLower(head), []byte("<svg")) {
			return "", models.NewFieldValidationError("post_img", "Invalid SVG file")
		}
		return ext, nil
	}

	detected := http.DetectContentType(in.Content)
	switch {
	case ext == ".png" && detected == "image/png":
	case (ext == ".jpg" || ext == ".jpeg") && detected == "image/jpeg":
	default:
		return "", models.NewFieldValidationError("post_img", "Image content does not match its extension")
	}
	return ext, nil
}

// Save validates and writes the upload. Validation failures are
// VALIDATION_ERROR; filesystem failures are INTERNAL_ERROR.
func (s *ImageService) Save(_ context.Context, in UploadImageInput) (*StoredImage, error) {
	ext, err := s.Validate(in)
	if err != nil {
		return nil, err
	}

	var preview []byte
	if ext != ".svg" {
		decoded, _, decodeErr := image.Decode(bytes.NewReader(in.Content))
		if decodeErr != nil {
			return nil, models.NewFieldValidationError("post_img", "Invalid image file")
		}
		preview, err = encodeWebP(resizeToFit(decoded, PreviewMaxSize, PreviewMaxSize), PreviewWebPQuality)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	name := uuid.NewString()
	stored := &StoredImage{Path: filepath.ToSlash(filepath.Join(postImageSubdir, name+ext))}
	if err := writeBytesToFile(s.abs(stored.Path), in.Content); err != nil {
		return nil, models.NewInternalError(err)
	}
	if preview != nil {
		stored.PreviewPath = filepath.ToSlash(filepath.Join(postImageSubdir, name+previewExtension))
		if err := writeBytesToFile(s.abs(stored.PreviewPath), preview); err != nil {
			s.Remove(stored)
			return nil, models.NewInternalError(err)
		}
	}
	return stored, nil
}

// Remove deletes a stored upload and its preview, ignoring missing files.
func (s *ImageService) Remove(img *StoredImage) {
	if img == nil {
		return
	}
	for _, rel := range []string{img.Path, img.PreviewPath} {
		if rel != "" {
			_ = os.Remove(s.abs(rel))
		}
	}
}

// PreviewPathFor returns the WebP preview path stored next to a raster image.
func PreviewPathFor(path string) string {
	ext := filepath.Ext(path)
	if path == "" || strings.EqualFold(ext, ".svg") {
		return ""
	}
	return strings.TrimSuffix(path, ext) + previewExtension
}

func (s *ImageService) abs(rel string) string {
	return filepath.Join(s.mediaDir, filepath.FromSlash(rel))
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

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

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
