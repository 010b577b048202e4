package auth

import (
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// AvatarStaging holds a single selected image and its local preview until
// the signup is submitted. Nothing is sent over the network.
type AvatarStaging struct {
	mu       sync.RWMutex
	maxBytes int64
	file     *AvatarFile
	preview  string
	lastErr  string
}

// NewAvatarStaging returns an empty staging area accepting images up to
// maxBytes. A non positive limit uses the default from DefaultConfig.
func NewAvatarStaging(maxBytes int64) *AvatarStaging {
	if maxBytes <= 0 {
		maxBytes = DefaultConfig().MaxAvatarBytes
	}
	return &AvatarStaging{maxBytes: maxBytes}
}

// Select reads the file, checks that it is an image within the size limit
// and stages it, replacing any previous selection. On rejection the prior
// selection and preview are kept.
func (s *AvatarStaging) Select(filename string, r io.Reader) (string, error) {
	if r == nil {
		return "", s.reject(filename, "no file selected", nil)
	}

	// one byte past the limit tells an oversized file from an exact fit
	limit := s.maxBytes
	if limit < math.MaxInt64 {
		limit++
	}

	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return "", s.reject(filename, "unable to read file", err)
	}

	if len(data) == 0 {
		return "", s.reject(filename, "file is empty", nil)
	}

	if int64(len(data)) > s.maxBytes {
		return "", s.reject(filename, fmt.Sprintf("file size must be less than %s", humanBytes(s.maxBytes)), nil)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", s.reject(filename, "please upload a valid image", nil)
	}

	contentType := strings.SplitN(mtype.String(), ";", 2)[0]
	file := &AvatarFile{
		Filename:    filepath.Base(filename),
		ContentType: contentType,
		Data:        data,
	}
	if file.Filename == "." || file.Filename == string(filepath.Separator) {
		file.Filename = "avatar" + mtype.Extension()
	}

	preview := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)

	s.mu.Lock()
	s.file = file
	s.preview = preview
	s.lastErr = ""
	s.mu.Unlock()

	return preview, nil
}

// Clear drops the staged file and releases its preview.
func (s *AvatarStaging) Clear() {
	s.mu.Lock()
	s.file = nil
	s.preview = ""
	s.lastErr = ""
	s.mu.Unlock()
}

// File returns the staged image, or nil.
func (s *AvatarStaging) File() *AvatarFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file
}

// Preview returns the locally renderable preview, or an empty string.
func (s *AvatarStaging) Preview() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preview
}

// Error returns the message of the last rejected selection.
func (s *AvatarStaging) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *AvatarStaging) reject(filename, message string, source error) error {
	s.mu.Lock()
	s.lastErr = message
	s.mu.Unlock()

	meta := map[string]any{"filename": filename}
	return newError(ErrUpload, message, source, meta)
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
