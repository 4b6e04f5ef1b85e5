package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"devcamper-backend/apperror"
	"devcamper-backend/config"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of an upload is read to detect its type.
const sniffLen = 3072

// Upload is a client file on its way to the store.
type Upload struct {
	Size int64
	Body io.Reader
}

// Sink persists uploaded images under a caller-chosen base name.
type Sink interface {
	SaveImage(ctx context.Context, base string, upload Upload) (string, error)
}

// Disk writes uploads into a local directory.
type Disk struct {
	dir     string
	maxSize int64
}

func NewDisk(cfg *config.Config) *Disk {
	return &Disk{dir: cfg.FileUploadPath, maxSize: cfg.MaxFileUpload}
}

// SaveImage checks size and content type, then writes <base><ext> and returns that name.
func (d *Disk) SaveImage(ctx context.Context, base string, upload Upload) (string, error) {
	if upload.Body == nil {
		return "", apperror.NewBadRequest("Please upload a file")
	}
	if upload.Size > d.maxSize {
		return "", d.tooLarge()
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", apperror.NewUpstream("Problem with file upload", err)
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", apperror.NewBadRequest("Please upload an image file")
	}

	// The stored name never trusts the client's extension.
	name := base + mt.Extension()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", apperror.NewUpstream("Problem with file upload", err)
	}

	path := filepath.Join(d.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", apperror.NewUpstream("Problem with file upload", err)
	}

	body := io.MultiReader(bytes.NewReader(head), upload.Body)
	written, err := io.Copy(f, io.LimitReader(body, d.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > d.maxSize {
		_ = os.Remove(path)
		return "", d.tooLarge()
	}
	if err != nil {
		_ = os.Remove(path)
		return "", apperror.NewUpstream("Problem with file upload", err)
	}
	return name, nil
}

func (d *Disk) tooLarge() error {
	return apperror.NewBadRequest(fmt.Sprintf("Please upload an image less than %d bytes", d.maxSize))
}
