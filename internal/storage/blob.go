package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrBadKey   = errors.New("invalid blob key")
	ErrNotImage = errors.New("file is not an image")
)

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	URL(key string) string // public URL the asset route serves the key under
}

// sniffLen is how much of an upload is inspected to decide its type.
const sniffLen = 3072

// PutImage stores an uploaded college image under colleges/<id>/ with a
// random name and returns its public URL. Uploads whose content does not
// sniff as image/* are rejected with ErrNotImage.
func PutImage(bs BlobStore, collegeID int64, r io.Reader) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mt.String())
	}

	key := fmt.Sprintf("colleges/%d/%s%s", collegeID, uuid.NewString(), mt.Extension())
	key, err = bs.Put(key, io.MultiReader(bytes.NewReader(head), r))
	if err != nil {
		return "", err
	}
	return bs.URL(key), nil
}
