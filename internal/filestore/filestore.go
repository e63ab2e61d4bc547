// Package filestore keeps application attachments. Callers only ever see
// opaque references of the form "uploads/<name>".
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const ReferencePrefix = "uploads/"

var (
	ErrNotFound         = errors.New("file not found")
	ErrInvalidReference = errors.New("invalid file reference")
)

type Store interface {
	// Save writes r under a generated name and returns its reference.
	Save(ctx context.Context, field, originalName string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	// Remove deletes the file. Removing a missing file is not an error.
	Remove(ctx context.Context, ref string) error
}

// GenerateName builds "<field>-<unixmillis>-<random><ext>" with the lowercase
// extension of originalName.
func GenerateName(field, originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s-%d-%d%s", field, now.UnixMilli(), uuid.New().ID(), ext)
}

func Reference(name string) string {
	return ReferencePrefix + name
}

// NameFromReference returns the bare file name of ref, rejecting anything
// that could escape the upload namespace.
func NameFromReference(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, ReferencePrefix)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return name, nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}
