package file

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// maxKeyAttempts bounds retries when a freshly generated storage
	// key collides with an existing record.
	maxKeyAttempts = 3

	// defaultExtension is used when the client filename carries none.
	defaultExtension = "bin"

	maxExtensionLength = 16
)

type metadataStore interface {
	Create(ctx context.Context, rec Record) (Record, error)
	FindByStorageKey(ctx context.Context, key string) (Record, error)
	ListByOwner(ctx context.Context, owner string) ([]Record, error)
	SetPassword(ctx context.Context, key, owner, password string) error
	Delete(ctx context.Context, key, owner string) (Record, error)
}

type blobStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// Service orchestrates metadata and blob stores for the five file
// operations. Owner arguments are always the token-resolved username.
type Service struct {
	repo  metadataStore
	blobs blobStore
	log   *zap.Logger
}

// NewService constructs a file service.
func NewService(repo metadataStore, blobs blobStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, blobs: blobs, log: log}
}

// Upload stores the payload under a fresh storage key and records its
// metadata. Blob and record are created together: if the metadata write
// fails the blob is removed again, so no orphan survives on either side.
func (s *Service) Upload(ctx context.Context, owner string, fileHeader *multipart.FileHeader) (Record, error) {
	if fileHeader == nil {
		return Record{}, fmt.Errorf("missing file payload")
	}

	contentType := detectContentType(fileHeader)
	originalName := sanitizeFilename(fileHeader.Filename)

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := newStorageKey(fileHeader.Filename)

		payload, err := fileHeader.Open()
		if err != nil {
			return Record{}, fmt.Errorf("open upload file: %w", err)
		}

		err = s.blobs.Put(ctx, key, payload, fileHeader.Size, contentType)
		payload.Close()
		if err != nil {
			s.log.Error("store blob", zap.String("storage_key", key), zap.Error(err))
			return Record{}, fmt.Errorf("%w: store blob", ErrStorage)
		}

		stored, err := s.repo.Create(ctx, Record{
			OriginalName: originalName,
			StorageKey:   key,
			Owner:        owner,
		})
		if err == nil {
			return stored, nil
		}

		// The blob made it in but the record did not; take the blob
		// back out before reporting or retrying.
		if removeErr := s.blobs.Remove(ctx, key); removeErr != nil {
			s.log.Error("remove orphan blob", zap.String("storage_key", key), zap.Error(removeErr))
		}

		if err == ErrDuplicateKey {
			continue
		}

		s.log.Error("create file metadata", zap.String("storage_key", key), zap.Error(err))
		return Record{}, fmt.Errorf("%w: create metadata", ErrStorage)
	}

	return Record{}, fmt.Errorf("%w: storage key collisions exhausted retries", ErrStorage)
}

// List returns the owner's records in insertion order.
func (s *Service) List(ctx context.Context, owner string) ([]Record, error) {
	return s.repo.ListByOwner(ctx, owner)
}

// Download resolves a storage key to its record and blob reader. No
// authentication is required; a per-file password gates access once set.
func (s *Service) Download(ctx context.Context, key, suppliedPassword string) (Record, io.ReadCloser, error) {
	rec, err := s.repo.FindByStorageKey(ctx, key)
	if err != nil {
		return Record{}, nil, err
	}

	if !rec.CanAccess(suppliedPassword) {
		return Record{}, nil, ErrForbidden
	}

	reader, err := s.blobs.Get(ctx, rec.StorageKey)
	if err != nil {
		s.log.Error("fetch blob", zap.String("storage_key", rec.StorageKey), zap.Error(err))
		return Record{}, nil, fmt.Errorf("%w: fetch blob", ErrStorage)
	}

	return rec, reader, nil
}

// SetPassword updates the download gate on a record the caller owns.
func (s *Service) SetPassword(ctx context.Context, owner, key, password string) error {
	return s.repo.SetPassword(ctx, key, owner, password)
}

// Delete removes the metadata row and then the blob. Metadata is the
// authority for existence: once the row is gone the delete has
// succeeded, and a failed blob removal is logged rather than surfaced.
func (s *Service) Delete(ctx context.Context, owner, key string) error {
	rec, err := s.repo.Delete(ctx, key, owner)
	if err != nil {
		return err
	}

	if err := s.blobs.Remove(ctx, rec.StorageKey); err != nil {
		s.log.Warn("remove blob after metadata delete",
			zap.String("storage_key", rec.StorageKey),
			zap.Error(err),
		)
	}

	return nil
}

// newStorageKey builds the public handle for a blob: a random UUID plus
// the sanitized extension of the client filename. Only the extension
// substring of untrusted input survives, and never with path
// separators in it.
func newStorageKey(filename string) string {
	return uuid.NewString() + "." + extensionOf(filename)
}

func extensionOf(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return defaultExtension
	}

	ext := filename[idx+1:]
	if len(ext) > maxExtensionLength || strings.ContainsAny(ext, `/\`) || strings.Contains(ext, "..") {
		return defaultExtension
	}
	return ext
}

func detectContentType(fileHeader *multipart.FileHeader) string {
	if fileHeader == nil {
		return "application/octet-stream"
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "upload"
	}
	return name
}
