// Package assets stores compressed image attachments addressed by generated ids.
package assets

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/labcraft/internal/kvstore"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotImage reports an upload whose content type is not an image type.
	ErrNotImage = errors.New("assets: file is not an image")

	errMissingSubstrate = errors.New("substrate is required")
	errEmptyFile        = errors.New("file is empty")
	noOpLogger          = zap.NewNop()
)

// ServiceError carries a stable operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "assets.service.new"
	opUpload     = "assets.upload"
	opUploadMany = "assets.upload_many"
	opGet        = "assets.get"
	opList       = "assets.list_by_collection"
	opDelete     = "assets.delete"

	reasonMissingSubstrate = "missing_substrate"
	reasonNotImage         = "not_image"
	reasonEmptyFile        = "empty_file"
	reasonCompressFailed   = "compress_failed"
	reasonSuffixFailed     = "suffix_failed"
	reasonLoadFailed       = "load_failed"
	reasonStoreFailed      = "store_failed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// Asset is a stored compressed image.
type Asset struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	Data         string    `json:"data"`
	CreatedAt    time.Time `json:"created_at"`
}

// File is an upload candidate.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// SuffixSource yields the random component of asset ids.
type SuffixSource interface {
	Suffix() (string, error)
}

const suffixLength = 9

type uuidSuffixSource struct{}

// NewUUIDSuffixSource returns a SuffixSource backed by random UUIDs.
func NewUUIDSuffixSource() SuffixSource {
	return uuidSuffixSource{}
}

func (uuidSuffixSource) Suffix() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(value.String(), "-", "")[:suffixLength], nil
}

// ServiceConfig describes the dependencies of the asset store.
type ServiceConfig struct {
	Substrate *kvstore.Substrate
	Clock     func() time.Time
	Random    SuffixSource
	Logger    *zap.Logger
	MaxWidth  int
	Quality   float64
}

// Service compresses uploads and persists them in the images namespace.
type Service struct {
	substrate *kvstore.Substrate
	clock     func() time.Time
	random    SuffixSource
	logger    *zap.Logger
	maxWidth  int
	quality   float64
}

// NewService validates cfg and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Substrate == nil {
		return nil, newServiceError(opServiceNew, reasonMissingSubstrate, errMissingSubstrate)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	random := cfg.Random
	if random == nil {
		random = NewUUIDSuffixSource()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	maxWidth := cfg.MaxWidth
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	quality := cfg.Quality
	if quality <= 0 || quality > 1 {
		quality = DefaultQuality
	}
	return &Service{
		substrate: cfg.Substrate,
		clock:     clock,
		random:    random,
		logger:    logger,
		maxWidth:  maxWidth,
		quality:   quality,
	}, nil
}

// IsImageType reports whether contentType names an image media type.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// Upload compresses file and stores it for collectionID.
func (s *Service) Upload(ctx context.Context, collectionID string, file File) (Asset, error) {
	if len(file.Data) == 0 {
		s.logError(opUpload, reasonEmptyFile, errEmptyFile, zap.String("file", file.Name))
		return Asset{}, newServiceError(opUpload, reasonEmptyFile, errEmptyFile)
	}
	contentType := file.ContentType
	if strings.TrimSpace(contentType) == "" {
		contentType = mimetype.Detect(file.Data).String()
	}
	if !IsImageType(contentType) {
		s.logError(opUpload, reasonNotImage, ErrNotImage,
			zap.String("file", file.Name),
			zap.String("content_type", contentType))
		return Asset{}, newServiceError(opUpload, reasonNotImage, ErrNotImage)
	}

	data, err := Compress(file.Data, s.maxWidth, s.quality)
	if err != nil {
		s.logError(opUpload, reasonCompressFailed, err, zap.String("file", file.Name))
		return Asset{}, newServiceError(opUpload, reasonCompressFailed, err)
	}

	suffix, err := s.random.Suffix()
	if err != nil {
		s.logError(opUpload, reasonSuffixFailed, err)
		return Asset{}, newServiceError(opUpload, reasonSuffixFailed, err)
	}
	now := s.clock().UTC()
	asset := Asset{
		ID:           fmt.Sprintf("%s_%d_%s", collectionID, now.UnixMilli(), suffix),
		CollectionID: collectionID,
		Data:         data,
		CreatedAt:    now,
	}

	stored, err := s.load(ctx, opUpload)
	if err != nil {
		return Asset{}, err
	}
	stored = append(stored, asset)
	if err := kvstore.Set(ctx, s.substrate, kvstore.NamespaceImages, stored); err != nil {
		s.logError(opUpload, reasonStoreFailed, err, zap.String("asset_id", asset.ID))
		return Asset{}, newServiceError(opUpload, reasonStoreFailed, err)
	}
	return asset, nil
}

// UploadMany uploads files one at a time in order. Failed files are logged
// and skipped; the result holds only the assets that were stored.
func (s *Service) UploadMany(ctx context.Context, collectionID string, files []File) []Asset {
	uploaded := make([]Asset, 0, len(files))
	for index, file := range files {
		asset, err := s.Upload(ctx, collectionID, file)
		if err != nil {
			s.logger.Warn("asset skipped",
				zap.String("operation", opUploadMany),
				zap.Int("index", index),
				zap.String("file", file.Name),
				zap.Error(err))
			continue
		}
		uploaded = append(uploaded, asset)
	}
	return uploaded
}

// Get looks up an asset by id.
func (s *Service) Get(ctx context.Context, assetID string) (Asset, bool, error) {
	stored, err := s.load(ctx, opGet)
	if err != nil {
		return Asset{}, false, err
	}
	index := slices.IndexFunc(stored, func(candidate Asset) bool {
		return candidate.ID == assetID
	})
	if index < 0 {
		return Asset{}, false, nil
	}
	return stored[index], true, nil
}

// ListByCollection returns the assets uploaded for collectionID in upload order.
func (s *Service) ListByCollection(ctx context.Context, collectionID string) ([]Asset, error) {
	stored, err := s.load(ctx, opList)
	if err != nil {
		return nil, err
	}
	matching := make([]Asset, 0, len(stored))
	for _, asset := range stored {
		if asset.CollectionID == collectionID {
			matching = append(matching, asset)
		}
	}
	return matching, nil
}

// Delete removes the asset with assetID. It reports whether the images
// namespace was rewritten; removing an unknown id still succeeds.
func (s *Service) Delete(ctx context.Context, assetID string) bool {
	stored, err := s.load(ctx, opDelete)
	if err != nil {
		return false
	}
	remaining := slices.DeleteFunc(stored, func(candidate Asset) bool {
		return candidate.ID == assetID
	})
	if err := kvstore.Set(ctx, s.substrate, kvstore.NamespaceImages, remaining); err != nil {
		s.logError(opDelete, reasonStoreFailed, err, zap.String("asset_id", assetID))
		return false
	}
	return true
}

func (s *Service) load(ctx context.Context, operation string) ([]Asset, error) {
	stored, err := kvstore.Get[Asset](ctx, s.substrate, kvstore.NamespaceImages)
	if err != nil {
		s.logError(operation, reasonLoadFailed, err)
		return nil, newServiceError(operation, reasonLoadFailed, err)
	}
	return stored, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("asset service error", attrs...)
}
