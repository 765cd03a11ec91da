package uploads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/config"
	"github.com/markbang/cyop/pkg/db/models"
	"github.com/markbang/cyop/pkg/enums"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
	"github.com/markbang/cyop/pkg/storage/s3"
)

var allowedMimePrefixes = []string{"image/", "video/"}

type uploadRepository interface {
	CreateAsset(ctx context.Context, asset *models.MediaAsset) (*models.MediaAsset, error)
	FindAsset(ctx context.Context, id int64) (*models.MediaAsset, error)
	SaveAsset(ctx context.Context, asset *models.MediaAsset) error
	DeleteAsset(ctx context.Context, id int64) error
	ListAssetsByDataset(ctx context.Context, datasetID int64) ([]models.MediaAsset, error)
	FindDataset(ctx context.Context, id int64) (*models.Dataset, error)
}

type storageSigner interface {
	Bucket() string
	BuildStorageKey(datasetID int64, originalFilename string) string
	BuildPublicURL(key string) string
	PresignUpload(input s3.PresignInput) (*s3.PresignedRequest, error)
	DeleteObject(ctx context.Context, key string)
}

// Service exposes the upload session protocol: request a presigned slot,
// finalize after the client's direct PUT, and delete assets.
type Service interface {
	RequestUpload(ctx context.Context, input UploadRequest) (*UploadSession, error)
	FinalizeUpload(ctx context.Context, assetID int64, input FinalizeInput) (*models.MediaAsset, error)
	GetAsset(ctx context.Context, id int64) (*models.MediaAsset, error)
	ListAssets(ctx context.Context, datasetID int64) ([]models.MediaAsset, error)
	DeleteAsset(ctx context.Context, id int64) error
}

type service struct {
	repo           uploadRepository
	signer         storageSigner
	uploadTTL      time.Duration
	maxUploadBytes int64
}

// NewService constructs an upload service backed by the provided repository
// and storage signer.
func NewService(repo uploadRepository, signer storageSigner, storageCfg config.StorageConfig, uploadCfg config.UploadConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("uploads repository required")
	}
	if signer == nil {
		return nil, fmt.Errorf("storage signer required")
	}
	if storageCfg.UploadURLExpiry <= 0 {
		return nil, fmt.Errorf("upload url expiry must be positive")
	}
	if uploadCfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	return &service{
		repo:           repo,
		signer:         signer,
		uploadTTL:      storageCfg.UploadURLExpiry,
		maxUploadBytes: int64(uploadCfg.MaxUploadMB) * 1024 * 1024,
	}, nil
}

// UploadRequest models the payload required to open an upload session.
type UploadRequest struct {
	DatasetID int64
	FileName  string
	MimeType  string
	SizeBytes int64
}

// UploadSession is returned to the client performing the direct PUT. The API
// server is never in the data path for the bytes themselves.
type UploadSession struct {
	Asset  *models.MediaAsset   `json:"asset"`
	Upload *s3.PresignedRequest `json:"upload"`
}

// FinalizeInput is a partial update: nil fields are left untouched.
type FinalizeInput struct {
	SizeBytes *int64
	Width     *int
	Height    *int
	Checksum  *string
}

// RequestUpload resolves the dataset, assigns the storage key, inserts the
// asset in pending_upload, and returns the presigned PUT. The key is assigned
// once here, before any bytes exist, so the URL can be signed up front.
func (s *service) RequestUpload(ctx context.Context, input UploadRequest) (*UploadSession, error) {
	if input.DatasetID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dataset id is required")
	}
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	mimeType := strings.ToLower(strings.TrimSpace(input.MimeType))
	if !mimeAllowed(mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported mime type")
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file size must be positive")
	}
	if input.SizeBytes > s.maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file exceeds maximum upload size")
	}

	dataset, err := s.repo.FindDataset(ctx, input.DatasetID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dataset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dataset")
	}

	key := s.signer.BuildStorageKey(dataset.ID, fileName)
	publicURL := s.signer.BuildPublicURL(key)

	asset := &models.MediaAsset{
		DatasetID:     dataset.ID,
		RequirementID: dataset.RequirementID,
		FileName:      fileName,
		MimeType:      mimeType,
		SizeBytes:     input.SizeBytes,
		Bucket:        s.signer.Bucket(),
		StorageKey:    key,
		PublicURL:     &publicURL,
		Status:        enums.AssetStatusPendingUpload,
	}
	created, err := s.repo.CreateAsset(ctx, asset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist media asset")
	}

	presigned, err := s.signer.PresignUpload(s3.PresignInput{
		Key:         key,
		ContentType: mimeType,
		ExpiresIn:   s.uploadTTL,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign upload url")
	}

	return &UploadSession{Asset: created, Upload: presigned}, nil
}

// FinalizeUpload patches the provided optional fields, moves the asset to
// uploaded, and stamps uploadedAt. Omitted fields are left untouched.
func (s *service) FinalizeUpload(ctx context.Context, assetID int64, input FinalizeInput) (*models.MediaAsset, error) {
	asset, err := s.findAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}

	if input.SizeBytes != nil {
		if *input.SizeBytes <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "file size must be positive")
		}
		asset.SizeBytes = *input.SizeBytes
	}
	if input.Width != nil {
		asset.Width = input.Width
	}
	if input.Height != nil {
		asset.Height = input.Height
	}
	if input.Checksum != nil {
		asset.Checksum = input.Checksum
	}

	now := time.Now().UTC()
	asset.Status = enums.AssetStatusUploaded
	asset.UploadedAt = &now

	if err := s.repo.SaveAsset(ctx, asset); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize media asset")
	}
	return asset, nil
}

func (s *service) GetAsset(ctx context.Context, id int64) (*models.MediaAsset, error) {
	return s.findAsset(ctx, id)
}

func (s *service) ListAssets(ctx context.Context, datasetID int64) ([]models.MediaAsset, error) {
	if datasetID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dataset id is required")
	}
	assets, err := s.repo.ListAssetsByDataset(ctx, datasetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media assets")
	}
	return assets, nil
}

// DeleteAsset removes the row and best-effort deletes the stored object. The
// object delete never fails the request; the signer logs its own errors.
func (s *service) DeleteAsset(ctx context.Context, id int64) error {
	asset, err := s.findAsset(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAsset(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "media asset not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete media asset")
	}
	s.signer.DeleteObject(ctx, asset.StorageKey)
	return nil
}

func (s *service) findAsset(ctx context.Context, id int64) (*models.MediaAsset, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id is required")
	}
	asset, err := s.repo.FindAsset(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media asset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media asset")
	}
	return asset, nil
}

func mimeAllowed(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	for _, prefix := range allowedMimePrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}
