// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/sirupsen/logrus"

	"github.com/needus/ecommerce-backend/internal/config"
	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository"
)

// AttachmentStore persists uploaded files under generated names.
type AttachmentStore interface {
	// Store writes data and returns the generated reference name. An
	// existing file is never overwritten.
	Store(ctx context.Context, data []byte, originalName string) (string, error)
	// Remove deletes the stored file and reports whether it succeeded.
	Remove(ctx context.Context, name string) bool
	// URL returns the public address of a stored file.
	URL(name string) string
}

var (
	ErrEmptyFile    = errors.New("file is empty")
	ErrFileTooLarge = errors.New("file is too large")
	ErrNotAnImage   = errors.New("file is not a supported image")
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NewAttachmentStore builds the backend selected by STORAGE_BACKEND.
func NewAttachmentStore(cfg *config.Config) (AttachmentStore, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return NewS3AttachmentStore(cfg)
	default:
		return NewLocalAttachmentStore(cfg.Storage.LocalRoot, cfg.Storage.PublicBaseURL)
	}
}

// ValidateImage checks the size and the magic bytes of an upload.
func ValidateImage(data []byte, maxSize int64) error {
	if len(data) == 0 {
		return ErrEmptyFile
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum allowed size %d bytes", ErrFileTooLarge, len(data), maxSize)
	}
	if !filetype.IsImage(data) {
		return ErrNotAnImage
	}
	return nil
}

// storedName prefixes a random token to the cleaned base name of the upload.
func storedName(originalName string) string {
	base := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "image"
	}
	return uuid.NewString() + "-" + base
}

type LocalAttachmentStore struct {
	root    string
	baseURL string
}

func NewLocalAttachmentStore(root, baseURL string) (*LocalAttachmentStore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root %s: %w", root, err)
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", absRoot, err)
	}

	return &LocalAttachmentStore{
		root:    absRoot,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalAttachmentStore) Root() string {
	return s.root
}

func (s *LocalAttachmentStore) Store(ctx context.Context, data []byte, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := storedName(originalName)
	fullPath := filepath.Join(s.root, name)

	out, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", fullPath, err)
	}

	if _, err := out.Write(data); err != nil {
		out.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write %s: %w", fullPath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to close %s: %w", fullPath, err)
	}

	return name, nil
}

func (s *LocalAttachmentStore) Remove(ctx context.Context, name string) bool {
	target, ok := s.resolve(name)
	if !ok {
		logrus.WithField("file", name).Warn("Refusing to delete path outside storage root")
		return false
	}

	if err := os.Remove(target); err != nil {
		logrus.WithFields(logrus.Fields{
			"file":  name,
			"error": err,
		}).Warn("Failed to delete stored file")
		return false
	}
	return true
}

// resolve maps a stored name to a path inside the root.
func (s *LocalAttachmentStore) resolve(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", false
	}

	target := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(trimmed)))
	if !strings.HasPrefix(target, s.root+string(os.PathSeparator)) {
		return "", false
	}
	return target, true
}

func (s *LocalAttachmentStore) URL(name string) string {
	return s.baseURL + "/" + name
}

type S3AttachmentStore struct {
	client        s3iface.S3API
	bucket        string
	prefix        string
	region        string
	cloudFrontURL string
}

func NewS3AttachmentStore(cfg *config.Config) (*S3AttachmentStore, error) {
	awsConfig := &aws.Config{Region: aws.String(cfg.AWS.Region)}
	if cfg.AWS.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewS3AttachmentStoreWithClient(s3.New(sess), cfg), nil
}

func NewS3AttachmentStoreWithClient(client s3iface.S3API, cfg *config.Config) *S3AttachmentStore {
	return &S3AttachmentStore{
		client:        client,
		bucket:        cfg.AWS.S3Bucket,
		prefix:        strings.Trim(cfg.Storage.S3Prefix, "/"),
		region:        cfg.AWS.Region,
		cloudFrontURL: strings.TrimRight(cfg.AWS.CloudFrontURL, "/"),
	}
}

func (s *S3AttachmentStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3AttachmentStore) Store(ctx context.Context, data []byte, originalName string) (string, error) {
	name := storedName(originalName)

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(http.DetectContentType(data)),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return name, nil
}

func (s *S3AttachmentStore) Remove(ctx context.Context, name string) bool {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"file":  name,
			"error": err,
		}).Warn("Failed to delete file from S3")
		return false
	}
	return true
}

func (s *S3AttachmentStore) URL(name string) string {
	if s.cloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.cloudFrontURL, s.key(name))
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, s.key(name))
}

// ProductImageService keeps image records and their stored files in step.
// Records are authoritative; file removal is best effort.
type ProductImageService struct {
	attachments AttachmentStore
}

func NewProductImageService(attachments AttachmentStore) *ProductImageService {
	return &ProductImageService{attachments: attachments}
}

// StoreUploads writes every upload in order. When one fails, the files
// already written by this call are removed and the error is returned.
func (s *ProductImageService) StoreUploads(ctx context.Context, uploads []UploadedFile) ([]string, error) {
	names := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		name, err := s.attachments.Store(ctx, upload.Data, upload.Name)
		if err != nil {
			s.DiscardNames(ctx, names)
			return nil, fmt.Errorf("failed to store %s: %w", upload.Name, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// AttachRecords creates one image row per stored name, positioned in order.
func (s *ProductImageService) AttachRecords(ctx context.Context, tx repository.Store, productID uuid.UUID, names []string) ([]models.ProductImage, error) {
	images := make([]models.ProductImage, 0, len(names))
	for i, name := range names {
		image := models.ProductImage{ProductID: productID, FileName: name, Position: i}
		if err := tx.Images().Save(ctx, &image); err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, nil
}

// RemoveProductImages deletes the image records through tx. The returned
// cleanup removes the files and must only run once tx has committed.
func (s *ProductImageService) RemoveProductImages(ctx context.Context, tx repository.Store, images []models.ProductImage) (func(context.Context) int, error) {
	if len(images) == 0 {
		return func(context.Context) int { return 0 }, nil
	}

	ids := make([]uuid.UUID, len(images))
	for i, image := range images {
		ids[i] = image.ID
	}
	if err := tx.Images().DeleteByIDs(ctx, ids); err != nil {
		return nil, err
	}

	discarded := append([]models.ProductImage(nil), images...)
	return func(ctx context.Context) int {
		return s.DiscardFiles(ctx, discarded)
	}, nil
}

// DiscardFiles removes stored files without touching records. It returns how
// many files were removed.
func (s *ProductImageService) DiscardFiles(ctx context.Context, images []models.ProductImage) int {
	removed := 0
	for _, image := range images {
		if s.attachments.Remove(ctx, image.FileName) {
			removed++
			continue
		}
		logrus.WithFields(logrus.Fields{
			"product_id": image.ProductID,
			"file":       image.FileName,
		}).Warn("Leaving orphaned product image file")
	}
	return removed
}

// DiscardNames removes stored files that never got a record.
func (s *ProductImageService) DiscardNames(ctx context.Context, names []string) {
	for _, name := range names {
		if !s.attachments.Remove(ctx, name) {
			logrus.WithField("file", name).Warn("Leaving orphaned upload")
		}
	}
}

func (s *ProductImageService) URLs(images []models.ProductImage) []string {
	urls := make([]string, len(images))
	for i, image := range images {
		urls[i] = s.attachments.URL(image.FileName)
	}
	return urls
}
