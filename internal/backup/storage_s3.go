package backup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/warden-panel/warden/internal/config"
)

// ObjectStorage is the off-box storage surface the backup lifecycle
// needs. The daemon uploads archives directly; the panel only deletes
// objects and issues signed download links.
type ObjectStorage interface {
	// DeleteObject removes the archive for a backup. A missing object is
	// not an error; the object being gone is the desired end state.
	DeleteObject(ctx context.Context, serverID, backupUUID string) error

	// PresignDownload returns a time-limited signed GET URL for the
	// backup archive.
	PresignDownload(ctx context.Context, serverID, backupUUID string, expiry time.Duration) (string, error)
}

// S3Storage implements ObjectStorage against AWS S3 or any S3-compatible
// endpoint such as MinIO or DigitalOcean Spaces.
type S3Storage struct {
	bucket   string
	prefix   string
	s3Client *s3.S3
}

// NewS3Storage creates a new S3 storage client
func NewS3Storage(cfg config.S3Config) (*S3Storage, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		),
	}

	// Custom endpoint for S3-compatible storage
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	storage := &S3Storage{
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		s3Client: s3.New(sess),
	}

	log.Printf("[S3Storage] Initialized S3 storage: bucket=%s, region=%s",
		cfg.Bucket, cfg.Region)

	return storage, nil
}

// objectKey builds the archive key. Archives are grouped per server so
// bucket listings stay navigable.
func (s *S3Storage) objectKey(serverID, backupUUID string) string {
	return path.Join(s.prefix, serverID, backupUUID+".tar.gz")
}

// DeleteObject removes a backup archive. Not-found responses are
// swallowed so repeated deletes converge on the same outcome.
func (s *S3Storage) DeleteObject(ctx context.Context, serverID, backupUUID string) error {
	key := s.objectKey(serverID, backupUUID)

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			log.Printf("[S3Storage] Object s3://%s/%s already gone", s.bucket, key)
			return nil
		}
		return fmt.Errorf("%w: delete s3://%s/%s: %v", ErrStorage, s.bucket, key, err)
	}

	log.Printf("[S3Storage] Deleted s3://%s/%s", s.bucket, key)
	return nil
}

// PresignDownload returns a signed GET URL valid for expiry.
func (s *S3Storage) PresignDownload(ctx context.Context, serverID, backupUUID string, expiry time.Duration) (string, error) {
	key := s.objectKey(serverID, backupUUID)

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)

	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("%w: presign s3://%s/%s: %v", ErrStorage, s.bucket, key, err)
	}

	return url, nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
