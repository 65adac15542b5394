// Package media stores profile images.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// MaxImageBytes bounds an uploaded profile image.
const MaxImageBytes = 5 << 20

// ErrNotImage is returned for uploads whose content type is not image/*.
var ErrNotImage = errors.New("content type must be an image")

// Uploader stores a user's profile image and returns its download URL.
// A new upload for the same user replaces the previous image.
type Uploader interface {
	Upload(ctx context.Context, uid, contentType string, body io.Reader) (string, error)
}

// Key is the object key of a user's profile image.
func Key(uid string) string {
	return "profile-images/" + uid
}

type S3Config struct {
	Bucket string
	Region string
	// PublicBaseURL, when set, is used to build download URLs instead of
	// the location S3 reports, e.g. a CDN in front of the bucket.
	PublicBaseURL string
}

// S3Uploader uploads to an S3 bucket.
type S3Uploader struct {
	uploader s3manageriface.UploaderAPI
	conf     S3Config
}

var _ Uploader = (*S3Uploader)(nil)

// NewS3Uploader creates a session from the default AWS credential chain.
func NewS3Uploader(conf S3Config) (*S3Uploader, error) {
	if conf.Bucket == "" {
		return nil, errors.New("s3 bucket must be set")
	}
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(conf.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewS3UploaderWithAPI(s3manager.NewUploader(sess), conf), nil
}

// NewS3UploaderWithAPI wraps an existing uploader.
func NewS3UploaderWithAPI(api s3manageriface.UploaderAPI, conf S3Config) *S3Uploader {
	conf.PublicBaseURL = strings.TrimRight(conf.PublicBaseURL, "/")
	return &S3Uploader{uploader: api, conf: conf}
}

func (u *S3Uploader) Upload(ctx context.Context, uid, contentType string, body io.Reader) (string, error) {
	if uid == "" {
		return "", errors.New("uid must be set")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}
	key := Key(uid)
	out, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.conf.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload profile image: %w", err)
	}
	if u.conf.PublicBaseURL != "" {
		return u.conf.PublicBaseURL + "/" + key, nil
	}
	return out.Location, nil
}
