package filestore

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type s3Storage struct {
	client *s3.Client
	bucket string
}

var _ core.FileStorage = (*s3Storage)(nil)

// NewS3Storage stores blobs in the configured bucket. Explicit access keys
// take precedence over the default credential chain; a custom endpoint
// enables MinIO-style setups.
func NewS3Storage(ctx context.Context, conf *core.Config) (*s3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(conf.FileStore.Region),
	}
	if conf.FileStore.AccessKey != "" && conf.FileStore.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.FileStore.AccessKey, conf.FileStore.SecretKey, ""),
		))
	}
	awsConf, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	client := s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if conf.FileStore.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.FileStore.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Storage{client: client, bucket: conf.FileStore.Bucket}, nil
}

func (st *s3Storage) Save(ctx context.Context, key string, src io.Reader) error {
	_, err := st.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(key),
		Body:   src,
	})
	return errors.Wrap(err, "putting blob")
}

func (st *s3Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := st.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrap(err, "getting blob")
	}
	return out.Body, nil
}

func (st *s3Storage) Delete(ctx context.Context, key string) error {
	_, err := st.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrap(err, "deleting blob")
}
