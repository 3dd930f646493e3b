// internal/adapters/output/s3.go
package output

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
	"argus/internal/platform/logx"
)

// ObjectPutter es la parte de *s3.Client que usa el archiver.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configura el archiver.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // S3 compatible (MinIO, etc.)
	AccessKey string
	SecretKey string
}

// S3Archiver sube el reporte JSON de cada tarea terminada a
// s3://<bucket>/<prefix>/<yyyy>/<mm>/<dd>/<task>.json.
type S3Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
	logger logx.Logger
}

var _ ports.Exporter = (*S3Archiver)(nil)

// NewS3Client crea un cliente S3. Credenciales estáticas y endpoint son
// opcionales; sin ellas aplica la cadena por defecto del SDK.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, awsconfig.WithBaseEndpoint(opts.Endpoint))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.Endpoint != ""
	}), nil
}

// NewS3Archiver crea el archiver sobre un cliente existente.
func NewS3Archiver(client ObjectPutter, bucket, prefix string, logger logx.Logger) (*S3Archiver, error) {
	if bucket == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "s3 archive bucket is empty")
	}
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &S3Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
		logger: logger.With("component", "s3_archiver"),
	}, nil
}

// Name implements ports.Exporter
func (a *S3Archiver) Name() string { return "s3" }

// Key retorna la clave de objeto para una tarea.
func (a *S3Archiver) Key(task domain.CollectionTask) string {
	ts := task.EndedAt
	if ts.IsZero() {
		ts = a.now()
	}
	ts = ts.UTC()
	return path.Join(a.prefix, fmt.Sprintf("%04d/%02d/%02d", ts.Year(), ts.Month(), ts.Day()), task.TaskID+".json")
}

// Export implements ports.Exporter
func (a *S3Archiver) Export(ctx context.Context, task domain.CollectionTask, results domain.CollectionResults) error {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, task, results, false); err != nil {
		return err
	}

	key := a.Key(task)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"task-id": task.TaskID,
			"status":  string(task.Status),
		},
	})
	if err != nil {
		return errors.Wrapf(errors.ErrConnectionFailed, "put s3://%s/%s: %v", a.bucket, key, err)
	}
	a.logger.Info("results archived", "bucket", a.bucket, "key", key, "bytes", buf.Len())
	return nil
}
