package invoke

import (
	"bytes"
	"context"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/feras-hamam/adastream/xerr"
)

type s3Archiver struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

func newS3Archiver(bucket, prefix string) (Archiver, error) {
	if bucket == "" {
		return nil, xerr.New(xerr.KindArchiveFailure, "archive_backend=s3 requires archive_bucket")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, xerr.Wrap(xerr.KindArchiveFailure, err, "load AWS config")
	}
	client := s3.NewFromConfig(awsCfg)
	return &s3Archiver{uploader: manager.NewUploader(client), bucket: bucket, prefix: prefix}, nil
}

func (a *s3Archiver) Backend() string { return "s3" }

func (a *s3Archiver) Archive(ctx context.Context, step int, dir string) (ArchiveRecord, error) {
	start := time.Now()
	_, compressed, rawSize, err := compressDir(dir)
	if err != nil {
		return ArchiveRecord{}, err
	}
	key := remoteKey(a.prefix, step)
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &a.bucket,
		Key:    &key,
		Body:   bytes.NewReader(compressed.Bytes()),
	})
	if err != nil {
		return ArchiveRecord{}, xerr.Wrap(xerr.KindArchiveFailure, err, "upload step %d to s3://%s/%s", step, a.bucket, key)
	}
	return ArchiveRecord{
		Step:            step,
		Backend:         a.Backend(),
		RemoteKey:       key,
		Bytes:           rawSize,
		CompressedBytes: int64(compressed.Len()),
		Duration:        time.Since(start),
	}, nil
}
