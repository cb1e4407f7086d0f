package invoke

import (
	"context"
	"io"
	"time"

	"cloud.google.com/go/storage"

	"github.com/feras-hamam/adastream/xerr"
)

type gcsArchiver struct {
	client *storage.Client
	bucket string
	prefix string
}

func newGCSArchiver(bucket, prefix string) (Archiver, error) {
	if bucket == "" {
		return nil, xerr.New(xerr.KindArchiveFailure, "archive_backend=gcs requires archive_bucket")
	}
	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, xerr.Wrap(xerr.KindArchiveFailure, err, "create GCS client")
	}
	return &gcsArchiver{client: client, bucket: bucket, prefix: prefix}, nil
}

func (a *gcsArchiver) Backend() string { return "gcs" }

func (a *gcsArchiver) Archive(ctx context.Context, step int, dir string) (ArchiveRecord, error) {
	start := time.Now()
	_, compressed, rawSize, err := compressDir(dir)
	if err != nil {
		return ArchiveRecord{}, err
	}
	key := remoteKey(a.prefix, step)
	compressedSize := int64(compressed.Len())
	w := a.client.Bucket(a.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, compressed); err != nil {
		w.Close()
		return ArchiveRecord{}, xerr.Wrap(xerr.KindArchiveFailure, err, "upload step %d to gcs://%s/%s", step, a.bucket, key)
	}
	if err := w.Close(); err != nil {
		return ArchiveRecord{}, xerr.Wrap(xerr.KindArchiveFailure, err, "finalize gcs upload step %d", step)
	}
	return ArchiveRecord{
		Step:            step,
		Backend:         a.Backend(),
		RemoteKey:       key,
		Bytes:           rawSize,
		CompressedBytes: compressedSize,
		Duration:        time.Since(start),
	}, nil
}
