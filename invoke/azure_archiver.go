package invoke

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/feras-hamam/adastream/xerr"
)

type azureArchiver struct {
	client *azblob.Client
	bucket string // container name
	prefix string
}

func newAzureArchiver(container, prefix string) (Archiver, error) {
	if container == "" {
		return nil, xerr.New(xerr.KindArchiveFailure, "archive_backend=azure requires archive_bucket (container name)")
	}
	accountURL := fmt.Sprintf("https://%s.blob.core.windows.net/", container)
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindArchiveFailure, err, "load Azure credential")
	}
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindArchiveFailure, err, "create Azure blob client")
	}
	return &azureArchiver{client: client, bucket: container, prefix: prefix}, nil
}

func (a *azureArchiver) Backend() string { return "azure" }

func (a *azureArchiver) Archive(ctx context.Context, step int, dir string) (ArchiveRecord, error) {
	start := time.Now()
	_, compressed, rawSize, err := compressDir(dir)
	if err != nil {
		return ArchiveRecord{}, err
	}
	key := remoteKey(a.prefix, step)
	_, err = a.client.UploadBuffer(ctx, a.bucket, key, compressed.Bytes(), nil)
	if err != nil {
		return ArchiveRecord{}, xerr.Wrap(xerr.KindArchiveFailure, err, "upload step %d to azure container %s/%s", step, a.bucket, key)
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
