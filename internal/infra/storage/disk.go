// Package storage はデジタル商品ファイルの置き場所を抽象化する。
// local（開発・テスト）と s3（S3互換: AWS, MinIO, R2）の2ドライバ。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"digistore/internal/config"
)

var ErrNotExist = errors.New("storage: file does not exist")

type Disk interface {
	Put(ctx context.Context, path string, r io.Reader) error
	// 呼び出し側で Close する
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}

// STORAGE_DISK で選ぶ
func New(ctx context.Context, cfg config.Config) (Disk, error) {
	switch cfg.StorageDisk {
	case "local", "":
		return NewLocalDisk(cfg.StorageLocalRoot)
	case "s3":
		return NewS3Disk(ctx, S3Options{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Key:      cfg.S3Key,
			Secret:   cfg.S3Secret,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return nil, fmt.Errorf("storage: unsupported disk %q", cfg.StorageDisk)
	}
}
