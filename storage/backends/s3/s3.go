/*
 * Copyright (c) 2021 Gilles Chehade <gilles@poolp.org>
 *
 * Permission to use, copy, modify, and distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PlakarLabs/blobbackup/storage"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const restoreDays = 1

// Repository stores blobs in an S3 bucket. Access tiers map to storage
// classes and archived objects are rehydrated through restore requests.
type Repository struct {
	minioClient *minio.Client
	bucketName  string
}

func init() {
	storage.Register("s3", func() storage.Backend { return NewRepository() })
}

func NewRepository() *Repository {
	return &Repository{}
}

func StorageClass(tier storage.Tier) string {
	switch tier {
	case storage.TierHot:
		return "STANDARD"
	case storage.TierCool:
		return "STANDARD_IA"
	default:
		return "GLACIER"
	}
}

func TierFromStorageClass(class string) storage.Tier {
	switch class {
	case "", "STANDARD", "REDUCED_REDUNDANCY", "EXPRESS_ONEZONE":
		return storage.TierHot
	case "STANDARD_IA", "ONEZONE_IA", "INTELLIGENT_TIERING", "GLACIER_IR":
		return storage.TierCool
	default:
		return storage.TierArchive
	}
}

// parseLocation accepts s3://key:secret@endpoint/bucket[?secure=false].
func parseLocation(location string) (*url.URL, string, error) {
	parsed, err := url.Parse(location)
	if err != nil {
		return nil, "", err
	}
	if parsed.Scheme != "s3" {
		return nil, "", fmt.Errorf("%s: unsupported scheme %q", location, parsed.Scheme)
	}
	bucketName := strings.Trim(parsed.Path, "/")
	if bucketName == "" || strings.Contains(bucketName, "/") {
		return nil, "", fmt.Errorf("%s: invalid bucket name", location)
	}
	return parsed, bucketName, nil
}

func (repository *Repository) connect(location *url.URL) error {
	endpoint := location.Host
	accessKeyID := location.User.Username()
	secretAccessKey, _ := location.User.Password()
	useSSL := location.Query().Get("secure") != "false"

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
		Region: location.Query().Get("region"),
	})
	if err != nil {
		return err
	}

	repository.minioClient = minioClient
	return nil
}

func (repository *Repository) Create(location string) error {
	parsed, bucketName, err := parseLocation(location)
	if err != nil {
		return err
	}
	if err := repository.connect(parsed); err != nil {
		return err
	}
	repository.bucketName = bucketName

	exists, err := repository.minioClient.BucketExists(context.Background(), repository.bucketName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return repository.minioClient.MakeBucket(context.Background(), repository.bucketName, minio.MakeBucketOptions{
		Region: parsed.Query().Get("region"),
	})
}

func (repository *Repository) Open(location string) error {
	parsed, bucketName, err := parseLocation(location)
	if err != nil {
		return err
	}
	if err := repository.connect(parsed); err != nil {
		return err
	}
	repository.bucketName = bucketName

	exists, err := repository.minioClient.BucketExists(context.Background(), repository.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", repository.bucketName)
	}
	return nil
}

func (repository *Repository) Close() error {
	return nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (repository *Repository) Exists(key string) (bool, error) {
	_, err := repository.minioClient.StatObject(context.Background(), repository.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (repository *Repository) Upload(key string, data []byte, tier storage.Tier) error {
	_, err := repository.minioClient.PutObject(context.Background(), repository.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		StorageClass: StorageClass(tier),
	})
	return err
}

func (repository *Repository) Download(key string) ([]byte, error) {
	object, err := repository.minioClient.GetObject(context.Background(), repository.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (repository *Repository) DeleteIfExists(key string) (bool, error) {
	exists, err := repository.Exists(key)
	if err != nil || !exists {
		return false, err
	}
	err = repository.minioClient.RemoveObject(context.Background(), repository.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		return false, err
	}
	return true, nil
}

// StartCopy copies source to target server-side. An archived source cannot
// be copied yet: a restore request is issued instead and the copy is
// expected to be started again once the object is readable.
func (repository *Repository) StartCopy(source string, target string, tier storage.Tier) error {
	_, err := repository.minioClient.CopyObject(context.Background(),
		minio.CopyDestOptions{
			Bucket: repository.bucketName,
			Object: target,
			UserMetadata: map[string]string{
				"X-Amz-Storage-Class": StorageClass(tier),
			},
			ReplaceMetadata: true,
		},
		minio.CopySrcOptions{
			Bucket: repository.bucketName,
			Object: source,
		})
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return storage.ErrNotFound
	case "InvalidObjectState":
		return repository.restore(source)
	default:
		return err
	}
}

func (repository *Repository) restore(key string) error {
	req := minio.RestoreRequest{}
	req.SetDays(restoreDays)
	req.SetGlacierJobParameters(minio.GlacierJobParameters{Tier: minio.TierStandard})

	err := repository.minioClient.RestoreObject(context.Background(), repository.bucketName, key, "", req)
	if err != nil && minio.ToErrorResponse(err).Code != "RestoreAlreadyInProgress" {
		return err
	}
	return nil
}

func (repository *Repository) GetProperties(key string) (storage.Properties, error) {
	info, err := repository.minioClient.StatObject(context.Background(), repository.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return storage.Properties{}, storage.ErrNotFound
		}
		return storage.Properties{}, err
	}
	return storage.Properties{
		Size:       info.Size,
		Tier:       TierFromStorageClass(info.StorageClass),
		CopyStatus: storage.CopySuccess,
	}, nil
}

func (repository *Repository) List(prefix string) ([]string, error) {
	ret := make([]string, 0)
	for object := range repository.minioClient.ListObjects(context.Background(), repository.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, object.Err
		}
		ret = append(ret, object.Key)
	}
	return ret, nil
}
