// Copyright 2025 Omkar Tanaji Patil
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataimport

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/OmkarTanajiPatil/TEAICup/cnf"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const s3URLPrefix = "s3://"

// IsObjStorageURL tells whether a source path refers to object storage
// rather than the local filesystem.
func IsObjStorageURL(path string) bool {
	return strings.HasPrefix(path, s3URLPrefix)
}

func splitS3URL(rawURL string) (string, string, error) {
	trimmed := strings.TrimPrefix(rawURL, s3URLPrefix)
	bucket, key, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid object storage URL: %s", rawURL)
	}
	return bucket, key, nil
}

// OpenSource opens a readings/status dump for reading. Plain paths are
// opened from the local filesystem, s3://bucket/key URLs are streamed
// from the configured S3-compatible storage.
func OpenSource(ctx context.Context, conf cnf.ObjStorageConf, path string) (io.ReadCloser, error) {
	if !IsObjStorageURL(path) {
		fr, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open source: %w", err)
		}
		return fr, nil
	}
	bucket, key, err := splitS3URL(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	client, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	return obj, nil
}
