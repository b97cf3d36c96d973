package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mdeval/mdeval/internal/canonical"
	"github.com/mdeval/mdeval/internal/checksum"
)

// ObjectStoreConfig locates an S3-compatible bucket.
type ObjectStoreConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// ObjectStore is a Backend on an S3-compatible bucket, one object per entry.
// Uploads are single PUTs, so readers see either the old or the new object.
type ObjectStore struct {
	client *minio.Client
	bucket string
	region string
	prefix string

	initOnce sync.Once
	initErr  error
}

// NewObjectStore connects to the bucket described by cfg. The bucket is
// created on first use if it does not exist.
func NewObjectStore(cfg ObjectStoreConfig) (*ObjectStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &ObjectStore{
		client: client,
		bucket: bucket,
		region: region,
		prefix: normalizePrefix(cfg.Prefix),
	}, nil
}

func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "mdeval/"
	}
	return p + "/"
}

func (s *ObjectStore) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *ObjectStore) objectKey(key checksum.Fingerprint) string {
	return s.prefix + key.Hex() + ".bin"
}

// Load implements Backend.
func (s *ObjectStore) Load(ctx context.Context, key checksum.Fingerprint) (Record, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return Record{}, fmt.Errorf("ensure bucket: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return Record{}, mapObjectError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return Record{}, mapObjectError(err)
	}
	rec, err := decodeObject(data)
	if err != nil {
		return Record{}, fmt.Errorf("load %s: %w", key.Hex(), err)
	}
	rec.Key = key
	return rec, nil
}

// Save implements Backend.
func (s *ObjectStore) Save(ctx context.Context, rec Record) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	if rec.Created.IsZero() {
		rec.Created = time.Now().UTC()
	}
	body, err := encodeObject(rec)
	if err != nil {
		return fmt.Errorf("save %s: %w", rec.Key.Hex(), err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.objectKey(rec.Key), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		UserMetadata: map[string]string{
			"label":  url.QueryEscape(rec.Label),
			"writer": url.QueryEscape(rec.Writer),
		},
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", rec.Key.Hex(), err)
	}
	return nil
}

// Delete implements Backend.
func (s *ObjectStore) Delete(ctx context.Context, key checksum.Fingerprint) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	name := s.objectKey(key)
	// RemoveObject succeeds for absent keys.
	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		return mapObjectError(err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key.Hex(), err)
	}
	return nil
}

// List implements Backend. Labels come from object metadata, so each entry
// costs one extra request.
func (s *ObjectStore) List(ctx context.Context) ([]Info, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	infos := make([]Info, 0, 32)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		hex, ok := strings.CutSuffix(strings.TrimPrefix(obj.Key, s.prefix), ".bin")
		if !ok {
			continue
		}
		key, err := checksum.ParseHex(hex)
		if err != nil {
			continue
		}
		info := Info{Key: key, Size: obj.Size, Created: obj.LastModified.UTC()}
		if st, err := s.client.StatObject(ctx, s.bucket, obj.Key, minio.StatObjectOptions{}); err == nil {
			info.Label = userMeta(st.UserMetadata, "label")
			info.Writer = userMeta(st.UserMetadata, "writer")
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Purge implements Backend.
func (s *ObjectStore) Purge(ctx context.Context) (int, error) {
	infos, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, in := range infos {
		if err := s.client.RemoveObject(ctx, s.bucket, s.objectKey(in.Key), minio.RemoveObjectOptions{}); err != nil {
			return n, fmt.Errorf("purge: %w", err)
		}
		n++
	}
	return n, nil
}

func mapObjectError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return ErrNotFound
	}
	return err
}

// userMeta looks up a user metadata value regardless of header casing.
func userMeta(m map[string]string, name string) string {
	for k, v := range m {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if k == name {
			if s, err := url.QueryUnescape(v); err == nil {
				return s
			}
			return v
		}
	}
	return ""
}

type objectHeader struct {
	Label   string `json:"label"`
	Writer  string `json:"writer"`
	Created int64  `json:"created"`
	Meta    string `json:"meta"`
}

// encodeObject frames a record as a 4-byte little-endian header length,
// the canonical JSON header and the raw payload.
func encodeObject(rec Record) ([]byte, error) {
	header, err := canonical.Marshal(map[string]any{
		"label":   rec.Label,
		"writer":  rec.Writer,
		"created": rec.Created.UnixMilli(),
		"meta":    string(rec.Meta),
	})
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 4+len(header)+len(rec.Payload))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(header)))
	out = append(out, header...)
	out = append(out, rec.Payload...)
	return out, nil
}

func decodeObject(data []byte) (Record, error) {
	if len(data) < 4 {
		return Record{}, fmt.Errorf("object too short (%d bytes)", len(data))
	}
	n := int(binary.LittleEndian.Uint32(data))
	if n > len(data)-4 {
		return Record{}, fmt.Errorf("object header length %d exceeds object size %d", n, len(data))
	}
	var h objectHeader
	if err := json.Unmarshal(data[4:4+n], &h); err != nil {
		return Record{}, fmt.Errorf("object header: %w", err)
	}
	return Record{
		Label:   h.Label,
		Writer:  h.Writer,
		Meta:    []byte(h.Meta),
		Payload: append([]byte{}, data[4+n:]...),
		Created: time.UnixMilli(h.Created).UTC(),
	}, nil
}
