package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"reelforge/config"
)

// S3Config contains minimal configuration for creating the S3 clip store.
// Values fall back to the standard AWS config/credential chain.
type S3Config struct {
	Bucket       string
	Region       string
	Profile      string
	UsePathStyle bool
}

// S3Store keeps clips in one bucket under the raw_uploads/, processed/ and
// exports/ prefixes and serves exports from the bucket's public URL.
type S3Store struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

// NewS3StoreFromEnv builds an S3Store from S3_BUCKET plus the optional
// S3_REGION, S3_PROFILE and S3_USE_PATH_STYLE variables. Returns nil (and
// no error) when S3_BUCKET is unset so callers can fall back to local disk.
func NewS3StoreFromEnv(ctx context.Context) (*S3Store, error) {
	bucket := strings.TrimSpace(os.Getenv("S3_BUCKET"))
	if bucket == "" {
		return nil, nil
	}
	cfg := S3Config{
		Bucket:       bucket,
		Region:       strings.TrimSpace(os.Getenv("S3_REGION")),
		Profile:      strings.TrimSpace(os.Getenv("S3_PROFILE")),
		UsePathStyle: strings.EqualFold(strings.TrimSpace(os.Getenv("S3_USE_PATH_STYLE")), "true"),
	}
	return NewS3Store(ctx, cfg)
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	region := cfg.Region
	if region == "" {
		region = awsCfg.Region
	}
	return &S3Store{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region),
	}, nil
}

func (s *S3Store) ListRaw(ctx context.Context) ([]ClipRef, error) {
	var refs []ClipRef
	var token *string
	prefix := config.RawPrefix + "/"
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if !isVideoName(key) {
				continue
			}
			refs = append(refs, ClipRef{
				Name: strings.ToLower(filepath.Base(key)),
				Key:  key,
				Size: aws.ToInt64(obj.Size),
			})
		}
		if out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

func (s *S3Store) Fetch(ctx context.Context, name string) (string, func(), error) {
	key := config.RawPrefix + "/" + name
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", nil, fmt.Errorf("fetch %s: clip not found", name)
		}
		return "", nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer out.Body.Close()

	tmp := filepath.Join(os.TempDir(), uuid.NewString()+filepath.Ext(name))
	f, err := os.Create(tmp)
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	f.Close()
	return tmp, func() { os.Remove(tmp) }, nil
}

func (s *S3Store) PutExport(ctx context.Context, localPath, name string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("put export: %w", err)
	}
	defer f.Close()

	key := config.ExportsPrefix + "/" + name
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("put export %s: %w", key, err)
	}
	return s.publicBase + "/" + key, nil
}

func (s *S3Store) MoveRawToProcessed(ctx context.Context) error {
	refs, err := s.ListRaw(ctx)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		newKey := config.ProcessedPrefix + "/" + filepath.Base(ref.Key)
		_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(s.bucket),
			CopySource: aws.String(s.bucket + "/" + ref.Key),
			Key:        aws.String(newKey),
		})
		if err != nil {
			return fmt.Errorf("archive %s: %w", ref.Key, err)
		}
		_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(ref.Key),
		})
		if err != nil {
			return fmt.Errorf("archive %s: %w", ref.Key, err)
		}
	}
	return nil
}

func (s *S3Store) RawURL(name string) string {
	return s.publicBase + "/" + config.RawPrefix + "/" + name
}

// isNotFound matches both the HTTP 404 response shape and the NotFound API
// error code, following the SDK's two ways of reporting a missing object.
func isNotFound(err error) bool {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}
