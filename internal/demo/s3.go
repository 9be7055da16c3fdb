package demo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/snarg/meeting-intel/internal/config"
	"github.com/snarg/meeting-intel/internal/meeting"
)

// s3API is the subset of the S3 client used here.
type s3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Source reads demo records from an S3-compatible bucket.
type S3Source struct {
	client  s3API
	bucket  string
	prefix  string
	pattern string
	log     zerolog.Logger
}

// NewS3Source creates an S3 demo source from config.
func NewS3Source(cfg config.S3Config, pattern string, log zerolog.Logger) (*S3Source, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return newS3Source(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Prefix, pattern, log), nil
}

func newS3Source(client s3API, bucket, prefix, pattern string, log zerolog.Logger) *S3Source {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return &S3Source{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		pattern: pattern,
		log:     log.With().Str("component", "demo-s3").Logger(),
	}
}

func (s *S3Source) Type() string { return "s3" }

func (s *S3Source) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Source:   s.Type(),
		Location: "s3://" + s.bucket + "/" + s.prefix,
		Entries:  []Entry{},
		LoadedAt: time.Now(),
	}

	var keys []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if ok, _ := path.Match(s.pattern, path.Base(key)); ok {
				keys = append(keys, key)
			}
		}
	}

	for _, key := range keys {
		name := strings.TrimPrefix(key, s.prefix)
		rec, err := s.read(ctx, key)
		if err != nil {
			snap.Errors = append(snap.Errors, LoadError{Name: name, Error: err.Error()})
			continue
		}
		snap.Entries = append(snap.Entries, Entry{Name: name, Record: rec})
	}
	sortEntries(snap)
	return snap, nil
}

func (s *S3Source) read(ctx context.Context, key string) (*meeting.Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	return meeting.Decode(data)
}

func (s *S3Source) Save(ctx context.Context, name string, data []byte) error {
	key := s.prefix + name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	s.log.Info().Str("key", key).Int("bytes", len(data)).Msg("demo record published")
	return nil
}
