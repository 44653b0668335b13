/* SPDX-License-Identifier: BSD-2-Clause */

// Package s3transport reads S3 objects through httpio using ranged GetObject calls.
//
// URLs have the form s3://bucket/key.
package s3transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ricardobranco777/httpio"
)

const tracerName = "github.com/ricardobranco777/httpio/s3transport"

// API is the subset of *s3.Client used by Transport.
type API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds configuration for building an S3 client.
type Config struct {
	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	Endpoint string

	// ForcePathStyle forces path-style addressing (required for MinIO and friends).
	ForcePathStyle bool

	// Static credentials. When AccessKeyID is empty the default chain is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Transport implements httpio.Transport on top of S3.
type Transport struct {
	client API
}

// New returns a Transport using an existing client.
func New(client API) *Transport {
	return &Transport{client: client}
}

// NewFromConfig builds an S3 client from cfg and wraps it.
func NewFromConfig(ctx context.Context, cfg Config) (*Transport, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return New(s3.NewFromConfig(awsCfg, s3Opts...)), nil
}

// ParseURL splits s3://bucket/key.
func ParseURL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("s3transport: not an s3://bucket/key URL: %q", rawURL)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3transport: missing object key in %q", rawURL)
	}
	return u.Host, key, nil
}

// Probe issues HeadObject. S3 always serves ranges, so a missing
// Accept-Ranges in the response is reported as "bytes".
func (t *Transport) Probe(ctx context.Context, rawURL string) (httpio.Metadata, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "httpio.s3.probe",
		trace.WithAttributes(attribute.String("url.full", rawURL)))
	defer span.End()

	bucket, key, err := ParseURL(rawURL)
	if err != nil {
		return httpio.Metadata{}, record(span, transportError("probe", rawURL, err))
	}

	out, err := t.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return httpio.Metadata{}, record(span, transportError("probe", rawURL, err))
	}

	meta := httpio.Metadata{
		Length:       aws.ToInt64(out.ContentLength),
		AcceptRanges: "bytes",
		ETag:         aws.ToString(out.ETag),
	}
	if out.ContentLength == nil {
		meta.Length = -1
	}
	if out.AcceptRanges != nil {
		meta.AcceptRanges = *out.AcceptRanges
	}
	if out.LastModified != nil {
		meta.LastModified = out.LastModified.UTC().Format(http.TimeFormat)
	}
	return meta, nil
}

// FetchRange issues GetObject with Range: bytes=start-(end-1).
func (t *Transport) FetchRange(ctx context.Context, rr httpio.RangeRequest) ([]byte, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "httpio.s3.fetch",
		trace.WithAttributes(
			attribute.String("url.full", rr.URL),
			attribute.Int64("httpio.range.start", rr.Start),
			attribute.Int64("httpio.range.end", rr.End),
		))
	defer span.End()

	bucket, key, err := ParseURL(rr.URL)
	if err != nil {
		return nil, record(span, transportError("fetch", rr.URL, err))
	}

	in := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", rr.Start, rr.End-1)),
	}
	if rr.IfMatch != nil {
		if rr.IfMatch.ETag != "" {
			in.IfMatch = aws.String(rr.IfMatch.ETag)
		}
		if ts, err := http.ParseTime(rr.IfMatch.LastModified); err == nil {
			in.IfUnmodifiedSince = aws.Time(ts)
		}
	}

	out, err := t.client.GetObject(ctx, in)
	if err != nil {
		return nil, record(span, transportError("fetch", rr.URL, err))
	}
	defer out.Body.Close()

	buf := make([]byte, rr.Len())
	if _, err := io.ReadFull(out.Body, buf); err != nil {
		return nil, record(span, transportError("fetch", rr.URL, err))
	}
	return buf, nil
}

// transportError carries the HTTP status of SDK response errors.
func transportError(op, rawURL string, err error) *httpio.TransportError {
	te := &httpio.TransportError{Op: op, URL: rawURL, Err: err}
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		te.StatusCode = re.HTTPStatusCode()
		te.Status = fmt.Sprintf("%d %s", te.StatusCode, http.StatusText(te.StatusCode))
		if te.StatusCode == http.StatusPreconditionFailed {
			te.Err = fmt.Errorf("%w: %w", httpio.ErrResourceChanged, err)
		}
	}
	return te
}

func record(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

var (
	_ httpio.Transport = (*Transport)(nil)
	_ API              = (*s3.Client)(nil)
)
