package puzzle

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the catalog needs
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Catalog serves puzzles published as <prefix>/<id>.json objects.
type S3Catalog struct {
	client S3API
	bucket string
	prefix string

	mu    sync.Mutex
	cache map[string]*Puzzle
}

func NewS3Catalog(client S3API, bucket, prefix string) *S3Catalog {
	return &S3Catalog{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		cache:  make(map[string]*Puzzle),
	}
}

func (c *S3Catalog) key(id string) string {
	if c.prefix == "" {
		return id + ".json"
	}
	return path.Join(c.prefix, id+".json")
}

func (c *S3Catalog) Get(ctx context.Context, id string) (*Puzzle, error) {
	c.mu.Lock()
	if p, ok := c.cache[id]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrPuzzleNotFound
		}
		return nil, fmt.Errorf("failed to fetch puzzle %s: %w", id, err)
	}
	defer out.Body.Close()

	p, err := Decode(out.Body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[id] = p
	c.mu.Unlock()
	return p, nil
}

func (c *S3Catalog) IDs(ctx context.Context) ([]string, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(c.bucket)}
	if c.prefix != "" {
		input.Prefix = aws.String(c.prefix + "/")
	}

	var ids []string
	for {
		out, err := c.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list puzzles: %w", err)
		}
		for _, obj := range out.Contents {
			name := path.Base(aws.ToString(obj.Key))
			if strings.HasSuffix(name, ".json") {
				ids = append(ids, strings.TrimSuffix(name, ".json"))
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	sort.Strings(ids)
	return ids, nil
}
