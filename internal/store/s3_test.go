package store

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockS3Client implements S3API for testing.
type mockS3Client struct {
	getFn  func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	copyFn func(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)

	getCalls  int
	copyCalls int
	lastGet   *s3.GetObjectInput
	lastCopy  *s3.CopyObjectInput
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.getCalls++
	m.lastGet = params
	if m.getFn != nil {
		return m.getFn(ctx, params, optFns...)
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("raw message text")),
	}, nil
}

func (m *mockS3Client) CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	m.copyCalls++
	m.lastCopy = params
	if m.copyFn != nil {
		return m.copyFn(ctx, params, optFns...)
	}
	return &s3.CopyObjectOutput{}, nil
}

func TestFetchBody(t *testing.T) {
	t.Parallel()

	mock := &mockS3Client{}
	st := NewS3WithClient(S3Options{
		Bucket:    "mail-bucket",
		KeyPrefix: "inbox/",
	}, mock)

	body, err := st.FetchBody(context.Background(), "msg-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if body != "raw message text" {
		t.Errorf("body: got %q, want %q", body, "raw message text")
	}
	if got := *mock.lastGet.Bucket; got != "mail-bucket" {
		t.Errorf("bucket: got %q, want %q", got, "mail-bucket")
	}
	if got := *mock.lastGet.Key; got != "inbox/msg-123" {
		t.Errorf("key: got %q, want %q", got, "inbox/msg-123")
	}
	if mock.copyCalls != 0 {
		t.Errorf("copy calls: got %d, want 0", mock.copyCalls)
	}
}

func TestFetchBody_ArchiveCopy(t *testing.T) {
	t.Parallel()

	mock := &mockS3Client{}
	st := NewS3WithClient(S3Options{
		Bucket:        "mail-bucket",
		KeyPrefix:     "inbox/",
		ArchivePrefix: "processed/",
	}, mock)

	if _, err := st.FetchBody(context.Background(), "msg-123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.copyCalls != 1 {
		t.Fatalf("copy calls: got %d, want 1", mock.copyCalls)
	}
	if got := *mock.lastCopy.CopySource; got != "mail-bucket/inbox/msg-123" {
		t.Errorf("copy source: got %q, want %q", got, "mail-bucket/inbox/msg-123")
	}
	if got := *mock.lastCopy.Key; got != "processed/msg-123" {
		t.Errorf("copy key: got %q, want %q", got, "processed/msg-123")
	}
	if mock.getCalls != 1 {
		t.Errorf("get calls: got %d, want 1", mock.getCalls)
	}
}

func TestFetchBody_ArchiveCopyFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	mock := &mockS3Client{
		copyFn: func(context.Context, *s3.CopyObjectInput, ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
			return nil, errors.New("access denied")
		},
	}
	st := NewS3WithClient(S3Options{
		Bucket:        "mail-bucket",
		ArchivePrefix: "processed/",
	}, mock)

	body, err := st.FetchBody(context.Background(), "msg-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "raw message text" {
		t.Errorf("body: got %q, want %q", body, "raw message text")
	}
}

func TestFetchBody_GetError(t *testing.T) {
	t.Parallel()

	mock := &mockS3Client{
		getFn: func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return nil, errors.New("no such key")
		},
	}
	st := NewS3WithClient(S3Options{Bucket: "mail-bucket"}, mock)

	if _, err := st.FetchBody(context.Background(), "msg-123"); err == nil {
		t.Error("expected error, got nil")
	}
}
