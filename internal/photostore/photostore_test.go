package photostore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 records calls and can fail the first N puts.
type fakeS3 struct {
	puts     []s3.PutObjectInput
	deletes  []s3.DeleteObjectInput
	failPuts int
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPuts > 0 {
		f.failPuts--
		return nil, errors.New("transient")
	}
	f.puts = append(f.puts, *input)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, *input)
	return &s3.DeleteObjectOutput{}, nil
}

func testManager(fake *fakeS3) *Manager {
	return &Manager{
		cfg: Config{
			Endpoint: "https://s3.example.com",
			Bucket:   "rallyup",
			Region:   "us-east-1",
		},
		client: fake,
	}
}

func TestDisabledWithoutCredentials(t *testing.T) {
	m := New(Config{})
	if m.Enabled() {
		t.Error("expected disabled manager without credentials")
	}
	if _, err := m.Upload(context.Background(), 1, "a.jpg", "image/jpeg", []byte("x")); err == nil {
		t.Error("expected error from disabled manager")
	}

	var nilManager *Manager
	if nilManager.Enabled() {
		t.Error("nil manager should report disabled")
	}
}

func TestUploadKeyAndURL(t *testing.T) {
	fake := &fakeS3{}
	m := testManager(fake)

	url, err := m.Upload(context.Background(), 7, "car wash.jpg", "image/jpeg", []byte("data"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(fake.puts) != 1 {
		t.Fatalf("expected 1 put, got %d", len(fake.puts))
	}

	key := *fake.puts[0].Key
	if !strings.HasPrefix(key, "photos/7/") {
		t.Errorf("key = %q, want photos/7/ prefix", key)
	}
	if !strings.HasSuffix(key, "-car_wash.jpg") {
		t.Errorf("key = %q, want sanitized name suffix", key)
	}
	if *fake.puts[0].Bucket != "rallyup" {
		t.Errorf("bucket = %q, want rallyup", *fake.puts[0].Bucket)
	}
	want := "https://s3.example.com/rallyup/" + key
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
}

func TestUploadRetriesTransientFailures(t *testing.T) {
	fake := &fakeS3{failPuts: 2}
	m := testManager(fake)

	url, err := m.Upload(context.Background(), 1, "a.jpg", "image/jpeg", []byte("data"))
	if err != nil {
		t.Fatalf("upload after retries: %v", err)
	}
	if url == "" {
		t.Error("expected url after successful retry")
	}
	if len(fake.puts) != 1 {
		t.Errorf("expected 1 successful put, got %d", len(fake.puts))
	}
}

func TestUploadGivesUpAfterMaxRetries(t *testing.T) {
	fake := &fakeS3{failPuts: uploadRetryMax + 1}
	m := testManager(fake)

	if _, err := m.Upload(context.Background(), 1, "a.jpg", "image/jpeg", []byte("data")); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestDeleteOwnURL(t *testing.T) {
	fake := &fakeS3{}
	m := testManager(fake)

	if err := m.Delete(context.Background(), "https://s3.example.com/rallyup/photos/7/123-a.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(fake.deletes) != 1 {
		t.Fatalf("expected 1 delete, got %d", len(fake.deletes))
	}
	if *fake.deletes[0].Key != "photos/7/123-a.jpg" {
		t.Errorf("key = %q, want photos/7/123-a.jpg", *fake.deletes[0].Key)
	}
}

func TestDeleteExternalURLIsNoop(t *testing.T) {
	fake := &fakeS3{}
	m := testManager(fake)

	if err := m.Delete(context.Background(), "https://elsewhere.example.com/p.jpg"); err != nil {
		t.Fatalf("delete external: %v", err)
	}
	if len(fake.deletes) != 0 {
		t.Errorf("expected 0 deletes, got %d", len(fake.deletes))
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"car wash.jpg":      "car_wash.jpg",
		"../../etc/passwd":  "passwd",
		"..\\..\\evil.png":  "evil.png",
		"":                  "photo",
		"ok-file_1.jpeg":    "ok-file_1.jpeg",
		"weird!@#chars.png": "weird___chars.png",
	}
	for in, want := range cases {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
