package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		parts  []string
		want   string
	}{
		{name: "noPrefix", parts: []string{"abc", "video.mp4"}, want: "abc/video.mp4"},
		{name: "trimsSlashes", prefix: "/videos/", parts: []string{"/abc/", "final.mp3"}, want: "videos/abc/final.mp3"},
		{name: "skipsEmpty", prefix: "videos", parts: []string{"", "x.srt"}, want: "videos/x.srt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.prefix, tt.parts...); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a.mp3":     "audio/mpeg",
		"b.MP4":     "video/mp4",
		"c.srt":     "application/x-subrip",
		"d.unknown": "application/octet-stream",
	}
	for name, want := range tests {
		if got := contentType(name); got != want {
			t.Errorf("contentType(%q) = %q, want %q", name, got, want)
		}
	}
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLocalStorageUpload(t *testing.T) {
	src := writeTemp(t, "final.mp3", "fake audio data")
	dir := t.TempDir()
	s := NewLocalStorage(dir)

	got, err := s.Upload(context.Background(), src, "videos/abc/final.mp3")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if want := filepath.Join(dir, "videos", "abc", "final.mp3"); got != want {
		t.Errorf("Upload() = %q, want %q", got, want)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fake audio data" {
		t.Errorf("copied content = %q", data)
	}

	keys, err := s.List(context.Background(), "videos/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"videos/abc/final.mp3"}) {
		t.Errorf("List() = %v", keys)
	}
}

func TestLocalStorageUploadErrors(t *testing.T) {
	s := NewLocalStorage(t.TempDir())

	if _, err := s.Upload(context.Background(), "x", ""); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("empty key error = %v, want ErrEmptyKey", err)
	}
	if _, err := s.Upload(context.Background(), "/nonexistent/file.mp3", "a.mp3"); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestLocalStorageListMissingDir(t *testing.T) {
	s := NewLocalStorage("/nonexistent/dir")
	keys, err := s.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("List() = %v, want empty", keys)
	}
}

type fakeS3 struct {
	puts  []*s3.PutObjectInput
	body  string
	pages []*s3.ListObjectsV2Output
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func TestS3StorageUpload(t *testing.T) {
	src := writeTemp(t, "video.mp4", "mp4 bytes")

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{name: "bucketURL", want: "s3://media/videos/abc/video.mp4"},
		{name: "cdnURL", baseURL: "https://cdn.example.com/", want: "https://cdn.example.com/videos/abc/video.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeS3{}
			s := NewS3Storage(api, "media", tt.baseURL)

			got, err := s.Upload(context.Background(), src, "videos/abc/video.mp4")
			if err != nil {
				t.Fatalf("Upload() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Upload() = %q, want %q", got, tt.want)
			}
			if len(api.puts) != 1 {
				t.Fatalf("PutObject calls = %d", len(api.puts))
			}
			in := api.puts[0]
			if aws.ToString(in.ContentType) != "video/mp4" {
				t.Errorf("content type = %q", aws.ToString(in.ContentType))
			}
			if aws.ToInt64(in.ContentLength) != int64(len("mp4 bytes")) {
				t.Errorf("content length = %d", aws.ToInt64(in.ContentLength))
			}
			if api.body != "mp4 bytes" {
				t.Errorf("body = %q", api.body)
			}
		})
	}
}

func TestS3StorageUploadError(t *testing.T) {
	src := writeTemp(t, "a.mp3", "x")
	s := NewS3Storage(&fakeS3{err: errors.New("denied")}, "media", "")
	if _, err := s.Upload(context.Background(), src, "a.mp3"); err == nil {
		t.Error("expected error")
	}
}

func TestS3StorageList(t *testing.T) {
	api := &fakeS3{pages: []*s3.ListObjectsV2Output{
		{
			Contents:              []types.Object{{Key: aws.String("videos/a.mp3")}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("next"),
		},
		{
			Contents: []types.Object{{Key: aws.String("videos/b.mp4")}},
		},
	}}
	s := NewS3Storage(api, "media", "")

	keys, err := s.List(context.Background(), "videos/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"videos/a.mp3", "videos/b.mp4"}) {
		t.Errorf("List() = %v", keys)
	}
}
