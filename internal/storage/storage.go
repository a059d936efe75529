// Package storage publishes rendered artifacts (final audio, video,
// subtitles) to a local directory or an object store.
package storage

import (
	"context"
	"errors"
	"mime"
	"path"
	"path/filepath"
	"strings"
)

// Storage uploads one local file under key and returns where it can be
// fetched from.
type Storage interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

var ErrEmptyKey = errors.New("object key is required")

// Key joins prefix and the parts with forward slashes.
func Key(prefix string, parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	if p := strings.Trim(prefix, "/"); p != "" {
		all = append(all, p)
	}
	for _, part := range parts {
		if part = strings.Trim(part, "/"); part != "" {
			all = append(all, part)
		}
	}
	return path.Join(all...)
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".mp4":
		return "video/mp4"
	case ".srt":
		return "application/x-subrip"
	case ".json":
		return "application/json"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func publicURL(baseURL, fallback, key string) string {
	if baseURL != "" {
		return strings.TrimSuffix(baseURL, "/") + "/" + key
	}
	return fallback
}
