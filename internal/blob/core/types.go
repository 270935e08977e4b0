// Package core defines the document store abstraction shared by the blob
// backends. Geometry documents are written once and read by key.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete document store backend.
type Driver string

const (
	// DriverFilesystem stores documents under a local directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 stores documents in an S3 / MinIO bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps documents in process memory (tests).
	DriverMemory Driver = "memory"
)

// Format is the serialization of a geometry document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ContentType returns the MIME type stored alongside a document.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "application/yaml"
}

// FormatOf derives the format from a content type or key extension.
// Unknown values default to YAML.
func FormatOf(contentType, key string) Format {
	switch {
	case contentType == "application/json":
		return FormatJSON
	case len(key) > 5 && key[len(key)-5:] == ".json":
		return FormatJSON
	}
	return FormatYAML
}

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored document.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Format returns the document format of the entry.
func (i Info) Format() Format { return FormatOf(i.ContentType, i.Key) }

// Store is the document store used by geometry sources.
type Store interface {
	// Put stores a new document; an existing key yields ErrExists.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the document and its metadata; a missing key yields ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns entries with the prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var (
	ErrNotFound = errors.New("document not found")
	ErrExists   = errors.New("document already exists")
	ErrBadKey   = errors.New("invalid document key")
)

// CloneMetadata copies user metadata so callers cannot alias store state.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
