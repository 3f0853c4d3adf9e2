package cachestore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
)

// Codec compresses blobs on write and restores them on read.
type Codec interface {
	Name() string
	// Extension is appended to file backend entry names.
	Extension() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "gzip":
		return GzipCodec{}, nil
	case "snappy":
		return SnappyCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown cache codec %q", name)
	}
}

// GzipCodec stores entries as gzip streams, readable with any gunzip tool.
type GzipCodec struct{}

func (GzipCodec) Name() string      { return "gzip" }
func (GzipCodec) Extension() string { return ".gz" }

func (GzipCodec) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (GzipCodec) Decode(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip open: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return out, nil
}

// SnappyCodec trades ratio for speed using the snappy block format.
type SnappyCodec struct{}

func (SnappyCodec) Name() string      { return "snappy" }
func (SnappyCodec) Extension() string { return ".sz" }

func (SnappyCodec) Encode(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (SnappyCodec) Decode(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}
	return out, nil
}
