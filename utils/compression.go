package utils

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// CompressionAlgorithm defines supported compression methods
type CompressionAlgorithm string

const (
	CompressionNone   CompressionAlgorithm = "none"
	CompressionGzip   CompressionAlgorithm = "gzip"
	CompressionBrotli CompressionAlgorithm = "br" // Best ratio for text payloads
)

// compressionThreshold is the payload size below which compression is not
// worth the overhead.
const compressionThreshold = 500

// CompressData compresses data using the specified algorithm
func CompressData(data []byte, algorithm CompressionAlgorithm) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	switch algorithm {
	case CompressionNone:
		return data, nil

	case CompressionGzip:
		var buf bytes.Buffer
		writer := gzip.NewWriter(&buf)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write to gzip writer: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to close gzip writer: %w", err)
		}
		return buf.Bytes(), nil

	case CompressionBrotli:
		var buf bytes.Buffer
		writer := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write to brotli writer: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to close brotli writer: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

// DecompressData decompresses data using the specified algorithm
func DecompressData(compressed []byte, algorithm CompressionAlgorithm) ([]byte, error) {
	if len(compressed) == 0 {
		return compressed, nil
	}

	switch algorithm {
	case CompressionNone:
		return compressed, nil

	case CompressionGzip:
		reader, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read from gzip reader: %w", err)
		}
		return data, nil

	case CompressionBrotli:
		reader := brotli.NewReader(bytes.NewReader(compressed))
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read from brotli reader: %w", err)
		}
		return data, nil

	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

// GetBestCompression chooses the compression method for a payload. Small
// payloads skip compression to avoid overhead; everything else uses brotli.
func GetBestCompression(data []byte) CompressionAlgorithm {
	if len(data) < compressionThreshold {
		return CompressionNone
	}
	return CompressionBrotli
}

// CompressText compresses text data optimally
func CompressText(text string) ([]byte, CompressionAlgorithm, error) {
	data := []byte(text)
	algorithm := GetBestCompression(data)

	compressed, err := CompressData(data, algorithm)
	if err != nil {
		return nil, CompressionNone, err
	}

	return compressed, algorithm, nil
}

// DecompressText decompresses text data
func DecompressText(compressed []byte, algorithm CompressionAlgorithm) (string, error) {
	data, err := DecompressData(compressed, algorithm)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
