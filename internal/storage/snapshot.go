// Package storage holds helpers shared by the blob store backends.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/hash/sha256"
)

// Written describes one object stored by WriteJSON.
type Written struct {
	Path   string `json:"path"`
	URI    string `json:"uri"`
	Size   int    `json:"size"`
	SHA256 string `json:"sha256"`
}

// ObjectPath joins prefix and name into "{prefix}/{name}.json".
func ObjectPath(prefix, name string) string {
	name = strings.TrimSuffix(name, ".json") + ".json"
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// WriteJSON marshals v with indentation and stores it under ObjectPath(prefix, name).
func WriteJSON(ctx context.Context, store civic.BlobStore, prefix, name, contentType string, v any) (Written, error) {
	if store == nil {
		return Written{}, fmt.Errorf("blob store is required")
	}
	if contentType == "" {
		contentType = "application/json"
	}
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Written{}, fmt.Errorf("marshal %s: %w", name, err)
	}
	digest, err := sha256.New().Hash(body)
	if err != nil {
		return Written{}, fmt.Errorf("hash %s: %w", name, err)
	}
	objectPath := ObjectPath(prefix, name)
	uri, err := store.PutObject(ctx, objectPath, contentType, bytes.NewReader(body))
	if err != nil {
		return Written{}, fmt.Errorf("put %s: %w", name, err)
	}
	return Written{Path: objectPath, URI: uri, Size: len(body), SHA256: digest}, nil
}
