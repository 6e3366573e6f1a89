package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// WriteJSON stores v as indented JSON
func WriteJSON(ctx context.Context, w Writer, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	data = append(data, '\n')
	if err := w.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// ReadJSON decodes the artifact at key into v
func ReadJSON(ctx context.Context, r Reader, key string, v interface{}) error {
	rc, err := r.GetReader(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}
