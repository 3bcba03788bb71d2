package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/source"
)

// decodeWrites accepts a single CatalogWrite object or an array of them.
func decodeWrites(r io.Reader) ([]source.CatalogWrite, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty input")
	}

	if raw[0] == '[' {
		var writes []source.CatalogWrite
		if err := strictUnmarshal(raw, &writes); err != nil {
			return nil, err
		}
		if len(writes) == 0 {
			return nil, errors.New("no catalog writes in input")
		}
		return writes, nil
	}

	var w source.CatalogWrite
	if err := strictUnmarshal(raw, &w); err != nil {
		return nil, err
	}
	return []source.CatalogWrite{w}, nil
}

func strictUnmarshal(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}
	return nil
}
