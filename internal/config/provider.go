package config

import "errors"

var errReadBytesNotSupported = errors.New("config: map provider has no byte form")

// mapProvider feeds a nested map into koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytesNotSupported
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}
