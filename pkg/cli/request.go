package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"datafood/internal/api"
)

// loadRequest reads an analytics request from path, or stdin for "-".
// .yaml/.yml files are YAML, .json files JSON; stdin and other extensions
// are sniffed.
func loadRequest(path string, stdin io.Reader) (api.AnalyticsQuery, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return api.AnalyticsQuery{}, fmt.Errorf("read request: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAMLRequest(data)
	case ".json":
		return decodeJSONRequest(data)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return decodeJSONRequest(data)
	}
	return decodeYAMLRequest(data)
}

func decodeJSONRequest(data []byte) (api.AnalyticsQuery, error) {
	var q api.AnalyticsQuery
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&q); err != nil {
		return q, fmt.Errorf("parse JSON request: %w", err)
	}
	return q, nil
}

func decodeYAMLRequest(data []byte) (api.AnalyticsQuery, error) {
	var q api.AnalyticsQuery
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&q); err != nil {
		if errors.Is(err, io.EOF) {
			return q, errors.New("parse YAML request: empty document")
		}
		return q, fmt.Errorf("parse YAML request: %w", err)
	}
	return q, nil
}
