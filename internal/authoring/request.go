// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authoring

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ManuGH/lessonstream/internal/video"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/create_video.json
var createVideoSchema []byte

const createVideoSchemaURL = "lessonstream://schema/create_video.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(createVideoSchemaURL, bytes.NewReader(createVideoSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(createVideoSchemaURL)
	})
	return compiledSchema, schemaErr
}

// CreateVideoRequest is the body of POST /video.
type CreateVideoRequest struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	CourseID string `json:"courseId"`
}

// ParseCreateVideoRequest validates raw against the request schema. Any
// violation is a KindBadRequest error.
func ParseCreateVideoRequest(raw []byte) (CreateVideoRequest, error) {
	const op = "authoring.validate"

	s, err := schema()
	if err != nil {
		return CreateVideoRequest{}, video.E(op, video.KindInternal, err)
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return CreateVideoRequest{}, video.E(op, video.KindBadRequest, fmt.Errorf("decode body: %w", err))
	}
	if err := s.Validate(payload); err != nil {
		return CreateVideoRequest{}, video.E(op, video.KindBadRequest, err)
	}

	var req CreateVideoRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return CreateVideoRequest{}, video.E(op, video.KindBadRequest, err)
	}
	return req, nil
}
