package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas
var schemaFiles embed.FS

const schemaBaseURL = "https://blackjackforbots.dev/schemas/"

// ErrInvalidMessage wraps every validation failure
var ErrInvalidMessage = errors.New("protocol: invalid message")

// Validator checks incoming client frames against the embedded JSON
// schemas before they are decoded.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the embedded schemas
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	entries, err := schemaFiles.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("protocol: read schemas: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		data, err := schemaFiles.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("protocol: read schema %s: %w", entry.Name(), err)
		}
		if err := compiler.AddResource(schemaBaseURL+entry.Name(), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("protocol: add schema %s: %w", entry.Name(), err)
		}
		names = append(names, entry.Name())
	}

	schemas := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		schema, err := compiler.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("protocol: compile schema %s: %w", name, err)
		}
		schemas[strings.TrimSuffix(name, ".json")] = schema
	}
	return &Validator{schemas: schemas}, nil
}

// Validate checks a raw client frame and returns its decoded envelope.
// Only client -> server message types are accepted.
func (v *Validator) Validate(frame []byte) (*Message, error) {
	var doc any
	if err := json.Unmarshal(frame, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := v.schemas["message"].Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	schema, ok := v.schemas[string(msg.Type)]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a client message", ErrInvalidMessage, msg.Type)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return &msg, nil
}

// ValidateData checks a bare payload as if it had arrived in an envelope of
// type t. Transports without envelopes, such as Nakama RPCs, use this.
func (v *Validator) ValidateData(t MessageType, data []byte) (*Message, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", ErrInvalidMessage)
	}
	frame, err := json.Marshal(Message{Type: t, Data: data, Timestamp: time.Now()})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return v.Validate(frame)
}
