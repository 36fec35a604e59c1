// Package codec turns cached values into bytes and back.
//
// The disk tier never sees a value directly: it stores whatever a Codec produces
// and hands the bytes back to the same Codec on read. Failures are reported with
// the types.ErrEncoding and types.ErrDecoding kinds.
package codec

import (
	"bytes"
	"encoding/gob"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/krisalay/tiered-cache/types"
)

// Codec serializes values of one type.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

func encodeErr(err error) error { return types.NewError(types.ErrEncoding, "encode", "", err) }
func decodeErr(err error) error { return types.NewError(types.ErrDecoding, "decode", "", err) }

// JSON encodes values as JSON. It is the default codec.
type JSON[T any] struct{}

func (JSON[T]) Encode(v T) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, encodeErr(err)
	}
	return b, nil
}

func (JSON[T]) Decode(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, decodeErr(err)
	}
	return v, nil
}

// Gob encodes values with encoding/gob. Interface-typed fields must be registered with gob.Register.
type Gob[T any] struct{}

func (Gob[T]) Encode(v T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, encodeErr(err)
	}
	return buf.Bytes(), nil
}

func (Gob[T]) Decode(data []byte) (T, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return v, decodeErr(err)
	}
	return v, nil
}

// YAML encodes values as YAML documents.
type YAML[T any] struct{}

func (YAML[T]) Encode(v T) (b []byte, err error) {
	// yaml.v3 panics on some unsupported kinds (channels, funcs) instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, encodeErr(panicError{r})
		}
	}()
	b, err = yaml.Marshal(v)
	if err != nil {
		return nil, encodeErr(err)
	}
	return b, nil
}

func (YAML[T]) Decode(data []byte) (T, error) {
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return v, decodeErr(err)
	}
	return v, nil
}

type panicError struct{ v any }

func (p panicError) Error() string {
	if err, ok := p.v.(error); ok {
		return err.Error()
	}
	if s, ok := p.v.(string); ok {
		return s
	}
	return "unsupported value"
}

// Bytes passes []byte values through untouched.
type Bytes struct{}

func (Bytes) Encode(v []byte) ([]byte, error) { return v, nil }

func (Bytes) Decode(data []byte) ([]byte, error) { return data, nil }
