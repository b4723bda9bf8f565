// Package codec serializes entry metadata for stores that persist it
// outside the process (badger, postgres, relational, s3).
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	xdr "github.com/rasky/go-xdr/xdr2"
)

// Codec encodes and decodes metadata values of type T.
type Codec[T any] interface {
	Name() string
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte, v *T) error
}

// Names of the built-in codecs.
const (
	JSONName = "json"
	CBORName = "cbor"
	XDRName  = "xdr"
)

// ByName returns the built-in codec called name. The empty name selects JSON.
func ByName[T any](name string) (Codec[T], error) {
	switch name {
	case "", JSONName:
		return JSON[T]{}, nil
	case CBORName:
		return CBOR[T]{}, nil
	case XDRName:
		return XDR[T]{}, nil
	default:
		return nil, fmt.Errorf("unknown metadata codec %q", name)
	}
}

// JSON encodes metadata with encoding/json.
type JSON[T any] struct{}

func (JSON[T]) Name() string { return JSONName }

func (JSON[T]) Marshal(v T) ([]byte, error) { return json.Marshal(v) }

func (JSON[T]) Unmarshal(data []byte, v *T) error { return json.Unmarshal(data, v) }

// encMode uses Core Deterministic Encoding so equal metadata always
// produces identical bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
}

// CBOR encodes metadata as deterministic CBOR.
type CBOR[T any] struct{}

func (CBOR[T]) Name() string { return CBORName }

func (CBOR[T]) Marshal(v T) ([]byte, error) { return encMode.Marshal(v) }

func (CBOR[T]) Unmarshal(data []byte, v *T) error { return cbor.Unmarshal(data, v) }

// XDR encodes metadata as RFC 4506 XDR. T must only use types XDR can
// represent (fixed-size integers, bool, string, byte slices, structs).
type XDR[T any] struct{}

func (XDR[T]) Name() string { return XDRName }

func (XDR[T]) Marshal(v T) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (XDR[T]) Unmarshal(data []byte, v *T) error {
	_, err := xdr.Unmarshal(bytes.NewReader(data), v)
	return err
}
