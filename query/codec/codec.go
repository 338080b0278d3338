// Package codec converts structured values to and from the flat strings
// stored in text columns. Encoded strings carry a scheme tag
// (json://, serialized://, csv://, encrypted://, gzip://) that Decode sniffs;
// untagged strings decode to themselves.
package codec

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/querykit/internal/debug"
	"github.com/satishbabariya/querykit/query/ast"
)

// Scheme tags.
const (
	SchemeJSON       = "json://"
	SchemeSerialized = "serialized://"
	SchemeCSV        = "csv://"
	SchemeEncrypted  = "encrypted://"
	SchemeGzip       = "gzip://"
)

// Format selects the serialization Encode uses for structured values.
type Format string

const (
	FormatJSON       Format = "json"
	FormatSerialized Format = "serialized"
)

// Codec encodes and decodes stored values.
type Codec struct {
	format    Format
	compress  bool
	threshold int
	key       []byte
}

// Option configures a Codec.
type Option func(*Codec)

// WithFormat selects the serialization of structured values.
func WithFormat(f Format) Option {
	return func(c *Codec) {
		c.format = f
	}
}

// WithCompression gzips encoded payloads of at least threshold bytes.
func WithCompression(threshold int) Option {
	return func(c *Codec) {
		c.compress = true
		c.threshold = threshold
	}
}

// WithKey enables encrypted:// payloads. The AES-256 key is derived from
// the passphrase.
func WithKey(passphrase string) Option {
	return func(c *Codec) {
		if passphrase == "" {
			c.key = nil
			return
		}
		sum := sha256.Sum256([]byte(passphrase))
		c.key = sum[:]
	}
}

// New creates a codec. The default serializes to JSON without compression.
func New(opts ...Option) *Codec {
	c := &Codec{format: FormatJSON}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode flattens v to a string. Scalars are stored as their text;
// everything else is serialized and tagged.
func (c *Codec) Encode(v any) (string, error) {
	if isPlain(v) {
		return ast.Lit(v).String(), nil
	}

	var text string
	switch c.format {
	case FormatSerialized:
		b, err := yaml.Marshal(v)
		if err != nil {
			return "", &CodecError{Scheme: SchemeSerialized, Err: err}
		}
		text = SchemeSerialized + string(b)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", &CodecError{Scheme: SchemeJSON, Err: err}
		}
		text = SchemeJSON + string(b)
	}

	if c.compress && len(text) >= c.threshold {
		return compress(text)
	}
	return text, nil
}

// EncodeCSV stores records as a csv:// payload.
func (c *Codec) EncodeCSV(records [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return "", &CodecError{Scheme: SchemeCSV, Err: err}
	}
	return SchemeCSV + buf.String(), nil
}

// EncodeEncrypted encodes v and seals the result with the codec key.
func (c *Codec) EncodeEncrypted(v any) (string, error) {
	if c.key == nil {
		return "", &CodecError{Scheme: SchemeEncrypted, Err: errors.New("no key configured")}
	}
	plain, err := c.Encode(v)
	if err != nil {
		return "", err
	}
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", &CodecError{Scheme: SchemeEncrypted, Err: err}
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plain), nil)
	return SchemeEncrypted + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode reverses Encode. Untagged strings are returned unchanged, except
// bare JSON objects and arrays written by older versions.
func (c *Codec) Decode(s string) (any, error) {
	switch {
	case strings.HasPrefix(s, SchemeGzip):
		inner, err := decompress(strings.TrimPrefix(s, SchemeGzip))
		if err != nil {
			return nil, err
		}
		return c.Decode(inner)
	case strings.HasPrefix(s, SchemeEncrypted):
		inner, err := c.decrypt(strings.TrimPrefix(s, SchemeEncrypted))
		if err != nil {
			return nil, err
		}
		return c.Decode(inner)
	case strings.HasPrefix(s, SchemeJSON):
		var v any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(s, SchemeJSON)), &v); err != nil {
			return nil, &CodecError{Scheme: SchemeJSON, Err: err}
		}
		return v, nil
	case strings.HasPrefix(s, SchemeSerialized):
		var v any
		if err := yaml.Unmarshal([]byte(strings.TrimPrefix(s, SchemeSerialized)), &v); err != nil {
			return nil, &CodecError{Scheme: SchemeSerialized, Err: err}
		}
		return v, nil
	case strings.HasPrefix(s, SchemeCSV):
		return decodeCSV(strings.TrimPrefix(s, SchemeCSV))
	}

	trimmed := strings.TrimSpace(s)
	if (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && json.Valid([]byte(trimmed)) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v, nil
		}
	}
	return s, nil
}

// Lenient decodes s and falls back to s itself when decoding fails.
func (c *Codec) Lenient(s string) any {
	v, err := c.Decode(s)
	if err != nil {
		debug.Warn("returning undecodable value as is", "error", err)
		return s
	}
	return v
}

// Resolve turns values the builder cannot render into encoded scalars.
func (c *Codec) Resolve(v ast.Value) (ast.Value, error) {
	switch v := v.(type) {
	case ast.Composite:
		text, err := c.Encode(v.V)
		if err != nil {
			return nil, err
		}
		return ast.Lit(text), nil
	case ast.List:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s.V
		}
		text, err := c.Encode(items)
		if err != nil {
			return nil, err
		}
		return ast.Lit(text), nil
	}
	return v, nil
}

// ResolveRow applies Resolve to every field of row.
func (c *Codec) ResolveRow(row ast.Row) (ast.Row, error) {
	out := make(ast.Row, len(row))
	for i, f := range row {
		v, err := c.Resolve(f.Value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", f.Column, err)
		}
		out[i] = ast.Field{Column: f.Column, Value: v}
	}
	return out, nil
}

func isPlain(v any) bool {
	switch v.(type) {
	case nil, string, []byte, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func compress(text string) (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(text)); err != nil {
		return "", &CodecError{Scheme: SchemeGzip, Err: err}
	}
	if err := zw.Close(); err != nil {
		return "", &CodecError{Scheme: SchemeGzip, Err: err}
	}
	return SchemeGzip + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decompress(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", &CodecError{Scheme: SchemeGzip, Err: err}
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", &CodecError{Scheme: SchemeGzip, Err: err}
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return "", &CodecError{Scheme: SchemeGzip, Err: err}
	}
	return string(out), nil
}

func decodeCSV(payload string) (any, error) {
	r := csv.NewReader(strings.NewReader(payload))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, &CodecError{Scheme: SchemeCSV, Err: err}
	}
	if len(records) == 1 {
		return records[0], nil
	}
	return records, nil
}

func (c *Codec) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, &CodecError{Scheme: SchemeEncrypted, Err: err}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &CodecError{Scheme: SchemeEncrypted, Err: err}
	}
	return gcm, nil
}

func (c *Codec) decrypt(payload string) (string, error) {
	if c.key == nil {
		return "", &CodecError{Scheme: SchemeEncrypted, Err: errors.New("no key configured")}
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", &CodecError{Scheme: SchemeEncrypted, Err: err}
	}
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", &CodecError{Scheme: SchemeEncrypted, Err: errors.New("payload too short")}
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", &CodecError{Scheme: SchemeEncrypted, Err: err}
	}
	return string(plain), nil
}
