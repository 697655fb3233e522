package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	stderrors "errors" // Standard errors package

	"github.com/mcncl/jsondelta/internal/errors" // Custom errors package
	"github.com/mcncl/jsondelta/internal/models"
)

// MaxDepth is the deepest nesting of arrays and objects Parse accepts, the
// same limit encoding/json applies when decoding into values.
const MaxDepth = 10000

var errTooDeep = stderrors.New("exceeded max depth")

// Parse decodes exactly one JSON document from reader. Object fields keep
// their source order; a key repeated within one object keeps its first
// position and takes the last value.
func Parse(reader io.Reader) (*models.Value, error) {
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()

	tok, err := decoder.Token()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		return nil, wrapDecodeError(err)
	}
	root, err := decodeToken(decoder, tok, 0)
	if err != nil {
		return nil, wrapDecodeError(err)
	}

	// Only whitespace may follow the root value.
	if _, err := decoder.Token(); err == nil {
		return nil, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	} else if !stderrors.Is(err, io.EOF) {
		return nil, errors.NewParsingError("invalid trailing data after first JSON value", err)
	}

	return root, nil
}

// ParseBytes parses a JSON document held in memory.
func ParseBytes(data []byte) (*models.Value, error) {
	return Parse(bytes.NewReader(data))
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (*models.Value, error) {
	if strings.TrimSpace(jsonString) == "" {
		return nil, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return Parse(strings.NewReader(jsonString))
}

// ParseFile parses JSON from a file path. Compressed files are decoded
// transparently, see Load.
func ParseFile(filePath string) (*models.Value, error) {
	data, err := Load(filePath, nil)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

func decodeValue(decoder *json.Decoder, depth int) (*models.Value, error) {
	tok, err := decoder.Token()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return decodeToken(decoder, tok, depth)
}

// decodeToken builds the value starting at tok. depth counts the arrays and
// objects enclosing it.
func decodeToken(decoder *json.Decoder, tok json.Token, depth int) (*models.Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		if depth >= MaxDepth {
			return nil, errTooDeep
		}
		switch t {
		case '{':
			obj := models.NewObject()
			for decoder.More() {
				keyTok, err := decoder.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeValue(decoder, depth+1)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if err := closeDelim(decoder); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := models.NewArray()
			for decoder.More() {
				item, err := decodeValue(decoder, depth+1)
				if err != nil {
					return nil, err
				}
				arr.Append(item)
			}
			if err := closeDelim(decoder); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", rune(t))
	case string:
		return models.NewString(t), nil
	case json.Number:
		return models.NewNumber(t), nil
	case bool:
		return models.NewBool(t), nil
	case nil:
		return models.NewNull(), nil
	}
	return nil, fmt.Errorf("unexpected token %T", tok)
}

func closeDelim(decoder *json.Decoder) error {
	_, err := decoder.Token()
	if stderrors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func wrapDecodeError(err error) error {
	if stderrors.Is(err, errTooDeep) {
		return errors.NewParsingError(
			fmt.Sprintf("JSON nesting exceeds maximum depth of %d", MaxDepth),
			errors.ErrInvalidJSON,
		)
	}
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(
			fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset),
			errors.ErrInvalidJSON,
		)
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.NewParsingError("unexpected end of JSON input", errors.ErrInvalidJSON)
	}
	return errors.NewParsingError("failed to decode JSON", err)
}
