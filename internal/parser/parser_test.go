package parser

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsondelta/internal/errors"
	"github.com/mcncl/jsondelta/internal/models"
)

func TestParse_SimpleObject(t *testing.T) {
	jsonStr := `{"name": "John Doe", "age": 30, "isStudent": false, "city": null}`
	root, err := Parse(strings.NewReader(jsonStr))
	if err != nil {
		t.Fatalf("Parse() error = %v, wantErr nil", err)
	}

	if root.Kind() != models.Object {
		t.Fatalf("Parse() root kind = %s, want object", root.Kind())
	}
	if got := root.Keys(); !assert.Equal(t, []string{"name", "age", "isStudent", "city"}, got) {
		return
	}

	age, _ := root.Get("age")
	assert.Equal(t, json.Number("30"), age.AsNumber())
	city, _ := root.Get("city")
	assert.Equal(t, models.Null, city.Kind())
	student, _ := root.Get("isStudent")
	assert.False(t, student.AsBool())
}

func TestParse_PreservesOrderAndLiterals(t *testing.T) {
	root, err := ParseString(`{"z": 1.50, "a": [3, "x", {"k": 1e2}], "m": "é"}`)
	require.NoError(t, err)

	assert.Equal(t, `{"z":1.50,"a":[3,"x",{"k":1e2}],"m":"é"}`, root.String())
}

func TestParse_DuplicateKeys(t *testing.T) {
	root, err := ParseString(`{"a": 1, "b": 2, "a": 3}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, root.Keys())
	assert.Equal(t, `{"a":3,"b":2}`, root.String())
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	if err == nil {
		t.Fatal("Parse() with empty reader, err = nil, want error")
	}
	assert.True(t, stderrors.Is(err, errors.ErrEmptyInput))

	_, err = Parse(strings.NewReader(" \n\t "))
	assert.True(t, stderrors.Is(err, errors.ErrEmptyInput))
}

func TestParseString_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   "} {
		_, err := ParseString(input)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input string is empty")
		assert.True(t, stderrors.Is(err, &errors.AppError{Type: errors.ErrorTypeInput}))
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"missing closing brace", `{"name": "John Doe", "age": 30`, "unexpected end of JSON input"},
		{"missing closing bracket", `["item1", "item2",`, "unexpected end of JSON input"},
		{"trailing comma", `{"a": 1,}`, "JSON syntax error at offset"},
		{"bare word", `nope`, "JSON syntax error at offset"},
		{"unquoted key", `{a: 1}`, "JSON syntax error at offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.True(t, stderrors.Is(err, errors.ErrInvalidJSON))
		})
	}
}

func TestParse_MaxDepth(t *testing.T) {
	nested := func(depth int) string {
		return strings.Repeat(`{"a":[`, depth/2) + strings.Repeat("[", depth%2) +
			strings.Repeat("]", depth%2) + strings.Repeat("]}", depth/2)
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"at the limit", strings.Repeat("[", MaxDepth) + strings.Repeat("]", MaxDepth), false},
		{"objects and arrays at the limit", nested(MaxDepth), false},
		{"one past the limit", strings.Repeat("[", MaxDepth+1) + strings.Repeat("]", MaxDepth+1), true},
		{"objects and arrays past the limit", nested(MaxDepth + 1), true},
		{"far past the limit", strings.Repeat("[", 3_000_000) + strings.Repeat("]", 3_000_000), true},
		{"unterminated past the limit", strings.Repeat("[", MaxDepth+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := ParseString(tt.input)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.NotNil(t, root)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "JSON nesting exceeds maximum depth")
			assert.True(t, stderrors.Is(err, errors.ErrInvalidJSON))
		})
	}
}

func TestParse_MultipleValues(t *testing.T) {
	_, err := ParseString(`{"a": 1} {"b": 2}`)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrMultipleJSON))

	_, err = ParseString("1 2")
	assert.True(t, stderrors.Is(err, errors.ErrMultipleJSON))

	_, err = ParseString("{\"a\": 1}\n\n")
	assert.NoError(t, err)
}

func TestParse_RootPrimitives(t *testing.T) {
	testCases := []struct {
		name     string
		jsonStr  string
		wantKind models.Kind
		wantText string
	}{
		{"RootString", `"hello world"`, models.String, `"hello world"`},
		{"RootNumber", `123.45`, models.Number, `123.45`},
		{"RootBooleanTrue", `true`, models.Bool, `true`},
		{"RootBooleanFalse", `false`, models.Bool, `false`},
		{"RootNull", `null`, models.Null, `null`},
		{"RootEmptyArray", `[]`, models.Array, `[]`},
		{"RootEmptyObject", `{}`, models.Object, `{}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			root, err := Parse(strings.NewReader(tc.jsonStr))
			if err != nil {
				t.Fatalf("Parse() error = %v, wantErr nil for %s", err, tc.name)
			}
			assert.Equal(t, tc.wantKind, root.Kind())
			assert.Equal(t, tc.wantText, root.String())
		})
	}
}

func TestParseFile_SimpleObject(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_simple_*.json")
	require.NoError(t, err)
	defer func() {
		_ = os.Remove(tmpfile.Name())
	}()

	_, err = tmpfile.WriteString(`{"product": "Laptop", "price": 1200.50}`)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	root, err := ParseFile(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, `{"product":"Laptop","price":1200.50}`, root.String())
}

func TestParseFile_NonExistentFile(t *testing.T) {
	_, err := ParseFile("nonexistentfile.json")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrFileNotFound))
	assert.Contains(t, err.Error(), "not found")
}

func TestParseFile_EmptyPath(t *testing.T) {
	_, err := ParseFile("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file path is empty")
}

func TestParseFile_EmptyFileContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := ParseFile(path)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrFileEmpty))
}

func TestLoad_Directory(t *testing.T) {
	_, err := Load(t.TempDir(), nil)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidFilePath))
}

func TestLoad_Stdin(t *testing.T) {
	data, err := Load(StdinPath, strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	_, err = Load(StdinPath, strings.NewReader("  \n"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrEmptyInput))
}

func TestLoad_Compressed(t *testing.T) {
	const doc = `{"items":[{"sku":"A","qty":2}]}`

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	var zs bytes.Buffer
	zw, err := zstd.NewWriter(&zs)
	require.NoError(t, err)
	_, err = zw.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	dir := t.TempDir()
	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"plain", "doc.json", []byte(doc)},
		{"gzip", "doc.json.gz", gz.Bytes()},
		{"zstd", "doc.json.zst", zs.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, tt.data, 0o644))

			root, err := ParseFile(path)
			require.NoError(t, err)
			assert.Equal(t, doc, root.String())
		})
	}

	t.Run("gzip on stdin", func(t *testing.T) {
		data, err := Load(StdinPath, bytes.NewReader(gz.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, doc, string(data))
	})
}
