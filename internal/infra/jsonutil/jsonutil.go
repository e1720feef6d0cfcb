// Package jsonutil is the JSON codec shared by the API client and tool output.
package jsonutil

import "github.com/bytedance/sonic"

var api = sonic.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
	UseInt64:    true,
	CopyString:  true,
}.Froze()

func Marshal(v any) ([]byte, error) { return api.Marshal(v) }

func Unmarshal(data []byte, v any) error { return api.Unmarshal(data, v) }

func MarshalString(v any) (string, error) { return api.MarshalToString(v) }

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Valid reports whether data is a well-formed JSON document.
func Valid(data []byte) bool { return api.Valid(data) }
