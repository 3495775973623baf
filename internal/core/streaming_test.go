package core

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n1,2")...),
			expected: "a,b\n1,2",
		},
		{
			name:     "file without BOM",
			input:    []byte("a,b\n1,2"),
			expected: "a,b\n1,2",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM kept",
			input:    []byte{0xEF, 0xBB, 'a'},
			expected: string([]byte{0xEF, 0xBB, 'a'}),
		},
		{
			name:     "shorter than BOM",
			input:    []byte("x"),
			expected: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewBOMSkippingReader(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestStreamingUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"valid ASCII", []byte("x;y"), "x;y"},
		{"valid multibyte", []byte("Größe,Preis"), "Größe,Preis"},
		{"invalid single byte replaced", []byte{'1', ',', 0x80, '5'}, "1,?5"},
		{"latin-1 byte replaced", []byte{'c', 'a', 'f', 0xE9}, "caf?"},
		{"empty input", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewStreamingUTF8Sanitizer(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestStreamingUTF8Sanitizer_SplitSequence(t *testing.T) {
	// One byte per Read forces every multi-byte rune across read boundaries.
	input := "Größe;€;ok"
	reader := NewStreamingUTF8Sanitizer(iotest.OneByteReader(strings.NewReader(input)))

	result, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != input {
		t.Errorf("got %q, want %q", string(result), input)
	}
}

func TestSizeLimitReader(t *testing.T) {
	input := strings.Repeat("x", 1000)

	t.Run("under limit", func(t *testing.T) {
		r := NewSizeLimitReader(strings.NewReader(input), 1000)
		if _, err := io.ReadAll(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.BytesRead != 1000 {
			t.Errorf("BytesRead = %d, want 1000", r.BytesRead)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		r := NewSizeLimitReader(strings.NewReader(input), 999)
		_, err := io.ReadAll(r)
		if err == nil || !strings.Contains(err.Error(), "file too large") {
			t.Fatalf("error = %v, want file too large", err)
		}
	})

	t.Run("no limit", func(t *testing.T) {
		r := NewSizeLimitReader(strings.NewReader(input), 0)
		if _, err := io.ReadAll(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestWrapSource(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte{'h', 'e', 0x80, 'l', 'o'}...)

	result, err := io.ReadAll(WrapSource(bytes.NewReader(input), 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != "he?lo" {
		t.Errorf("got %q, want %q", string(result), "he?lo")
	}
}
