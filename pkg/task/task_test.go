package task

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Task
	}{
		{
			name:  "Plain Text",
			input: "  list the files\n    in /tmp  ",
			want:  Task{Files: []string{}, Text: "list the files\nin /tmp"},
		},
		{
			name:  "Header With Files",
			input: "File: a.txt\nfile: src/b.go\n---\n  Refactor\n  both files",
			want:  Task{Files: []string{"a.txt", "src/b.go"}, Text: "Refactor\nboth files"},
		},
		{
			name:  "Unknown Field Ignored",
			input: "Owner: me\n---\nrun",
			want:  Task{Files: []string{}, Text: "run"},
		},
		{
			name:  "Blank Lines Collapsed",
			input: "one\n\n   two",
			want:  Task{Files: []string{}, Text: "one\ntwo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestTask_Prompt(t *testing.T) {
	assert.Equal(t, "do it", Task{Text: "do it"}.Prompt())
	assert.Equal(t, "do it\n\nFiles: a, b", Task{Text: "do it", Files: []string{"a", "b"}}.Prompt())
}

func TestSanitize_SizeLimit(t *testing.T) {
	_, err := Sanitize(strings.Repeat("a", 11), 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	out, err := Sanitize(strings.Repeat("a", 10), 10)
	require.NoError(t, err)
	assert.Len(t, out, 10)
}

func TestSanitize_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "Hello World", "Hello World"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31mRed\x1b[0m", "[31mRed[0m"},
		{"Null Byte", "Null\x00Byte", "NullByte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.input, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSanitize_InvalidUTF8(t *testing.T) {
	_, err := Sanitize("bad\xff", 0)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
