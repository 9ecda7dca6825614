package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		category Category
		ext      string
	}{
		{"pdf document", "report.pdf", Document, "pdf"},
		{"word document", "notes.DOCX", Document, "docx"},
		{"markdown", "README.md", Document, "md"},
		{"jpeg image", "photo.JPG", Image, "jpg"},
		{"png image", "diagram.png", Image, "png"},
		{"video", "clip.mp4", Video, "mp4"},
		{"audio", "song.flac", Audio, "flac"},
		{"unknown extension", "archive.zip", Other, "zip"},
		{"no extension", "Makefile", Other, ""},
		{"trailing dot", "weird.", Other, ""},
		{"dotfile with extension", ".config.yaml", Other, "yaml"},
		{"multiple dots", "backup.tar.gz", Document, "gz"},
		{"empty name", "", Other, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, ext := Detect(tt.filename)
			assert.Equal(t, tt.category, category)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

// Every filename must land in exactly one of the five categories.
func TestDetectTotality(t *testing.T) {
	inputs := []string{
		"", ".", "..", "a", "a.b", "a.b.c", "no-dot", "UPPER.PDF",
		"spaces in name.mov", "trailing.dot.", "....", "\x00weird.bin",
	}

	for _, in := range inputs {
		category, _ := Detect(in)
		assert.True(t, Valid(string(category)), "input %q produced unknown category %q", in, category)
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", Extension("a.PDF"))
	assert.Equal(t, "", Extension("nodot"))
	assert.Equal(t, "", Extension("trailing."))
	assert.Equal(t, "gz", Extension("a.tar.gz"))
}
