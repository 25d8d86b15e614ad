package core

import (
	"errors"
	"testing"
)

func TestValidateChunkParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr error
	}{
		{
			name:    "valid parameters",
			size:    500,
			overlap: 50,
			wantErr: nil,
		},
		{
			name:    "zero overlap",
			size:    100,
			overlap: 0,
			wantErr: nil,
		},
		{
			name:    "size of one",
			size:    1,
			overlap: 0,
			wantErr: nil,
		},
		{
			name:    "overlap equals size",
			size:    100,
			overlap: 100,
			wantErr: ErrInvalidChunkParams,
		},
		{
			name:    "overlap exceeds size",
			size:    100,
			overlap: 150,
			wantErr: ErrInvalidChunkParams,
		},
		{
			name:    "negative overlap",
			size:    100,
			overlap: -1,
			wantErr: ErrInvalidChunkParams,
		},
		{
			name:    "zero size",
			size:    0,
			overlap: 0,
			wantErr: ErrInvalidChunkParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunkParams(tt.size, tt.overlap)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunkParams() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr error
	}{
		{name: "valid query", query: "what is the capital", wantErr: nil},
		{name: "empty query", query: "", wantErr: ErrEmptyQuery},
		{name: "whitespace only", query: "   \t\n", wantErr: ErrEmptyQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateQuery() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{Filename: "report.txt", RawContent: "contents"},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrEmptyDocument,
		},
		{
			name:    "missing filename",
			doc:     &Document{RawContent: "contents"},
			wantErr: ErrEmptyFilename,
		},
		{
			name:    "missing content",
			doc:     &Document{Filename: "report.txt"},
			wantErr: ErrEmptyDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateVector(t *testing.T) {
	tests := []struct {
		name      string
		vector    []float32
		dimension int
		wantErr   error
	}{
		{name: "matching dimension", vector: []float32{1, 2, 3}, dimension: 3, wantErr: nil},
		{name: "unchecked when dimension unset", vector: []float32{1, 2}, dimension: 0, wantErr: nil},
		{name: "too short", vector: []float32{1, 2}, dimension: 3, wantErr: ErrDimensionMismatch},
		{name: "too long", vector: []float32{1, 2, 3, 4}, dimension: 3, wantErr: ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVector(tt.vector, tt.dimension)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateVector() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
