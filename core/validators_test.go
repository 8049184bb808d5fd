package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Slug  string `json:"slug" validate:"required,slug"`
	Title string `json:"title" validate:"notblank"`
	Email string `json:"email" validate:"omitempty,email"`
}

func TestValidator_Struct(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name       string
		s          sample
		wantFields map[string]string
	}{
		{name: "valid", s: sample{Slug: "japanese-n5", Title: "Japanese"}},
		{
			name:       "missing slug",
			s:          sample{Title: "Japanese"},
			wantFields: map[string]string{"slug": requiredText},
		},
		{
			name:       "bad slug, blank title",
			s:          sample{Slug: "Japanese--N5", Title: "  "},
			wantFields: map[string]string{"slug": slugText, "title": notBlankText},
		},
		{
			name:       "bad email",
			s:          sample{Slug: "a", Title: "A", Email: "nope"},
			wantFields: map[string]string{"email": "email must be a valid email address"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.s)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			verr, ok := err.(*ValidationError)
			require.True(t, ok, "got %T", err)
			got := make(map[string]string, len(verr.Fields))
			for _, f := range verr.Fields {
				got[f.Field] = f.Error
			}
			assert.Equal(t, tt.wantFields, got)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Aung", CleanString("  Aung \n"))
	assert.Equal(t, "aung@llpmm.test", CleanString(" Aung@LLPMM.test ", true))
}
