package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"kim@example.com", true},
		{"first.last+tag@sub.example.co", true},
		{"Kim <kim@example.com>", false},
		{"kim", false},
		{"kim@localhost", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmail(tt.in))
			if tt.want {
				assert.NoError(t, ValidateEmail(tt.in))
			} else {
				assert.Error(t, ValidateEmail(tt.in))
			}
		})
	}
}

func TestValidateIdentity(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "email", in: "kim@example.com"},
		{name: "employee number", in: "E-1042"},
		{name: "empty", in: "", wantErr: true},
		{name: "blank", in: "   ", wantErr: true},
		{name: "padded", in: " kim ", wantErr: true},
		{name: "newline", in: "kim\nlee", wantErr: true},
		{name: "nul", in: "kim\x00", wantErr: true},
		{name: "too long", in: strings.Repeat("a", MaxIdentityLength+1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentity(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "line one\nline\ttwo", SanitizeString("line one\nline\ttwo\x00\x07"))
	assert.Equal(t, "휴가 신청", SanitizeString("휴가\x1b 신청"))
}
