package colors

import (
	"errors"
	"testing"

	"github.com/menta2k/image-layout/pkg/geometry"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want geometry.CanvasColor
	}{
		{"transparent", geometry.Transparent},
		{"  Transparent ", geometry.Transparent},
		{"fff", geometry.SRGB(255, 255, 255, 255)},
		{"#f00", geometry.SRGB(255, 0, 0, 255)},
		{"#f008", geometry.SRGB(255, 0, 0, 0x88)},
		{"336699", geometry.SRGB(0x33, 0x66, 0x99, 255)},
		{"#33669980", geometry.SRGB(0x33, 0x66, 0x99, 0x80)},
		{"DEADBEEF", geometry.SRGB(0xde, 0xad, 0xbe, 0xef)},
		{"red", geometry.SRGB(255, 0, 0, 255)},
		{"CornflowerBlue", geometry.SRGB(100, 149, 237, 255)},
		{"white", geometry.SRGB(255, 255, 255, 255)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "#", "ff", "12345", "1234567", "#ggg", "notacolor", "#12345g78"} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidColor", in, err)
		}
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse should panic on invalid input")
		}
	}()
	MustParse("nope")
}
