package htmlsanitize_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/recipehub/internal/app/system/htmlsanitize"
)

func TestText_Empty(t *testing.T) {
	got, err := htmlsanitize.Text("   ")
	if err != nil || got != "" {
		t.Errorf("expected empty string, got %q, %v", got, err)
	}
}

func TestText_RoundTripsPlainText(t *testing.T) {
	tests := []string{
		"Preheat the oven.",
		"Pasta & pizza night",
		`"Mom's" <3 recipes`,
		"a < b and c > d",
		"Salt &amp; pepper",
		"Step one\r\nStep two",
		"Crème brûlée",
	}
	for _, in := range tests {
		got, err := htmlsanitize.Text(in)
		if err != nil {
			t.Errorf("Text(%q) error: %v", in, err)
			continue
		}
		if got != in {
			t.Errorf("Text(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestText_Trims(t *testing.T) {
	got, err := htmlsanitize.Text("  Stir well \n")
	if err != nil || got != "Stir well" {
		t.Errorf("Text = %q, %v", got, err)
	}
}

func TestText_RejectsMarkup(t *testing.T) {
	tests := []string{
		"<p>Hello</p>",
		"Fluffy <b>pancakes</b>",
		"<script>alert(1)</script>",
		`<a href="javascript:alert(1)">Click</a>`,
		`<img src=x onerror="alert(1)">`,
		"Hi <!-- hidden -->",
	}
	for _, in := range tests {
		if _, err := htmlsanitize.Text(in); !errors.Is(err, htmlsanitize.ErrMarkup) {
			t.Errorf("Text(%q) err = %v, want ErrMarkup", in, err)
		}
	}
}

func TestTexts(t *testing.T) {
	got, err := htmlsanitize.Texts([]string{"Chop onions", "  ", "Fry & serve"})
	if err != nil {
		t.Fatalf("Texts: %v", err)
	}
	if len(got) != 2 || got[0] != "Chop onions" || got[1] != "Fry & serve" {
		t.Errorf("unexpected result %q", got)
	}

	if _, err := htmlsanitize.Texts([]string{"Chop", "<script>x</script>"}); !errors.Is(err, htmlsanitize.ErrMarkup) {
		t.Errorf("expected ErrMarkup, got %v", err)
	}
}

func TestHasMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"Hello", false},
		{"<p>Hello</p>", true},
		{"a > b", false},
		{"5 <3", false},
	}
	for _, tt := range tests {
		if got := htmlsanitize.HasMarkup(tt.in); got != tt.want {
			t.Errorf("HasMarkup(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
