package htmlsanitize_test

import (
	"testing"

	"github.com/dalemusser/chorehub/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Take out the bins", "Take out the bins"},
		{"ampersand kept", "Pots & pans", "Pots & pans"},
		{"comparison kept", "3 < 5", "3 < 5"},
		{"tags stripped", "<b>Mop</b> the <i>floor</i>", "Mop the floor"},
		{"script removed", "Hi<script>alert('x')</script>", "Hi"},
		{"entity-encoded script removed", "&lt;script&gt;alert(1)&lt;/script&gt;ok", "ok"},
		{"markdown checklist untouched", "- [ ] sweep\n- [x] mop", "- [ ] sweep\n- [x] mop"},
		{"handler attribute dropped", `<a href="#" onclick="steal()">link</a>`, "link"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLine(t *testing.T) {
	if got := htmlsanitize.Line("  Clean\n the <b>garage</b>  "); got != "Clean the garage" {
		t.Errorf("got %q, want %q", got, "Clean the garage")
	}
}

func TestIsPlainText(t *testing.T) {
	if !htmlsanitize.IsPlainText("just words") {
		t.Error("plain words reported as markup")
	}
	if htmlsanitize.IsPlainText("<p>para</p>") {
		t.Error("paragraph reported as plain text")
	}
}
