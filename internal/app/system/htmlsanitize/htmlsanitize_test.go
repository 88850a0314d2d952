package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/fundhub/internal/app/system/htmlsanitize"
)

func TestPlainText_Empty(t *testing.T) {
	if got := htmlsanitize.PlainText(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPlainText_Unchanged(t *testing.T) {
	in := "Help Ana walk again"
	if got := htmlsanitize.PlainText(in); got != in {
		t.Errorf("expected plain text unchanged, got %q", got)
	}
}

func TestPlainText_Trims(t *testing.T) {
	if got := htmlsanitize.PlainText("  Memorial  "); got != "Memorial" {
		t.Errorf("got %q", got)
	}
}

func TestPlainText_StripsTags(t *testing.T) {
	got := htmlsanitize.PlainText("<b>Urgent</b> surgery")
	if got != "Urgent surgery" {
		t.Errorf("got %q", got)
	}
}

func TestPlainText_DropsScriptContent(t *testing.T) {
	got := htmlsanitize.PlainText("Hello<script>alert('xss')</script>")
	if strings.Contains(got, "alert") || strings.Contains(got, "<") {
		t.Errorf("expected script removed, got %q", got)
	}
}

func TestPlainText_RemovesOnclick(t *testing.T) {
	got := htmlsanitize.PlainText(`<button onclick="alert('xss')">Donate</button>`)
	if got != "Donate" {
		t.Errorf("got %q", got)
	}
}

func TestPlainText_KeepsAmpersand(t *testing.T) {
	got := htmlsanitize.PlainText("Food & shelter <i>now</i>")
	if got != "Food & shelter now" {
		t.Errorf("got %q", got)
	}
}
