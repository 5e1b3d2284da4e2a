package sanitize

import "testing"

func TestStripHTML(t *testing.T) {
	cases := map[string]string{
		"plain":                                 "plain",
		"  <b>bold</b> text ":                   "bold text",
		"&lt;script&gt;alert(1)&lt;/script&gt;": "alert(1)",
	}
	for in, want := range cases {
		if got := StripHTML(in); got != want {
			t.Errorf("StripHTML(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTextPtrBlankBecomesNil(t *testing.T) {
	blank := "  <i></i> "
	if got := TextPtr(&blank); got != nil {
		t.Fatalf("expected nil, got %q", *got)
	}
	if TextPtr(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
}
