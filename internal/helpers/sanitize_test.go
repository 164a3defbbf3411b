package helpers

import "testing"

func TestSanitizeHTMLStrict_RemovesTagsAndScripts(t *testing.T) {
	input := `<p>Hello <strong>world</strong><script>alert('x')</script></p>`
	got := SanitizeHTMLStrict(input)
	want := "Hello world"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPlainText_DecodesEntitiesAndCollapsesSpace(t *testing.T) {
	input := "<div>Migraine &amp; aura\n\n   <em>critères</em></div>"
	got := PlainText(input, 0)
	want := "Migraine & aura critères"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPlainText_Truncates(t *testing.T) {
	got := PlainText("éééééé", 3)
	if got != "ééé…" {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\": 1}\n```":            `{"a": 1}`,
		"Réponse: {\"q\": \"x}\"} merci":       `{"q": "x}"}`,
		"[1, [2, 3]] trailing":                 `[1, [2, 3]]`,
		"\uFEFF{\"nested\": {\"k\": [true]}}": `{"nested": {"k": [true]}}`,
	}
	for in, want := range cases {
		got, err := ExtractJSON(in)
		if err != nil {
			t.Fatalf("ExtractJSON(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ExtractJSON(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ExtractJSON("no json here"); err == nil {
		t.Fatalf("expected error for prose")
	}
}
