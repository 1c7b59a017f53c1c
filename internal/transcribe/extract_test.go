package transcribe

import "testing"

func TestExtractTextByPath(t *testing.T) {
	body := []byte(`{
		"text": "hello",
		"data": {"items": [{"value": "a"}, {"value": "b"}]},
		"results": [{"alternatives": [{"transcript": "ok"}]}]
	}`)

	if got := ExtractText(body, "data.items[1].value"); got != "b" {
		t.Fatalf("got %q, want b", got)
	}
	if got := ExtractText(body, "results[0].alternatives[0].transcript"); got != "ok" {
		t.Fatalf("got %q, want ok", got)
	}
	// Bad path falls back to the top-level text field.
	if got := ExtractText(body, "data.items[99].value"); got != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
	if got := ExtractText(body, ""); got != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
}

func TestExtractTextFallbacks(t *testing.T) {
	if got := ExtractText([]byte(`{"transcription": "fallback"}`), ""); got != "fallback" {
		t.Fatalf("got %q, want fallback", got)
	}
	if got := ExtractText([]byte(`not json`), "text"); got != "" {
		t.Fatalf("got %q for invalid JSON, want empty", got)
	}
	if got := ExtractText([]byte(`[1, 2, 3]`), ""); got != "" {
		t.Fatalf("got %q for array root, want empty", got)
	}
	// Numeric and bool scalars stringify.
	if got := ExtractText([]byte(`{"n": {"v": 42}}`), "n.v"); got != "42" {
		t.Fatalf("got %q, want 42", got)
	}
}

func TestSplitToken(t *testing.T) {
	key, idxs, err := splitToken("foo[0][1]")
	if err != nil {
		t.Fatalf("splitToken: %v", err)
	}
	if key != "foo" || len(idxs) != 2 || idxs[0] != 0 || idxs[1] != 1 {
		t.Fatalf("splitToken = %q %v", key, idxs)
	}
	if _, _, err := splitToken("foo[x]"); err == nil {
		t.Fatal("expected error for non-numeric index")
	}
	if _, _, err := splitToken("foo[1"); err == nil {
		t.Fatal("expected error for unclosed index")
	}
	if _, _, err := splitToken(""); err == nil {
		t.Fatal("expected error for empty token")
	}
}
