package quizgen

import "testing"

func TestNormalizeStripsFencedBlock(t *testing.T) {
	raw := "```json\n[{\"question_text\":\"A\"}]\n```"
	got := Normalize(raw)
	want := `[{"question_text":"A"}]`
	if got != want {
		t.Fatalf("Normalize(%q) = %q, want %q", raw, got, want)
	}
}

func TestNormalizeStripsUntaggedFence(t *testing.T) {
	raw := "```\n{\"a\":1}\n```"
	if got := Normalize(raw); got != `{"a":1}` {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeTakesFirstFenceOnly(t *testing.T) {
	raw := "Here you go:\n```json\n[1]\n```\nAnd another:\n```json\n[2]\n```"
	if got := Normalize(raw); got != "[1]" {
		t.Fatalf("got %q, want first fenced payload", got)
	}
}

func TestNormalizeIgnoresSurroundingChatter(t *testing.T) {
	raw := "Sure! Here is your quiz:\n```json\n[{\"x\":1}]\n```\nHope this helps."
	if got := Normalize(raw); got != `[{"x":1}]` {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeWithoutFenceTrimsOnly(t *testing.T) {
	raw := "  \n[{\"a\":1}]\t\n"
	if got := Normalize(raw); got != `[{"a":1}]` {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"```json\n[{\"q\":\"a\"}]\n```",
		"```\nplain\n```",
		"no fences at all",
		"  padded  ",
		"double ```json\n[1]\n``` trailing ```json\n[2]\n```",
		"",
		"``` unclosed fence",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}
