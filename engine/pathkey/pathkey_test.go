package pathkey

import "testing"

func TestScopePrefixes(t *testing.T) {
	s := Scope{WorkspaceID: "w1", ProductID: "p1", Version: 3}
	cases := map[string]string{
		"raw":       s.RawPrefix(),
		"clean":     s.CleanPrefix(),
		"chunk":     s.ChunkPrefix(),
		"embed":     s.EmbedPrefix(),
		"artifacts": s.ArtifactsPrefix(),
	}
	want := map[string]string{
		"raw":       "ws/w1/prod/p1/v/3/raw/",
		"clean":     "ws/w1/prod/p1/v/3/clean/",
		"chunk":     "ws/w1/prod/p1/v/3/chunk/",
		"embed":     "ws/w1/prod/p1/v/3/embed/",
		"artifacts": "ws/w1/prod/p1/v/3/artifacts/",
	}
	for k, got := range cases {
		if got != want[k] {
			t.Errorf("%s: got %q want %q", k, got, want[k])
		}
	}
}

func TestMetricsJSONKeyIsSingular(t *testing.T) {
	s := Scope{WorkspaceID: "w1", ProductID: "p1", Version: 1}
	if got := s.MetricsJSONKey(); got != "ws/w1/prod/p1/v/1/clean/metrics.json" {
		t.Fatalf("got %q", got)
	}
}

func TestSafeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":        "report.pdf",
		"my file!!name.txt": "my_file_name.txt",
		"___leading":        "leading",
		"trailing___":       "trailing",
		"":                  "unnamed_file",
		"####":              "unnamed_file",
		"a/b\\c":            "a_b_c",
	}
	for in, want := range cases {
		if got := SafeFilename(in); got != want {
			t.Errorf("SafeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSafeFilenameIdempotent(t *testing.T) {
	inputs := []string{"My Report (final).pdf", "weird$$$name", "a"}
	for _, in := range inputs {
		once := SafeFilename(in)
		twice := SafeFilename(once)
		if once != twice {
			t.Errorf("SafeFilename not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}
