package document

import (
	"runtime"
	"testing"
)

func TestFromPathToPathRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	uri := FromPath("/notes/dir/a.md")
	if uri != "file:///notes/dir/a.md" {
		t.Fatalf("FromPath = %q", uri)
	}
	p, err := ToPath(uri)
	if err != nil {
		t.Fatalf("ToPath: %v", err)
	}
	if p != "/notes/dir/a.md" {
		t.Fatalf("ToPath = %q", p)
	}
}

func TestToPathRejectsNonFile(t *testing.T) {
	if _, err := ToPath("https://example.com/a.md"); err == nil {
		t.Fatal("expected error for non-file uri")
	}
}

func TestSchemeAndUntitled(t *testing.T) {
	if got := Scheme("file:///a.md"); got != "file" {
		t.Errorf("Scheme = %q", got)
	}
	if !IsUntitled("untitled:Untitled-1") {
		t.Error("untitled uri not recognized")
	}
	if IsUntitled("file:///a.md") {
		t.Error("file uri reported untitled")
	}
}

func TestDir(t *testing.T) {
	if got := Dir("file:///notes/sub/a.md"); got != "file:///notes/sub" {
		t.Errorf("Dir = %q", got)
	}
}

func TestJoin(t *testing.T) {
	cases := []struct {
		base, rel, want string
	}{
		{"file:///notes/sub", "a.md", "file:///notes/sub/a.md"},
		{"file:///notes/sub", "../a.md", "file:///notes/a.md"},
		{"file:///notes/sub", "./deep/b.md", "file:///notes/sub/deep/b.md"},
	}
	for _, tc := range cases {
		got, err := Join(tc.base, tc.rel)
		if err != nil {
			t.Errorf("Join(%q, %q): %v", tc.base, tc.rel, err)
			continue
		}
		if string(got) != tc.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tc.base, tc.rel, got, tc.want)
		}
	}
}

func TestWithPath(t *testing.T) {
	got, err := WithPath("file:///notes/sub/a.md", "/other/b.md")
	if err != nil {
		t.Fatalf("WithPath: %v", err)
	}
	if string(got) != "file:///other/b.md" {
		t.Fatalf("WithPath = %q", got)
	}
}

func TestSplitFragment(t *testing.T) {
	cases := []struct {
		text, wantPath, wantFrag string
		wantHas                  bool
	}{
		{"doc.md#intro", "doc.md", "intro", true},
		{"doc.md#", "doc.md", "", true},
		{"#intro", "", "intro", true},
		{"doc.md", "doc.md", "", false},
	}
	for _, tc := range cases {
		p, f, has := SplitFragment(tc.text)
		if p != tc.wantPath || f != tc.wantFrag || has != tc.wantHas {
			t.Errorf("SplitFragment(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.text, p, f, has, tc.wantPath, tc.wantFrag, tc.wantHas)
		}
	}
}

func TestIsMarkdown(t *testing.T) {
	yes := []string{
		"file:///a.md",
		"file:///a.MD",
		"file:///a.markdown",
		"file:///a.mdx",
		"file:///a.mkd",
	}
	for _, uri := range yes {
		if !IsMarkdown(uri) {
			t.Errorf("IsMarkdown(%q) = false", uri)
		}
	}
	no := []string{"file:///a.txt", "file:///a", "file:///a.mdown"}
	for _, uri := range no {
		if IsMarkdown(uri) {
			t.Errorf("IsMarkdown(%q) = true", uri)
		}
	}
}

func TestWithMarkdownExtension(t *testing.T) {
	if got := WithMarkdownExtension("file:///notes/page"); got != "file:///notes/page.md" {
		t.Fatalf("WithMarkdownExtension = %q", got)
	}
}
