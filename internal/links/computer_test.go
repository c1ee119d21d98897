package links

import (
	"context"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/tokenizer"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

func newTestComputer() (*Computer, *workspace.InMemory) {
	ws := workspace.NewInMemory("file:///notes")
	return NewComputer(tokenizer.NewMarkdown(), ws), ws
}

func computeLinks(t *testing.T, content string) ([]Link, *document.InMemory) {
	t.Helper()
	c, _ := newTestComputer()
	doc := document.New("file:///notes/a.md", 1, content)
	all, err := c.GetAllLinks(context.Background(), doc)
	if err != nil {
		t.Fatalf("GetAllLinks: %v", err)
	}
	return all, doc
}

// rangeText extracts the document text a range covers.
func rangeText(doc *document.InMemory, r protocol.Range) string {
	return doc.Content()[doc.OffsetAt(r.Start):doc.OffsetAt(r.End)]
}

func TestGetAllLinksEmptyDocument(t *testing.T) {
	all, _ := computeLinks(t, "")
	if len(all) != 0 {
		t.Fatalf("expected no links, got %d", len(all))
	}
}

func TestInlineLink(t *testing.T) {
	all, doc := computeLinks(t, "see [other](other.md) here\n")
	if len(all) != 1 {
		t.Fatalf("expected 1 link, got %d", len(all))
	}
	link := all[0]
	if link.Kind != KindLink || link.Href.Kind != HrefInternal {
		t.Fatalf("unexpected kinds: %v %v", link.Kind, link.Href.Kind)
	}
	if got := rangeText(doc, link.Source.HrefRange); got != "other.md" {
		t.Errorf("href range covers %q", got)
	}
	if got := rangeText(doc, link.Source.Range); got != "[other](other.md)" {
		t.Errorf("full range covers %q", got)
	}
	if link.Source.PathText != "other.md" {
		t.Errorf("path text %q", link.Source.PathText)
	}
	if link.Href.Path != "file:///notes/other.md" {
		t.Errorf("resolved path %q", link.Href.Path)
	}
}

func TestInlineLinkWithFragment(t *testing.T) {
	all, doc := computeLinks(t, "[s](doc.md#setup)\n")
	if len(all) != 1 {
		t.Fatalf("expected 1 link, got %d", len(all))
	}
	link := all[0]
	if link.Href.Fragment != "setup" {
		t.Errorf("fragment %q", link.Href.Fragment)
	}
	if link.Source.PathText != "doc.md" {
		t.Errorf("path text %q", link.Source.PathText)
	}
	if link.Source.FragmentRange == nil {
		t.Fatal("missing fragment range")
	}
	if got := rangeText(doc, *link.Source.FragmentRange); got != "setup" {
		t.Errorf("fragment range covers %q", got)
	}
}

func TestExternalAndAutolinks(t *testing.T) {
	all, _ := computeLinks(t, "[x](https://example.com/a)\n\nvisit <https://example.com/b> not <user@host.com>\n")
	if len(all) != 2 {
		t.Fatalf("expected 2 links, got %d", len(all))
	}
	for _, link := range all {
		if link.Href.Kind != HrefExternal {
			t.Errorf("link %q not external", link.Source.HrefText)
		}
	}
	if all[1].Source.HrefText != "https://example.com/b" {
		t.Errorf("autolink href %q", all[1].Source.HrefText)
	}
}

func TestReferenceLinkForms(t *testing.T) {
	content := "[text][ref]\n\n[collapsed][]\n\n[shorthand]\n\n[ref]: target.md\n"
	all, doc := computeLinks(t, content)

	var refs []Link
	var defs []Link
	for _, l := range all {
		switch {
		case l.Kind == KindDefinition:
			defs = append(defs, l)
		case l.Href.Kind == HrefReference:
			refs = append(refs, l)
		}
	}
	if len(refs) != 3 {
		t.Fatalf("expected 3 reference links, got %d", len(refs))
	}
	if refs[0].Href.Reference != "ref" || rangeText(doc, refs[0].Source.HrefRange) != "ref" {
		t.Errorf("full form: ref %q range %q", refs[0].Href.Reference, rangeText(doc, refs[0].Source.HrefRange))
	}
	if refs[1].Href.Reference != "collapsed" {
		t.Errorf("collapsed form: ref %q", refs[1].Href.Reference)
	}
	if refs[2].Href.Reference != "shorthand" {
		t.Errorf("shorthand form: ref %q", refs[2].Href.Reference)
	}

	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	if defs[0].RefName != "ref" || defs[0].Href.Path != "file:///notes/target.md" {
		t.Errorf("definition: name %q path %q", defs[0].RefName, defs[0].Href.Path)
	}

	set := NewDefinitionSet(all)
	if def, ok := set.Lookup("ref"); !ok || def.Href.Path != "file:///notes/target.md" {
		t.Errorf("definition lookup failed: %v %v", def, ok)
	}
}

func TestCheckboxIsNotReference(t *testing.T) {
	all, _ := computeLinks(t, "- [x] done\n- [ ] open\n- [X] also\n")
	if len(all) != 0 {
		t.Fatalf("expected no links, got %d: %v", len(all), all)
	}
	// Outside a list marker the same label is a real shorthand reference.
	all, _ = computeLinks(t, "see [x] for details\n")
	if len(all) != 1 || all[0].Href.Reference != "x" {
		t.Fatalf("expected shorthand reference, got %v", all)
	}
}

func TestNoLinksInCode(t *testing.T) {
	content := "a `[inline](code.md)` span\n\n```\n[fenced](fence.md)\n```\n\n    [indented](indent.md)\n"
	all, _ := computeLinks(t, content)
	if len(all) != 0 {
		t.Fatalf("expected no links in code, got %d: %v", len(all), all)
	}
}

func TestNestedLinkInLabel(t *testing.T) {
	all, _ := computeLinks(t, "[![alt](img.png)](page.md)\n")
	if len(all) != 2 {
		t.Fatalf("expected 2 links, got %d", len(all))
	}
	if all[0].Href.Path != "file:///notes/page.md" {
		t.Errorf("outer path %q", all[0].Href.Path)
	}
	if all[1].Href.Path != "file:///notes/img.png" {
		t.Errorf("nested path %q", all[1].Href.Path)
	}
}

func TestConsumedInlineLinkBlocksReferenceScan(t *testing.T) {
	all, _ := computeLinks(t, "[text](real.md)\n")
	for _, l := range all {
		if l.Href.Kind == HrefReference {
			t.Fatalf("label of a consumed inline link re-matched as reference: %v", l)
		}
	}
}

func TestAngleBracketDestination(t *testing.T) {
	all, _ := computeLinks(t, "[a](<with space.md>)\n")
	if len(all) != 1 {
		t.Fatalf("expected 1 link, got %d", len(all))
	}
	if all[0].Source.HrefText != "with space.md" {
		t.Errorf("href text %q", all[0].Source.HrefText)
	}
}

func TestDestinationWithTitle(t *testing.T) {
	all, doc := computeLinks(t, `[a](doc.md "the title")`+"\n")
	if len(all) != 1 {
		t.Fatalf("expected 1 link, got %d", len(all))
	}
	if got := rangeText(doc, all[0].Source.HrefRange); got != "doc.md" {
		t.Errorf("href range covers %q", got)
	}
}

func TestRootRelativePath(t *testing.T) {
	all, _ := computeLinks(t, "[a](/sub/deep.md)\n")
	if len(all) != 1 {
		t.Fatalf("expected 1 link, got %d", len(all))
	}
	if all[0].Href.Path != "file:///notes/sub/deep.md" {
		t.Errorf("resolved path %q", all[0].Href.Path)
	}
}

func TestBareFragmentTargetsSelf(t *testing.T) {
	all, _ := computeLinks(t, "[a](#intro)\n")
	if len(all) != 1 {
		t.Fatalf("expected 1 link, got %d", len(all))
	}
	if all[0].Href.Path != "file:///notes/a.md" || all[0].Href.Fragment != "intro" {
		t.Errorf("path %q fragment %q", all[0].Href.Path, all[0].Href.Fragment)
	}
}

func TestDefinitionAngleTarget(t *testing.T) {
	all, doc := computeLinks(t, "[ref]: <spaced name.md>\n")
	if len(all) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(all))
	}
	if all[0].Kind != KindDefinition {
		t.Fatalf("kind %v", all[0].Kind)
	}
	if got := rangeText(doc, all[0].Source.HrefRange); got != "spaced name.md" {
		t.Errorf("href range covers %q", got)
	}
}

func TestCancelledContextYieldsEmpty(t *testing.T) {
	c, _ := newTestComputer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := document.New("file:///notes/a.md", 1, "[a](b.md)\n")
	all, err := c.GetAllLinks(ctx, doc)
	if err != nil {
		t.Fatalf("GetAllLinks: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty result on cancellation, got %d", len(all))
	}
}

func TestGetAllLinksIsDeterministic(t *testing.T) {
	c, _ := newTestComputer()
	doc := document.New("file:///notes/a.md", 1, "[a](b.md) and [c][d]\n\n[d]: e.md\n")
	first, err := c.GetAllLinks(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.GetAllLinks(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Source.HrefText != second[i].Source.HrefText {
			t.Errorf("link %d differs: %q vs %q", i, first[i].Source.HrefText, second[i].Source.HrefText)
		}
	}
}
