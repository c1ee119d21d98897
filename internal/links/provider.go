package links

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/cache"
	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/slug"
	"github.com/CamdenClark/zett-languageservice/internal/toc"
	"github.com/CamdenClark/zett-languageservice/internal/tokenizer"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

// Commands synthesized into document link targets when a plain URI cannot
// express the destination.
const (
	CommandOpen         = "zett.open"
	CommandRevealFolder = "zett.revealFolder"
)

// lineLocator matches fragments of the form L<line>[,<col>], 1-based.
var lineLocator = regexp.MustCompile(`(?i)^L(\d+)(?:,(\d+))?$`)

// IsLineLocator reports whether a fragment addresses a line directly
// instead of naming a heading.
func IsLineLocator(fragment string) bool {
	return lineLocator.MatchString(fragment)
}

// LinkSet is a document's links together with its definition set.
type LinkSet struct {
	Links       []Link
	Definitions DefinitionSet
}

// TargetKind classifies a resolved link target.
type TargetKind string

const (
	TargetFile     TargetKind = "file"
	TargetFolder   TargetKind = "folder"
	TargetExternal TargetKind = "external"
)

// ResolvedTarget is the outcome of resolving a link string.
type ResolvedTarget struct {
	Kind     TargetKind
	URI      protocol.DocumentUri
	Position *protocol.Position
	Fragment string
}

// resolveData is attached to deferred document links so they can be
// resolved later without re-parsing.
type resolveData struct {
	Path     string `json:"path"`
	Fragment string `json:"fragment"`
	Source   string `json:"source"`
}

// Provider caches link computation per document and resolves link targets.
type Provider struct {
	ws        workspace.Workspace
	tocs      *toc.Provider
	slugifier slug.Slugifier
	cache     *cache.DocCache[LinkSet]
}

func NewProvider(tok tokenizer.Tokenizer, ws workspace.Workspace, tocs *toc.Provider, slugifier slug.Slugifier) *Provider {
	computer := NewComputer(tok, ws)
	p := &Provider{ws: ws, tocs: tocs, slugifier: slugifier}
	p.cache = cache.NewDocCache(ws, func(ctx context.Context, doc document.Document) (LinkSet, error) {
		all, err := computer.GetAllLinks(ctx, doc)
		if err != nil {
			return LinkSet{}, err
		}
		return LinkSet{Links: all, Definitions: NewDefinitionSet(all)}, nil
	})
	return p
}

// GetLinks returns the cached link set for an already loaded document.
func (p *Provider) GetLinks(ctx context.Context, doc document.Document) (LinkSet, error) {
	return p.cache.GetForDocument(ctx, doc)
}

// GetLinksForURI loads the document through the workspace if needed. ok is
// false when it does not exist.
func (p *Provider) GetLinksForURI(ctx context.Context, uri protocol.DocumentUri) (LinkSet, bool, error) {
	return p.cache.Get(ctx, uri)
}

// Dispose releases the underlying cache subscriptions.
func (p *Provider) Dispose() {
	p.cache.Dispose()
}

// ProvideDocumentLinks maps a document's links to protocol records.
// External hrefs resolve immediately; internal hrefs are deferred and carry
// resolution data; reference links resolve to their definition and are
// dropped when no definition matches.
func (p *Provider) ProvideDocumentLinks(ctx context.Context, doc document.Document) ([]protocol.DocumentLink, error) {
	set, err := p.GetLinks(ctx, doc)
	if err != nil {
		return nil, err
	}

	var out []protocol.DocumentLink
	for _, link := range set.Links {
		switch link.Href.Kind {
		case HrefExternal:
			target := protocol.URI(link.Href.External.String())
			out = append(out, protocol.DocumentLink{
				Range:  link.Source.HrefRange,
				Target: &target,
			})
		case HrefInternal:
			tooltip := "Follow link"
			out = append(out, protocol.DocumentLink{
				Range:   link.Source.HrefRange,
				Tooltip: &tooltip,
				Data: resolveData{
					Path:     string(link.Href.Path),
					Fragment: link.Href.Fragment,
					Source:   string(doc.URI()),
				},
			})
		case HrefReference:
			def, ok := set.Definitions.Lookup(link.Href.Reference)
			if !ok {
				continue
			}
			target := protocol.URI(locationTarget(doc.URI(), def.Source.HrefRange.Start))
			tooltip := "Go to link definition"
			out = append(out, protocol.DocumentLink{
				Range:   link.Source.HrefRange,
				Target:  &target,
				Tooltip: &tooltip,
			})
		}
	}
	return out, nil
}

// ResolveDocumentLink fills in the target of a previously emitted deferred
// link. Returns nil when the link carries no resolution data.
func (p *Provider) ResolveDocumentLink(ctx context.Context, link protocol.DocumentLink) (*protocol.DocumentLink, error) {
	data, ok := decodeResolveData(link.Data)
	if !ok {
		return nil, nil
	}

	res, err := p.ResolveInternalTarget(ctx, protocol.DocumentUri(data.Path), data.Fragment, protocol.DocumentUri(data.Source))
	if err != nil || res == nil {
		return nil, err
	}

	var target protocol.URI
	switch res.Kind {
	case TargetFolder:
		target = commandURI(CommandRevealFolder, string(res.URI))
	case TargetFile:
		switch {
		case res.Position == nil:
			target = protocol.URI(res.URI)
		case !strings.Contains(string(res.URI), "#"):
			target = protocol.URI(locationTarget(res.URI, *res.Position))
		default:
			// The target URI itself carries a '#'; fragment syntax would be
			// ambiguous, so route through a command instead.
			target = commandURI(CommandOpen, string(res.URI), res.Position)
		}
	default:
		target = protocol.URI(res.URI)
	}

	resolved := link
	resolved.Target = &target
	return &resolved, nil
}

// ResolveLinkTarget resolves an arbitrary link string against a source
// document, independent of any previously computed link.
func (p *Provider) ResolveLinkTarget(ctx context.Context, linkText string, from protocol.DocumentUri) (*ResolvedTarget, error) {
	href, ok := hrefResolver{ws: p.ws}.create(from, linkText)
	if !ok {
		return nil, nil
	}
	switch href.Kind {
	case HrefExternal:
		return &ResolvedTarget{Kind: TargetExternal, URI: protocol.DocumentUri(href.External.String())}, nil
	case HrefInternal:
		return p.ResolveInternalTarget(ctx, href.Path, href.Fragment, from)
	default:
		return nil, nil
	}
}

// ResolveInternalTarget implements the internal-target resolution
// algorithm: directory check, markdown extension probing, line locator
// fragments, then heading lookup through the target's table of contents.
func (p *Provider) ResolveInternalTarget(ctx context.Context, path protocol.DocumentUri, fragment string, source protocol.DocumentUri) (*ResolvedTarget, error) {
	target := path

	// A document inside a containing context cannot point at standalone
	// workspace files, so skip filesystem probing entirely.
	if _, embedded := p.ws.GetContainingDocument(source); !embedded {
		stat, exists := p.ws.Stat(ctx, target)
		if exists && stat.IsDirectory {
			return &ResolvedTarget{Kind: TargetFolder, URI: target}, nil
		}
		if !exists && !document.IsMarkdown(target) {
			alt := document.WithMarkdownExtension(target)
			if altStat, ok := p.ws.Stat(ctx, alt); ok && !altStat.IsDirectory {
				target = alt
			}
		}
	}

	if fragment == "" {
		return &ResolvedTarget{Kind: TargetFile, URI: target}, nil
	}

	if m := lineLocator.FindStringSubmatch(fragment); m != nil {
		line, _ := strconv.Atoi(m[1])
		col := 1
		if m[2] != "" {
			col, _ = strconv.Atoi(m[2])
		}
		pos := protocol.Position{
			Line:      protocol.UInteger(max(line-1, 0)),
			Character: protocol.UInteger(max(col-1, 0)),
		}
		return &ResolvedTarget{Kind: TargetFile, URI: target, Position: &pos, Fragment: fragment}, nil
	}

	contents, err := p.tocs.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	if entry, ok := contents.Lookup(fragment, p.slugifier); ok {
		pos := entry.HeaderRange.Start
		return &ResolvedTarget{Kind: TargetFile, URI: target, Position: &pos, Fragment: fragment}, nil
	}
	return &ResolvedTarget{Kind: TargetFile, URI: target}, nil
}

// locationTarget encodes a position into a URI fragment using the 1-based
// L<line>,<col> locator form.
func locationTarget(uri protocol.DocumentUri, pos protocol.Position) string {
	return fmt.Sprintf("%s#L%d,%d", uri, pos.Line+1, pos.Character+1)
}

// commandURI builds a command: URI with JSON-encoded arguments.
func commandURI(command string, args ...any) protocol.URI {
	encoded, err := json.Marshal(args)
	if err != nil {
		return protocol.URI("command:" + command)
	}
	return protocol.URI("command:" + command + "?" + url.QueryEscape(string(encoded)))
}

func decodeResolveData(raw any) (resolveData, bool) {
	switch data := raw.(type) {
	case resolveData:
		return data, true
	case nil:
		return resolveData{}, false
	default:
		// Data that round-tripped through JSON arrives as a generic map.
		encoded, err := json.Marshal(raw)
		if err != nil {
			return resolveData{}, false
		}
		var decoded resolveData
		if err := json.Unmarshal(encoded, &decoded); err != nil || decoded.Path == "" {
			return resolveData{}, false
		}
		return decoded, true
	}
}
