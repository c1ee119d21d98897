package diagnostics

import (
	"context"
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/links"
	"github.com/CamdenClark/zett-languageservice/internal/slug"
	"github.com/CamdenClark/zett-languageservice/internal/toc"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

const diagnosticSource = "zett"

// StatFunc looks up file metadata. The manager substitutes a recording
// variant to learn which paths a validation touched.
type StatFunc func(ctx context.Context, uri protocol.DocumentUri) (workspace.FileStat, bool)

// Report is the outcome of validating one document.
type Report struct {
	Diagnostics []protocol.Diagnostic
}

// Computer validates a document's links. It holds no per-document state;
// every call recomputes from the current link set.
type Computer struct {
	ws        workspace.Workspace
	links     *links.Provider
	tocs      *toc.Provider
	slugifier slug.Slugifier
}

func NewComputer(ws workspace.Workspace, linkProvider *links.Provider, tocs *toc.Provider, slugifier slug.Slugifier) *Computer {
	return &Computer{ws: ws, links: linkProvider, tocs: tocs, slugifier: slugifier}
}

// Compute validates doc with the workspace's own stat.
func (c *Computer) Compute(ctx context.Context, doc document.Document, options Options) (Report, error) {
	return c.ComputeWithStat(ctx, doc, options, c.ws.Stat)
}

// ComputeWithStat validates doc, routing every existence check through
// stat.
func (c *Computer) ComputeWithStat(ctx context.Context, doc document.Document, options Options, stat StatFunc) (Report, error) {
	set, err := c.links.GetLinks(ctx, doc)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for _, link := range set.Links {
		switch link.Href.Kind {
		case links.HrefReference:
			c.checkReference(link, set.Definitions, options, &report)
		case links.HrefInternal:
			if err := c.checkInternal(ctx, doc, link, options, stat, &report); err != nil {
				return Report{}, err
			}
		}
	}
	return report, nil
}

func (c *Computer) checkReference(link links.Link, defs links.DefinitionSet, options Options, report *Report) {
	if !options.ValidateReferences.enabled() || link.Kind == links.KindDefinition {
		return
	}
	if _, ok := defs.Lookup(link.Href.Reference); ok {
		return
	}
	report.add(link.Source.HrefRange, options.ValidateReferences,
		fmt.Sprintf("no link definition found: %q", link.Href.Reference))
}

func (c *Computer) checkInternal(ctx context.Context, doc document.Document, link links.Link, options Options, stat StatFunc, report *Report) error {
	fragment := link.Href.Fragment
	if options.ignores(link.Source, fragment) {
		return nil
	}

	target := link.Href.Path
	isSelf := target == doc.URI()
	if !isSelf {
		st, exists := stat(ctx, target)
		if exists && st.IsDirectory {
			return nil
		}
		if !exists {
			if !document.IsMarkdown(target) {
				alt := document.WithMarkdownExtension(target)
				if altStat, ok := stat(ctx, alt); ok && !altStat.IsDirectory {
					target = alt
					exists = true
				}
			}
		}
		if !exists {
			if options.ValidateFileLinks.enabled() {
				report.add(link.Source.HrefRange, options.ValidateFileLinks,
					fmt.Sprintf("file does not exist at path: %s", link.Source.PathText))
			}
			return nil
		}
	}

	if fragment == "" || links.IsLineLocator(fragment) {
		return nil
	}
	if !isSelf && !document.IsMarkdown(target) {
		return nil
	}

	severity := options.ValidateFragmentLinks
	if !isSelf {
		severity = options.fileLinkFragmentSeverity()
	}
	if !severity.enabled() {
		return nil
	}

	contents, err := c.tocs.Get(ctx, target)
	if err != nil {
		return err
	}
	if _, ok := contents.Lookup(fragment, c.slugifier); ok {
		return nil
	}

	r := link.Source.HrefRange
	if link.Source.FragmentRange != nil {
		r = *link.Source.FragmentRange
	}
	report.add(r, severity, fmt.Sprintf("no heading found: %q", fragment))
	return nil
}

func (r *Report) add(where protocol.Range, severity Severity, message string) {
	sev := severity.protocol()
	src := diagnosticSource
	r.Diagnostics = append(r.Diagnostics, protocol.Diagnostic{
		Range:    where,
		Severity: &sev,
		Source:   &src,
		Message:  message,
	})
}
