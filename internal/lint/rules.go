package lint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"prepkit/internal/catalog"
	"prepkit/internal/notes"
	"prepkit/internal/roadmap"
	"prepkit/internal/snippet"
)

// Rule checks one aspect of a corpus.
type Rule interface {
	ID() string
	Check(ctx context.Context, c *catalog.Corpus) []Finding
}

// RuleOptions parameterizes the built-in rule set.
type RuleOptions struct {
	// AllowedLangs are fence languages that lint accepts without a checker
	// (prose fences like text, diff, http).
	AllowedLangs []string
	// Readme is the preferred topic index path, "" for the default lookup.
	Readme string
}

// BuiltinRules assembles the default rule set.
func BuiltinRules(v *snippet.Validator, opts RuleOptions) []Rule {
	return []Rule{
		&snippetSyntaxRule{v: v},
		&snippetLanguageRule{v: v, allowed: toSet(opts.AllowedLangs)},
		&linkResolveRule{},
		&topicIndexRule{readme: opts.Readme},
		&roadmapOverlapRule{readme: opts.Readme},
		&headingStructureRule{},
	}
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[notes.NormalizeLang(s)] = true
	}
	return set
}

// snippetSyntaxRule runs every fenced block through its language checker.
type snippetSyntaxRule struct {
	v *snippet.Validator
}

func (r *snippetSyntaxRule) ID() string { return "snippet-syntax" }

func (r *snippetSyntaxRule) Check(ctx context.Context, c *catalog.Corpus) []Finding {
	var findings []Finding
	for _, n := range c.Notes {
		for _, sn := range n.Snippets {
			if sn.Lang == "" {
				continue
			}
			res, err := r.v.Validate(ctx, sn.Lang, sn.Content)
			if err != nil {
				findings = append(findings, Finding{
					Rule: r.ID(), Severity: SeverityError, Path: n.Path, Line: sn.Line,
					Message: fmt.Sprintf("%s snippet could not be checked", sn.Lang),
					Detail:  err.Error(),
				})
				continue
			}
			for _, issue := range res.Issues {
				findings = append(findings, Finding{
					Rule:     r.ID(),
					Severity: SeverityError,
					Path:     n.Path,
					// issue lines are relative to the snippet body, which
					// starts on the line after the fence.
					Line:    sn.Line + issue.Line,
					Message: fmt.Sprintf("%s snippet: %s", sn.Lang, issue.Message),
				})
			}
		}
	}
	return findings
}

// snippetLanguageRule flags missing and unknown fence language tags.
type snippetLanguageRule struct {
	v       *snippet.Validator
	allowed map[string]bool
}

func (r *snippetLanguageRule) ID() string { return "snippet-language" }

func (r *snippetLanguageRule) Check(_ context.Context, c *catalog.Corpus) []Finding {
	var findings []Finding
	for _, n := range c.Notes {
		for _, sn := range n.Snippets {
			switch {
			case sn.Lang == "":
				findings = append(findings, Finding{
					Rule: r.ID(), Severity: SeverityWarning, Path: n.Path, Line: sn.Line,
					Message: "fenced block has no language tag",
				})
			case !r.v.Supported(sn.Lang) && !r.allowed[sn.Lang]:
				findings = append(findings, Finding{
					Rule: r.ID(), Severity: SeverityInfo, Path: n.Path, Line: sn.Line,
					Message: fmt.Sprintf("no checker for language tag %q", sn.RawInfo),
				})
			}
		}
	}
	return findings
}

// linkResolveRule verifies that internal links land on existing files and
// anchors. Remote targets are left to the online checker.
type linkResolveRule struct{}

func (r *linkResolveRule) ID() string { return "link-resolve" }

func (r *linkResolveRule) Check(_ context.Context, c *catalog.Corpus) []Finding {
	var findings []Finding
	for _, n := range c.Notes {
		for _, l := range n.Links {
			switch l.Kind {
			case notes.KindAnchor:
				if _, ok := n.Anchors[l.Fragment]; !ok {
					findings = append(findings, Finding{
						Rule: r.ID(), Severity: SeverityError, Path: n.Path, Line: l.Line,
						Message: fmt.Sprintf("dead anchor %q", "#"+l.Fragment),
						Detail:  nearestAnchor(n.Anchors, l.Fragment),
					})
				}

			case notes.KindInternal:
				findings = append(findings, r.checkInternal(c, n, l)...)

			case notes.KindImage:
				if l.Remote() {
					continue
				}
				target := c.Resolve(n.Path, l.Target)
				if !fileExists(c.Root, target) {
					findings = append(findings, Finding{
						Rule: r.ID(), Severity: SeverityError, Path: n.Path, Line: l.Line,
						Message: fmt.Sprintf("image %q does not exist", l.Target),
					})
				}
			}
		}
	}
	return findings
}

func (r *linkResolveRule) checkInternal(c *catalog.Corpus, n *notes.Note, l notes.Link) []Finding {
	target := c.Resolve(n.Path, l.Target)

	if note, ok := c.Note(target); ok {
		if l.Fragment == "" {
			return nil
		}
		if _, ok := note.Anchors[l.Fragment]; ok {
			return nil
		}
		return []Finding{{
			Rule: r.ID(), Severity: SeverityError, Path: n.Path, Line: l.Line,
			Message: fmt.Sprintf("dead fragment %q", l.Target+"#"+l.Fragment),
			Detail:  nearestAnchor(note.Anchors, l.Fragment),
		}}
	}

	// Not a note: fall back to plain file existence for things like LICENSE
	// or linked assets.
	if fileExists(c.Root, target) {
		return nil
	}
	return []Finding{{
		Rule: r.ID(), Severity: SeverityError, Path: n.Path, Line: l.Line,
		Message: fmt.Sprintf("link target %q does not exist", l.Target),
	}}
}

func fileExists(root, rel string) bool {
	if root == "" || strings.HasPrefix(rel, "../") {
		return false
	}
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

// nearestAnchor suggests an existing anchor that differs only by case or
// hyphenation, the usual way these links rot.
func nearestAnchor(anchors map[string]int, fragment string) string {
	want := notes.Slugify(fragment)
	for a := range anchors {
		if a == want && a != fragment {
			return fmt.Sprintf("did you mean %q", "#"+a)
		}
	}
	return ""
}

// topicIndexRule compares the README "Available Topics" list against the
// corpus.
type topicIndexRule struct {
	readme string
}

func (r *topicIndexRule) ID() string { return "topic-index" }

func (r *topicIndexRule) Check(_ context.Context, c *catalog.Corpus) []Finding {
	readme, ok := c.Readme(r.readme)
	if !ok {
		return []Finding{{
			Rule: r.ID(), Severity: SeverityWarning, Path: readmePath(r.readme),
			Message: "no README found for the topic index",
		}}
	}

	rm := roadmap.Parse(readme)
	if !rm.HasIndex {
		return []Finding{{
			Rule: r.ID(), Severity: SeverityInfo, Path: readme.Path,
			Message: "README has no Available Topics section",
		}}
	}

	var findings []Finding
	diff := rm.DiffCorpus(c)
	for _, m := range diff.DeadEntries {
		msg := fmt.Sprintf("topic %q links to missing file %q", m.Entry.Title, m.Entry.Target)
		if m.Reason == "missing-fragment" {
			msg = fmt.Sprintf("topic %q links to dead fragment %q",
				m.Entry.Title, m.Entry.Target+"#"+m.Entry.Fragment)
		}
		findings = append(findings, Finding{
			Rule: r.ID(), Severity: SeverityError, Path: readme.Path, Line: m.Entry.Line,
			Message: msg,
		})
	}
	for _, m := range diff.TitleMismatches {
		msg := fmt.Sprintf("topic %q matches no H1/H2 in %q", m.Entry.Title, m.Entry.Target)
		if m.Reason == "no-note" {
			msg = fmt.Sprintf("topic %q matches no note in the corpus", m.Entry.Title)
		}
		findings = append(findings, Finding{
			Rule: r.ID(), Severity: SeverityError, Path: readme.Path, Line: m.Entry.Line,
			Message: msg, Detail: m.Want,
		})
	}
	for _, path := range diff.Unlisted {
		findings = append(findings, Finding{
			Rule: r.ID(), Severity: SeverityWarning, Path: readme.Path,
			Message: fmt.Sprintf("note %q is not listed under Available Topics", path),
		})
	}
	return findings
}

func readmePath(preferred string) string {
	if preferred != "" {
		return preferred
	}
	return "README.md"
}

// roadmapOverlapRule flags Coming Soon entries whose note already exists.
type roadmapOverlapRule struct {
	readme string
}

func (r *roadmapOverlapRule) ID() string { return "roadmap-overlap" }

func (r *roadmapOverlapRule) Check(_ context.Context, c *catalog.Corpus) []Finding {
	readme, ok := c.Readme(r.readme)
	if !ok {
		return nil
	}
	rm := roadmap.Parse(readme)
	if !rm.HasComing {
		return nil
	}

	var findings []Finding
	for _, e := range rm.DiffCorpus(c).Premature {
		findings = append(findings, Finding{
			Rule: r.ID(), Severity: SeverityWarning, Path: readme.Path, Line: e.Line,
			Message: fmt.Sprintf("Coming Soon entry %q already has a note, move it to Available Topics", e.Title),
		})
	}
	return findings
}

// headingStructureRule keeps note outlines shaped like documents: one H1,
// no skipped levels, no duplicate titles.
type headingStructureRule struct{}

func (r *headingStructureRule) ID() string { return "heading-structure" }

func (r *headingStructureRule) Check(_ context.Context, c *catalog.Corpus) []Finding {
	var findings []Finding
	for _, n := range c.Notes {
		if len(n.Sections) == 0 {
			continue
		}

		var h1s []notes.Section
		for _, sec := range n.Sections {
			if sec.Level == 1 {
				h1s = append(h1s, sec)
			}
		}
		switch {
		case len(h1s) == 0:
			findings = append(findings, Finding{
				Rule: r.ID(), Severity: SeverityWarning, Path: n.Path, Line: n.Sections[0].Line,
				Message: "no top-level heading",
			})
		case len(h1s) > 1:
			for _, sec := range h1s[1:] {
				findings = append(findings, Finding{
					Rule: r.ID(), Severity: SeverityWarning, Path: n.Path, Line: sec.Line,
					Message: fmt.Sprintf("multiple top-level headings, %q should be demoted", sec.Title),
				})
			}
		}

		prev := n.Sections[0].Level
		for _, sec := range n.Sections[1:] {
			if sec.Level > prev+1 {
				findings = append(findings, Finding{
					Rule: r.ID(), Severity: SeverityWarning, Path: n.Path, Line: sec.Line,
					Message: fmt.Sprintf("heading level jumps from H%d to H%d", prev, sec.Level),
				})
			}
			prev = sec.Level
		}

		seen := make(map[string]bool)
		for _, sec := range n.Sections {
			slug := notes.Slugify(sec.Title)
			if slug == "" {
				continue
			}
			if seen[slug] {
				findings = append(findings, Finding{
					Rule: r.ID(), Severity: SeverityInfo, Path: n.Path, Line: sec.Line,
					Message: fmt.Sprintf("duplicate heading %q, anchor suffixed to %q", sec.Title, sec.Anchor),
				})
			}
			seen[slug] = true
		}
	}
	return findings
}
