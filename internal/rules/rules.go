// Package rules compiles the name-matching rules and lookup tables that
// decide how a file is listed and sent.
//
// A Policy is immutable once built. Per-directory overrides never modify a
// Policy; Overlay returns a new one that lives for a single request.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/CageChen/spoofdir/internal/config"
)

// RuleSet is an ordered list of compiled rules. Match reports whether any
// rule matches, stopping at the first one that does.
type RuleSet struct {
	rules []config.Rule
	res   []*regexp.Regexp
}

// Compile compiles rules in order. Case-insensitive rules get the (?i) flag.
func Compile(rules []config.Rule) (*RuleSet, error) {
	rs := &RuleSet{
		rules: make([]config.Rule, 0, len(rules)),
		res:   make([]*regexp.Regexp, 0, len(rules)),
	}
	for _, r := range rules {
		expr := r.Pattern
		if !r.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", r.Pattern, err)
		}
		rs.rules = append(rs.rules, r)
		rs.res = append(rs.res, re)
	}
	return rs, nil
}

// Match reports whether name matches any rule.
func (rs *RuleSet) Match(name string) bool {
	if rs == nil {
		return false
	}
	for _, re := range rs.res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Rules returns the source rules in evaluation order.
func (rs *RuleSet) Rules() []config.Rule {
	if rs == nil {
		return nil
	}
	out := make([]config.Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// prepend returns a new RuleSet evaluating front before rs.
func (rs *RuleSet) prepend(front *RuleSet) *RuleSet {
	if front.Len() == 0 {
		return rs
	}
	out := &RuleSet{
		rules: make([]config.Rule, 0, front.Len()+rs.Len()),
		res:   make([]*regexp.Regexp, 0, front.Len()+rs.Len()),
	}
	out.rules = append(append(out.rules, front.rules...), rs.rules...)
	out.res = append(append(out.res, front.res...), rs.res...)
	return out
}

// Policy answers every table and rule lookup made while serving a request.
type Policy struct {
	Title            string
	Annotation       string
	AnnotationFormat string

	defaultMime        string
	mimeTypes          map[string]string
	defaultDisposition string
	dispositions       map[string]string
	cacheable          map[string]bool

	ignore  *RuleSet
	index   *RuleSet
	dynamic *RuleSet
}

// New builds the base policy from the global configuration.
func New(cfg *config.Config) (*Policy, error) {
	ignore, err := Compile(cfg.Ignore)
	if err != nil {
		return nil, fmt.Errorf("ignore: %w", err)
	}
	index, err := Compile(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	dynamic, err := Compile(cfg.Dynamic)
	if err != nil {
		return nil, fmt.Errorf("dynamic: %w", err)
	}

	p := &Policy{
		Title:              cfg.Title,
		Annotation:         cfg.Annotation,
		AnnotationFormat:   cfg.AnnotationFormat,
		defaultMime:        cfg.DefaultMimeType,
		mimeTypes:          config.CanonicalExtensions(cfg.MimeTypes),
		defaultDisposition: cfg.DefaultDisposition,
		dispositions:       copyMap(cfg.Dispositions),
		cacheable:          copyMap(cfg.Cacheable),
		ignore:             ignore,
		index:              index,
		dynamic:            dynamic,
	}
	if p.defaultMime == "" {
		p.defaultMime = "application/octet-stream"
	}
	if p.defaultDisposition == "" {
		p.defaultDisposition = config.DispositionAttachment
	}
	if p.AnnotationFormat == "" {
		p.AnnotationFormat = config.FormatHTML
	}
	return p, nil
}

// Overlay returns a new Policy with the per-directory overrides applied.
// The receiver is left untouched.
func (p *Policy) Overlay(o *config.Overlay) (*Policy, error) {
	if o == nil {
		return p, nil
	}
	ignore, err := Compile(o.Ignore)
	if err != nil {
		return nil, fmt.Errorf("ignore: %w", err)
	}
	index, err := Compile(o.Index)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	out := *p
	if o.Title != "" {
		out.Title = o.Title
	}
	if o.Annotation != "" {
		out.Annotation = o.Annotation
		out.AnnotationFormat = config.FormatHTML
		if o.AnnotationFormat != "" {
			out.AnnotationFormat = o.AnnotationFormat
		}
	}
	out.mimeTypes = mergeMap(p.mimeTypes, config.CanonicalExtensions(o.MimeTypes))
	out.dispositions = mergeMap(p.dispositions, o.Dispositions)
	out.cacheable = mergeMap(p.cacheable, o.Cacheable)
	out.ignore = p.ignore.prepend(ignore)
	out.index = p.index.prepend(index)
	return &out, nil
}

// MimeType returns the MIME type for a file name, derived from the text
// after its last ".", lower-cased. ok is false when the default was used.
func (p *Policy) MimeType(name string) (mime string, ok bool) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		if mime, ok = p.mimeTypes[strings.ToLower(name[i+1:])]; ok && mime != "" {
			return mime, true
		}
	}
	return p.defaultMime, false
}

// Disposition returns "inline" or "attachment" for a MIME type.
func (p *Policy) Disposition(mime string) string {
	if d, ok := p.dispositions[mime]; ok && d != "" {
		return d
	}
	return p.defaultDisposition
}

// Cacheable reports whether clients may cache files of a MIME type.
func (p *Policy) Cacheable(mime string) bool {
	return p.cacheable[mime]
}

// Ignored reports whether a name is hidden from listings.
func (p *Policy) Ignored(name string) bool {
	return p.ignore.Match(name)
}

// IsIndex reports whether a name is served in place of a listing.
func (p *Policy) IsIndex(name string) bool {
	return p.index.Match(name)
}

// IsDynamic reports whether a name is handed to the script runner.
func (p *Policy) IsDynamic(name string) bool {
	return p.dynamic.Match(name)
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeMap[K comparable, V any](base, over map[K]V) map[K]V {
	if len(over) == 0 {
		return base
	}
	out := copyMap(base)
	for k, v := range over {
		out[k] = v
	}
	return out
}
