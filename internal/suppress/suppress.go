// Package suppress filters detected cycles against a list of known-benign
// findings.
//
// A suppression file is yaml:
//
//	suppressions:
//	  - reason: init-order false positive
//	    locks: ["0/1", "1/0"]
//	    sites: ["util/alloc.c:120"]
//
// A rule matches a cycle when its lock set equals the cycle's lock set
// exactly, and every listed site appears in the cycle's provenance.
// Either field may be omitted, but not both. File names are compared
// after NFC normalization, so traces written on platforms with different
// unicode composition still match.
package suppress

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/lockverify/internal/detect"
	"github.com/roach88/lockverify/internal/lockgraph"
)

// File is the yaml document shape.
type File struct {
	Suppressions []Rule `yaml:"suppressions"`
}

// Rule is one suppression entry as written in the file.
type Rule struct {
	// Reason explains why this cycle is considered benign.
	Reason string `yaml:"reason"`

	// Locks is the exact lock-id set of the cycle, as "thr/instance".
	Locks []string `yaml:"locks,omitempty"`

	// Sites lists provenance sites ("file:line") that must all appear
	// in the cycle.
	Sites []string `yaml:"sites,omitempty"`
}

// Rules is a compiled suppression list.
type Rules struct {
	rules []compiledRule
}

type compiledRule struct {
	reason string
	locks  []lockgraph.LockID // sorted; empty means "any locks"
	sites  []lockgraph.Site   // files NFC-normalized
}

// Load reads and compiles a suppression file from disk.
func Load(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load suppressions: %w", err)
	}
	defer f.Close()
	rules, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("load suppressions %s: %w", path, err)
	}
	return rules, nil
}

// Parse decodes and compiles a suppression document. Unknown yaml fields
// are rejected so typos do not silently disable a rule.
func Parse(r io.Reader) (*Rules, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file File
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return &Rules{}, nil
		}
		return nil, fmt.Errorf("parse: %w", err)
	}

	rs := &Rules{}
	for i, rule := range file.Suppressions {
		cr, err := compile(rule)
		if err != nil {
			return nil, fmt.Errorf("suppression %d: %w", i, err)
		}
		rs.rules = append(rs.rules, cr)
	}
	return rs, nil
}

// Len returns the number of rules.
func (rs *Rules) Len() int {
	return len(rs.rules)
}

// Match reports whether any rule suppresses the cycle, and returns the
// matching rule's reason.
func (rs *Rules) Match(c *detect.Cycle) (reason string, ok bool) {
	for _, r := range rs.rules {
		if r.matches(c) {
			return r.reason, true
		}
	}
	return "", false
}

func compile(rule Rule) (compiledRule, error) {
	if len(rule.Locks) == 0 && len(rule.Sites) == 0 {
		return compiledRule{}, fmt.Errorf("rule needs at least one of locks or sites")
	}
	cr := compiledRule{reason: rule.Reason}
	for _, s := range rule.Locks {
		id, err := parseLockID(s)
		if err != nil {
			return compiledRule{}, err
		}
		cr.locks = append(cr.locks, id)
	}
	sort.Slice(cr.locks, func(i, j int) bool { return cr.locks[i].Less(cr.locks[j]) })
	for _, s := range rule.Sites {
		site, err := parseSite(s)
		if err != nil {
			return compiledRule{}, err
		}
		cr.sites = append(cr.sites, site)
	}
	return cr, nil
}

func (r compiledRule) matches(c *detect.Cycle) bool {
	if len(r.locks) > 0 {
		ids := c.LockIDs()
		if len(ids) != len(r.locks) {
			return false
		}
		for i := range ids {
			if ids[i] != r.locks[i] {
				return false
			}
		}
	}
	if len(r.sites) > 0 {
		have := make(map[lockgraph.Site]bool)
		for _, s := range c.Sites() {
			have[normalizeSite(s)] = true
		}
		for _, s := range r.sites {
			if !have[s] {
				return false
			}
		}
	}
	return true
}

func parseLockID(s string) (lockgraph.LockID, error) {
	thrs, insts, ok := strings.Cut(s, "/")
	if !ok {
		return lockgraph.LockID{}, fmt.Errorf("lock id %q: want thr/instance", s)
	}
	thr, err := strconv.ParseInt(thrs, 10, 32)
	if err != nil {
		return lockgraph.LockID{}, fmt.Errorf("lock id %q: %w", s, err)
	}
	inst, err := strconv.ParseInt(insts, 10, 32)
	if err != nil {
		return lockgraph.LockID{}, fmt.Errorf("lock id %q: %w", s, err)
	}
	return lockgraph.LockID{Thr: int32(thr), Instance: int32(inst)}, nil
}

func parseSite(s string) (lockgraph.Site, error) {
	// File names may contain colons; the line number is after the last.
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return lockgraph.Site{}, fmt.Errorf("site %q: want file:line", s)
	}
	line, err := strconv.ParseInt(s[i+1:], 10, 32)
	if err != nil {
		return lockgraph.Site{}, fmt.Errorf("site %q: %w", s, err)
	}
	return normalizeSite(lockgraph.Site{File: s[:i], Line: int32(line)}), nil
}

func normalizeSite(s lockgraph.Site) lockgraph.Site {
	return lockgraph.Site{File: norm.NFC.String(s.File), Line: s.Line}
}
