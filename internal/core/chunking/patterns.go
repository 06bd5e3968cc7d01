package chunking

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// headerFamily names one independent structural pattern family.
type headerFamily int

const (
	familyChapter headerFamily = iota
	familyMiscellaneous
	familyExercise
	familyExample
	familySection
	familyTheorem
	familyDefinition
)

func (f headerFamily) String() string {
	switch f {
	case familyChapter:
		return "chapter"
	case familyMiscellaneous:
		return "miscellaneous"
	case familyExercise:
		return "exercise"
	case familyExample:
		return "example"
	case familySection:
		return "section"
	case familyTheorem:
		return "theorem"
	case familyDefinition:
		return "definition"
	default:
		return "unknown"
	}
}

// header is one located structural marker inside page text.
type header struct {
	family headerFamily
	start  int
	end    int
	label  string
	title  string
}

// opensCollection reports whether reaching this header starts a new
// cross-page accumulation. Theorem, definition and section headers
// never open one; their body is handled as ordinary text.
func (h header) opensCollection() bool {
	switch h.family {
	case familyExercise, familyExample, familyMiscellaneous:
		return true
	default:
		return false
	}
}

// PatternSet holds the compiled header patterns per family. Headers are
// matched at line starts only; a stray inline mention ("see exercise
// 3.1") must not restructure the document.
type PatternSet struct {
	families map[headerFamily][]*regexp.Regexp
}

var defaultPatternSources = map[headerFamily][]string{
	familyChapter: {
		`(?im)^[ \t]*CHAPTER\s+(\d+)\s*[:\-]?[ \t]*([^\n]*)`,
	},
	familySection: {
		`(?m)^[ \t]*(\d+\.\d+)\s+([A-Z][^\n]{3,60})`,
	},
	familyTheorem: {
		`(?im)^[ \t]*Theorem\s+(\d+(?:\.\d+)?)`,
	},
	familyDefinition: {
		`(?im)^[ \t]*Definition\s+(\d+(?:\.\d+)?)`,
	},
	familyExercise: {
		`(?im)^[ \t]*EXERCISE\s+(\d+\.\d+)`,
	},
	familyExample: {
		`(?im)^[ \t]*Example\s+(\d+(?:\.\d+)?)`,
	},
	familyMiscellaneous: {
		`(?im)^[ \t]*MISCELLANEOUS\s+EXERCISE[S]?\b`,
		`(?im)^[ \t]*SUMMARY\b`,
	},
}

// DefaultPatterns returns the built-in pattern families.
func DefaultPatterns() *PatternSet {
	ps := &PatternSet{families: make(map[headerFamily][]*regexp.Regexp, len(defaultPatternSources))}
	for family, sources := range defaultPatternSources {
		for _, src := range sources {
			ps.families[family] = append(ps.families[family], regexp.MustCompile(src))
		}
	}
	return ps
}

type patternFileSchema struct {
	Chapter       []string `yaml:"chapter"`
	Section       []string `yaml:"section"`
	Theorem       []string `yaml:"theorem"`
	Definition    []string `yaml:"definition"`
	Exercise      []string `yaml:"exercise"`
	Example       []string `yaml:"example"`
	Miscellaneous []string `yaml:"miscellaneous"`
}

// LoadPatterns reads a YAML file overriding individual pattern
// families. Families absent from the file keep their defaults.
func LoadPatterns(path string) (*PatternSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}

	var schema patternFileSchema
	if err := yaml.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("parse pattern file: %w", err)
	}

	ps := DefaultPatterns()
	overrides := map[headerFamily][]string{
		familyChapter:       schema.Chapter,
		familySection:       schema.Section,
		familyTheorem:       schema.Theorem,
		familyDefinition:    schema.Definition,
		familyExercise:      schema.Exercise,
		familyExample:       schema.Example,
		familyMiscellaneous: schema.Miscellaneous,
	}
	for family, sources := range overrides {
		if len(sources) == 0 {
			continue
		}
		compiled := make([]*regexp.Regexp, 0, len(sources))
		for _, src := range sources {
			re, err := regexp.Compile(src)
			if err != nil {
				return nil, fmt.Errorf("compile %s pattern %q: %w", family, src, err)
			}
			compiled = append(compiled, re)
		}
		ps.families[family] = compiled
	}
	return ps, nil
}

// findHeaders locates every header occurrence in the page text, sorted
// by offset. Equal offsets break by family order so the walk stays
// deterministic.
func (p *PatternSet) findHeaders(text string) []header {
	if text == "" {
		return nil
	}

	var out []header
	for family := familyChapter; family <= familyDefinition; family++ {
		for _, re := range p.families[family] {
			for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
				h := header{family: family, start: loc[0], end: loc[1]}
				if len(loc) >= 4 && loc[2] >= 0 {
					h.label = text[loc[2]:loc[3]]
				}
				if len(loc) >= 6 && loc[4] >= 0 {
					h.title = trimHeaderTitle(text[loc[4]:loc[5]])
				}
				out = append(out, h)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].start != out[j].start {
			return out[i].start < out[j].start
		}
		return out[i].family < out[j].family
	})
	return out
}

func trimHeaderTitle(s string) string {
	end := len(s)
	for end > 0 && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '.' || s[end-1] == ':') {
		end--
	}
	start := 0
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	return s[start:end]
}
