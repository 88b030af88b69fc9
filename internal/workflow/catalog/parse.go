package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// LoadDefault 解析内置规则表
func LoadDefault() (*Tables, error) {
	return Parse(defaultTables)
}

// MustLoadDefault 解析内置规则表，失败时 panic
func MustLoadDefault() *Tables {
	t, err := LoadDefault()
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return t
}

// LoadFile 解析外部规则表文件
func LoadFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return t, nil
}

// Parse 解析并校验规则表，返回的 Tables 之后不再修改
func Parse(data []byte) (*Tables, error) {
	var t Tables
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := t.index(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tables) index() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("catalog version is required")
	}

	t.styles = make(map[string]*StyleVocab, len(t.Styles))
	for i := range t.Styles {
		s := &t.Styles[i]
		s.Name = Normalize(s.Name)
		if s.Name == "" {
			return fmt.Errorf("style #%d has no name", i)
		}
		if _, dup := t.styles[s.Name]; dup {
			return fmt.Errorf("duplicate style %q", s.Name)
		}
		t.styles[s.Name] = s
	}

	t.Techniques = normalizeKeys(t.Techniques)
	t.Palettes = normalizeKeys(t.Palettes)
	t.Placements = normalizeKeys(t.Placements)
	for i, z := range t.BodyZones {
		t.BodyZones[i] = Normalize(z)
	}

	if len(t.Backends) == 0 {
		return fmt.Errorf("catalog defines no backends")
	}
	t.backends = make(map[string]*Backend, len(t.Backends))
	for i := range t.Backends {
		b := &t.Backends[i]
		b.ID = Normalize(b.ID)
		if b.ID == "" {
			return fmt.Errorf("backend #%d has no id", i)
		}
		if _, dup := t.backends[b.ID]; dup {
			return fmt.Errorf("duplicate backend %q", b.ID)
		}
		if b.MaxPromptChars <= 0 {
			return fmt.Errorf("backend %q: max_prompt_chars must be positive", b.ID)
		}
		for _, score := range []float64{b.QualityScore, b.SpeedScore, b.CostScore} {
			if score < 0 || score > 10 {
				return fmt.Errorf("backend %q: scores must be within [0, 10]", b.ID)
			}
		}
		for j, s := range b.Styles {
			b.Styles[j] = Normalize(s)
		}
		t.backends[b.ID] = b
	}

	t.rules = make(map[StylePair]*StyleTransferRule, len(t.TransferRules))
	for i := range t.TransferRules {
		r := &t.TransferRules[i]
		key := NewStylePair(r.From, r.To)
		if key.From == "" || key.To == "" {
			return fmt.Errorf("transfer rule #%d: from and to are required", i)
		}
		if key.From == key.To {
			return fmt.Errorf("transfer rule %s->%s maps a style to itself", key.From, key.To)
		}
		if _, dup := t.rules[key]; dup {
			return fmt.Errorf("duplicate transfer rule %s->%s", key.From, key.To)
		}
		if r.Compatibility < 0 || r.Compatibility > 100 {
			return fmt.Errorf("transfer rule %s->%s: compatibility must be within [0, 100]", key.From, key.To)
		}
		r.From, r.To = key.From, key.To
		for j := range r.Transformations {
			if err := r.Transformations[j].compile(); err != nil {
				return fmt.Errorf("transfer rule %s->%s transformation #%d: %w", key.From, key.To, j, err)
			}
		}
		sort.SliceStable(r.Transformations, func(a, b int) bool {
			return r.Transformations[a].Priority < r.Transformations[b].Priority
		})
		t.rules[key] = r
	}

	t.difficult = make(map[StylePair]struct{}, len(t.DifficultPairs))
	for _, p := range t.DifficultPairs {
		t.difficult[NewStylePair(p.From, p.To)] = struct{}{}
	}

	t.Analyzer.stopwords = make(map[string]struct{}, len(t.Analyzer.Stopwords))
	for _, w := range t.Analyzer.Stopwords {
		t.Analyzer.stopwords[Normalize(w)] = struct{}{}
	}

	if len(t.InkOnly.ColorTerms) > 0 {
		re, err := termRunPattern(t.InkOnly.ColorTerms)
		if err != nil {
			return fmt.Errorf("ink_only color terms: %w", err)
		}
		t.colorRe = re
	}
	return nil
}

func (tr *Transformation) compile() error {
	switch tr.Type {
	case TransformAdd:
		if strings.TrimSpace(tr.Replacement) == "" {
			return fmt.Errorf("add requires a replacement")
		}
		return nil
	case TransformReplace, TransformRemove, TransformModify:
	default:
		return fmt.Errorf("unknown transformation type %q", tr.Type)
	}
	if tr.Target == "" {
		return fmt.Errorf("%s requires a target pattern", tr.Type)
	}
	if tr.Condition != "" && tr.Condition != ConditionPreserveSubject {
		return fmt.Errorf("unsupported condition %q", tr.Condition)
	}
	re, err := regexp.Compile("(?i)" + tr.Target)
	if err != nil {
		return fmt.Errorf("compile %q: %w", tr.Target, err)
	}
	tr.pattern = re
	return nil
}

// termsPattern 把词表编译成一个按词边界匹配的正则，长词优先
func termsPattern(terms []string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\b(` + termsAlternation(terms) + `)\b`)
}

// termRunPattern 匹配由逗号、and、or 或空白连接的一串词，整串作为一个匹配
func termRunPattern(terms []string) (*regexp.Regexp, error) {
	alt := `(?:` + termsAlternation(terms) + `)\b`
	sep := `(?:\s*,\s*(?:(?:and|or)\s+)?|\s+(?:(?:and|or)\s+)?)`
	return regexp.Compile(`(?i)\b` + alt + `(?:` + sep + alt + `)*`)
}

// termsAlternation 长词优先，保证 "vibrant colors" 先于 "colors" 命中
func termsAlternation(terms []string) string {
	sorted := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = Normalize(term); term != "" {
			sorted = append(sorted, regexp.QuoteMeta(term))
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	return strings.Join(sorted, "|")
}

func normalizeKeys[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[Normalize(k)] = v
	}
	return out
}
