package templates

import (
	"path/filepath"

	"github.com/reeta-042/salmonella-amr-api/internal/business/features"
	"github.com/reeta-042/salmonella-amr-api/pkg/config"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// Set 按模型族索引的模板集合，启动时加载一次，之后只读
type Set struct {
	order    []string
	byFamily map[string]*Template
}

// NewSet 由已加载的模板构建集合，保持传入顺序
func NewSet(ts ...*Template) (*Set, error) {
	s := &Set{byFamily: make(map[string]*Template, len(ts))}
	for _, t := range ts {
		if _, dup := s.byFamily[t.family]; dup {
			return nil, errorutil.TemplateUnavailable(nil, "duplicate template family %q", t.family)
		}
		s.order = append(s.order, t.family)
		s.byFamily[t.family] = t
	}
	return s, nil
}

// LoadSet 从模板目录加载配置中的全部模板
func LoadSet(dir string, entries []config.TemplateConfig) (*Set, error) {
	ts := make([]*Template, 0, len(entries))
	for _, e := range entries {
		path := e.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		t, err := Load(e.Family, path)
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	return NewSet(ts...)
}

// Get 按模型族获取模板
func (s *Set) Get(family string) (*Template, bool) {
	t, ok := s.byFamily[family]
	return t, ok
}

// Families 模型族（加载顺序）
func (s *Set) Families() []string {
	return append([]string(nil), s.order...)
}

// AlignAll 把特征行对齐到每个模板（加载顺序）
func (s *Set) AlignAll(row *features.FeatureRow) []Alignment {
	out := make([]Alignment, 0, len(s.order))
	for _, f := range s.order {
		out = append(out, s.byFamily[f].Align(row))
	}
	return out
}

// SNPVocabulary 所有模板中出现的 SNP 特征名
func (s *Set) SNPVocabulary() map[string]bool {
	return s.vocabulary(IsSNPFeature)
}

// KmerVocabulary 所有模板中出现的 k-mer 特征名
func (s *Set) KmerVocabulary() map[string]bool {
	return s.vocabulary(IsKmerFeature)
}

func (s *Set) vocabulary(match func(string) bool) map[string]bool {
	out := make(map[string]bool)
	for _, t := range s.byFamily {
		for _, n := range t.features {
			if match(n) {
				out[n] = true
			}
		}
	}
	return out
}
