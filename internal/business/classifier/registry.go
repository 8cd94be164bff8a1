package classifier

import (
	"fmt"
	"path/filepath"

	"github.com/reeta-042/salmonella-amr-api/internal/business/templates"
	"github.com/reeta-042/salmonella-amr-api/pkg/config"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// Pair 单个抗生素的全特征 / 部分特征模型对
type Pair struct {
	Antibiotic    string
	FullFamily    string
	PartialFamily string
	Full          Classifier
	Partial       Classifier

	err error
}

// Registry 抗生素 → 模型对，启动时构建一次，之后只读
type Registry struct {
	order []string
	pairs map[string]Pair
}

// NewRegistry 由模型对构建注册表（保持传入顺序）
func NewRegistry(pairs ...Pair) *Registry {
	r := &Registry{pairs: make(map[string]Pair, len(pairs))}
	for _, p := range pairs {
		if _, dup := r.pairs[p.Antibiotic]; !dup {
			r.order = append(r.order, p.Antibiotic)
		}
		r.pairs[p.Antibiotic] = p
	}
	return r
}

// Load 按配置加载全部模型并绑定到模板
// 单个模型加载失败只影响该抗生素：记录原因，查询时返回 ClassifierUnavailable
func Load(cfg config.EngineConfig, set *templates.Set) *Registry {
	pairs := make([]Pair, 0, len(cfg.Antibiotics))
	for _, a := range cfg.Antibiotics {
		p := Pair{Antibiotic: a.Name, FullFamily: cfg.FullFamily, PartialFamily: a.PartialFamily}
		full, err := loadBound(cfg.ModelDir, a.FullModel, cfg.FullFamily, set)
		if err != nil {
			p.err = fmt.Errorf("full model %s: %w", a.FullModel, err)
			pairs = append(pairs, p)
			continue
		}
		partial, err := loadBound(cfg.ModelDir, a.PartialModel, a.PartialFamily, set)
		if err != nil {
			p.err = fmt.Errorf("partial model %s: %w", a.PartialModel, err)
			pairs = append(pairs, p)
			continue
		}
		p.Full, p.Partial = full, partial
		pairs = append(pairs, p)
	}
	return NewRegistry(pairs...)
}

func loadBound(dir, file, family string, set *templates.Set) (Classifier, error) {
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	c, _, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	tpl, ok := set.Get(family)
	if !ok {
		return nil, fmt.Errorf("no template for family %q", family)
	}
	if err := Bind(c, tpl); err != nil {
		return nil, err
	}
	return c, nil
}

// Bind 校验模型与模板的绑定关系（族名一致、维度一致）
func Bind(c Classifier, tpl *templates.Template) error {
	if c.Family() != "" && c.Family() != tpl.Family() {
		return fmt.Errorf("model family %q does not match template %q", c.Family(), tpl.Family())
	}
	if c.NFeatures() != tpl.Len() {
		return fmt.Errorf("model expects %d features, template %q has %d", c.NFeatures(), tpl.Family(), tpl.Len())
	}
	return nil
}

// Antibiotics 注册顺序
func (r *Registry) Antibiotics() []string {
	return append([]string(nil), r.order...)
}

// Lookup 获取模型对
func (r *Registry) Lookup(antibiotic string) (Pair, error) {
	p, ok := r.pairs[antibiotic]
	if !ok {
		return Pair{}, errorutil.ClassifierUnavailable(nil, "no models registered for %s", antibiotic)
	}
	if p.err != nil {
		return Pair{}, errorutil.ClassifierUnavailable(p.err, "models for %s failed to load", antibiotic)
	}
	return p, nil
}

// Failures 加载失败的抗生素及原因
func (r *Registry) Failures() map[string]error {
	out := make(map[string]error)
	for name, p := range r.pairs {
		if p.err != nil {
			out[name] = p.err
		}
	}
	return out
}
