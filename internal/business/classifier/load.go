package classifier

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// 模型文档类型
const (
	KindForest   = "forest"
	KindLogistic = "logistic"
)

// Document 模型文件（JSON）
type Document struct {
	Kind       string    `json:"kind"`
	Antibiotic string    `json:"antibiotic"`
	Family     string    `json:"family"`
	NFeatures  int       `json:"n_features"`
	Trees      []Tree    `json:"trees,omitempty"`
	Intercept  float64   `json:"intercept,omitempty"`
	Weights    []float64 `json:"weights,omitempty"`
	Baseline   []float64 `json:"baseline,omitempty"`
}

// Decode 解析模型文档并构建对应的分类器
func Decode(r io.Reader) (Classifier, *Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decode model: %w", err)
	}

	var (
		c   Classifier
		err error
	)
	switch doc.Kind {
	case KindForest:
		c, err = NewForest(doc.Family, doc.NFeatures, doc.Trees)
	case KindLogistic:
		if doc.NFeatures != 0 && doc.NFeatures != len(doc.Weights) {
			return nil, nil, fmt.Errorf("logistic: n_features %d does not match %d weights", doc.NFeatures, len(doc.Weights))
		}
		c, err = NewLogistic(doc.Family, doc.Intercept, doc.Weights, doc.Baseline)
	default:
		return nil, nil, fmt.Errorf("unknown model kind %q", doc.Kind)
	}
	if err != nil {
		return nil, nil, err
	}
	return c, &doc, nil
}

// LoadFile 从文件加载模型
func LoadFile(path string) (Classifier, *Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Decode(f)
}
