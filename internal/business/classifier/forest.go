package classifier

import (
	"fmt"

	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// Node 决策树节点；Left < 0 表示叶子
// 分裂规则：x[Feature] <= Threshold 走左子树
type Node struct {
	Feature   int        `json:"feature"`
	Threshold float64    `json:"threshold"`
	Left      int        `json:"left"`
	Right     int        `json:"right"`
	Value     [2]float64 `json:"value"` // 该节点的类别计数或概率，使用前归一化
}

// Tree 数组形式的决策树，节点 0 为根
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest 概率平均的随机森林
type Forest struct {
	family    string
	nFeatures int
	trees     []Tree
}

// NewForest 校验树结构后创建森林
func NewForest(family string, nFeatures int, trees []Tree) (*Forest, error) {
	if nFeatures <= 0 {
		return nil, fmt.Errorf("forest: n_features must be positive")
	}
	if len(trees) == 0 {
		return nil, fmt.Errorf("forest: no trees")
	}
	for ti, t := range trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("forest: tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Value[0] < 0 || n.Value[1] < 0 || n.Value[0]+n.Value[1] <= 0 {
				return nil, fmt.Errorf("forest: tree %d node %d has invalid value %v", ti, ni, n.Value)
			}
			if n.Left < 0 {
				continue
			}
			// 子节点下标必须大于父节点，保证无环
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("forest: tree %d node %d has invalid children", ti, ni)
			}
			if n.Feature < 0 || n.Feature >= nFeatures {
				return nil, fmt.Errorf("forest: tree %d node %d splits on feature %d out of range", ti, ni, n.Feature)
			}
		}
	}
	return &Forest{family: family, nFeatures: nFeatures, trees: trees}, nil
}

// Family 绑定的模板族
func (f *Forest) Family() string { return f.family }

// NFeatures 输入维度
func (f *Forest) NFeatures() int { return f.nFeatures }

// PredictProba 各树叶子概率的平均
func (f *Forest) PredictProba(x []float64) ([2]float64, error) {
	if err := checkShape(f.family, f.nFeatures, x); err != nil {
		return [2]float64{}, err
	}
	var sum [2]float64
	for _, t := range f.trees {
		p := resistant(t.Nodes[t.leaf(x)])
		sum[ClassResistant] += p
		sum[ClassSusceptible] += 1 - p
	}
	n := float64(len(f.trees))
	return [2]float64{sum[0] / n, sum[1] / n}, nil
}

// Attribute 决策路径分解：每次分裂时 Resistant 概率的变化记到分裂特征上，按树平均
func (f *Forest) Attribute(x []float64) (Attribution, error) {
	if err := checkShape(f.family, f.nFeatures, x); err != nil {
		return Attribution{}, errorutil.AttributionUnavailable(err, "forest attribution")
	}
	out := Attribution{Contributions: make([]float64, f.nFeatures)}
	for _, t := range f.trees {
		idx := 0
		out.Bias += resistant(t.Nodes[0])
		for t.Nodes[idx].Left >= 0 {
			n := t.Nodes[idx]
			next := n.Right
			if x[n.Feature] <= n.Threshold {
				next = n.Left
			}
			out.Contributions[n.Feature] += resistant(t.Nodes[next]) - resistant(n)
			idx = next
		}
	}
	k := float64(len(f.trees))
	out.Bias /= k
	for i := range out.Contributions {
		out.Contributions[i] /= k
	}
	return out, nil
}

func (t Tree) leaf(x []float64) int {
	idx := 0
	for t.Nodes[idx].Left >= 0 {
		n := t.Nodes[idx]
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return idx
}

func resistant(n Node) float64 {
	return n.Value[ClassResistant] / (n.Value[0] + n.Value[1])
}
