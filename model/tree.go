package model

import (
	"fmt"
)

// Tree 是从 sklearn tree_ 导出的单棵决策树。
//
// 导出格式（每个数组按节点下标对齐）：
//
//	{
//	  "children_left":  [1, -1, -1],
//	  "children_right": [2, -1, -1],
//	  "feature":        [3, -2, -2],
//	  "threshold":      [24.9, -2, -2],
//	  "value":          [[[10, 5]], [[8, 1]], [[2, 4]]]
//	}
//
// value 的形状为 [节点][输出][类别]，回归树每个输出只有一个值。
// 分裂规则与 sklearn 一致：x[feature] <= threshold 走左子树；children_left == -1 为叶子。
type Tree struct {
	ChildrenLeft  []int         `json:"children_left"`
	ChildrenRight []int         `json:"children_right"`
	Feature       []int         `json:"feature"`
	Threshold     []float64     `json:"threshold"`
	Value         [][][]float64 `json:"value"`
}

const leafNode = -1

// validate 检查数组长度与子节点下标，nFeatures 为输入特征数
func (t *Tree) validate(nFeatures int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays differ in length")
	}
	for i := 0; i < n; i++ {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leafNode {
			if len(t.Value[i]) == 0 {
				return fmt.Errorf("leaf %d has no value", i)
			}
			for o, v := range t.Value[i] {
				if len(v) == 0 {
					return fmt.Errorf("leaf %d has no value for output %d", i, o)
				}
			}
			continue
		}
		if l <= i || r <= i || l >= n || r >= n {
			return fmt.Errorf("node %d has invalid children (%d, %d)", i, l, r)
		}
		if f := t.Feature[i]; f < 0 || (nFeatures > 0 && f >= nFeatures) {
			return fmt.Errorf("node %d splits on invalid feature %d", i, f)
		}
	}
	return nil
}

// leaf 返回输入 x 落入的叶子节点的 value
func (t *Tree) leaf(x []float64) [][]float64 {
	node := 0
	for t.ChildrenLeft[node] != leafNode {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}

// maxFeature 返回树中使用的最大特征下标，未分裂时为 -1
func (t *Tree) maxFeature() int {
	m := -1
	for i, l := range t.ChildrenLeft {
		if l != leafNode && t.Feature[i] > m {
			m = t.Feature[i]
		}
	}
	return m
}
