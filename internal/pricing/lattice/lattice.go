package lattice

import "math"

// Level 第 t 层节点价格，按价格从低到高排列
// 二叉树节点 j: spot·u^j·d^(t-j)；三叉树偏移 k: spot·u^max(0,k)·d^max(0,-k)·m^(t-|k|)。
// 逆向归纳逐层生成，不保留整棵树。
func Level(spot float64, t int, branching Branching, p SchemeParameters) []float64 {
	if branching == Binomial {
		level := make([]float64, t+1)
		for j := 0; j <= t; j++ {
			level[j] = spot * math.Pow(p.U, float64(j)) * math.Pow(p.D, float64(t-j))
		}
		return level
	}
	level := make([]float64, 2*t+1)
	for j := range level {
		k := j - t
		level[j] = spot * math.Pow(p.U, float64(max(0, k))) *
			math.Pow(p.D, float64(max(0, -k))) *
			math.Pow(p.M, float64(t-abs(k)))
	}
	return level
}

// NodeCount 第 t 层的节点数，仅由 t 与分支数决定
func NodeCount(t int, branching Branching) int {
	if branching == Binomial {
		return t + 1
	}
	return 2*t + 1
}

func abs(k int) int {
	if k < 0 {
		return -k
	}
	return k
}
