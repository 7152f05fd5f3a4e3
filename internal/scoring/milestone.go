package scoring

import "sort"

// DefaultPassThreshold 里程碑默认及格线
const DefaultPassThreshold = 0.7

// DefaultRubricWeights 未配置评分细则时使用的权重
var DefaultRubricWeights = map[string]float64{
	"clarity":   0.3,
	"structure": 0.3,
	"presence":  0.2,
	"influence": 0.2,
}

// Grade 里程碑评分结果
type Grade struct {
	Overall      float64            `json:"overallScore"`
	Passed       bool               `json:"isPassed"`
	RubricScores map[string]float64 `json:"rubricScores"`
}

// GradeMilestone 加权汇总各项评分。
//
// weights 为空时：评分项与默认细则一致则用默认权重，否则各项等权。
// 未出现在权重表中的评分项不计分；缺失评分的细则项按 0 分计。
// threshold <= 0 时使用默认及格线。
func GradeMilestone(scores, weights map[string]float64, threshold float64) Grade {
	if threshold <= 0 {
		threshold = DefaultPassThreshold
	}
	if len(scores) == 0 {
		return Grade{RubricScores: map[string]float64{}}
	}
	if len(weights) == 0 {
		weights = inferWeights(scores)
	}

	clean := make(map[string]float64, len(scores))
	for name, s := range scores {
		clean[name] = Clamp01(s)
	}

	overall := 0.0
	for _, name := range sortedKeys(weights) {
		w := weights[name]
		if w <= 0 {
			continue
		}
		overall += clean[name] * w
	}
	overall = Clamp01(overall)

	return Grade{
		Overall:      overall,
		Passed:       overall+scoreEpsilon >= threshold,
		RubricScores: clean,
	}
}

// MilestoneReward 及格发放全部经验与金币；不及格经验减半、无金币
func MilestoneReward(xpReward, coinsReward int, passed bool) (xp, coins int) {
	if passed {
		return xpReward, coinsReward
	}
	return xpReward / 2, 0
}

func inferWeights(scores map[string]float64) map[string]float64 {
	matchesDefault := len(scores) == len(DefaultRubricWeights)
	for name := range scores {
		if _, ok := DefaultRubricWeights[name]; !ok {
			matchesDefault = false
			break
		}
	}
	if matchesDefault {
		return DefaultRubricWeights
	}

	equal := 1 / float64(len(scores))
	weights := make(map[string]float64, len(scores))
	for name := range scores {
		weights[name] = equal
	}
	return weights
}

// sortedKeys 固定求和顺序，保证结果可复现
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
