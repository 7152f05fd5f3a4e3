package scoring

import (
	"math"
	"strings"
)

// CorrectThreshold 判定答题正确的最低分
const CorrectThreshold = 0.7

// scoreEpsilon 浮点比较容差，避免 0.7 这类边界值因舍入误判
const scoreEpsilon = 1e-9

// Kind 练习题型
type Kind string

const (
	KindSelect   Kind = "select"
	KindMatch    Kind = "match"
	KindRewrite  Kind = "rewrite"
	KindListen   Kind = "listen"
	KindSpeak    Kind = "speak"
	KindScenario Kind = "scenario"
)

// Kinds 全部题型，顺序固定
var Kinds = []Kind{KindSelect, KindMatch, KindRewrite, KindListen, KindSpeak, KindScenario}

// Valid 是否为已知题型
func (k Kind) Valid() bool {
	_, ok := handlers[k]
	return ok || k.Remote()
}

// Remote 音频类题型由外部评分服务打分
func (k Kind) Remote() bool {
	return k == KindListen || k == KindSpeak
}

type handler func(correct, response []string) float64

// handlers 每种本地题型对应唯一的评分函数
var handlers = map[Kind]handler{
	KindSelect:   scoreChoice,
	KindScenario: scoreChoice,
	KindMatch:    scoreMatch,
	KindRewrite:  scoreRewrite,
}

// ScoreExercise 计算本地题型得分，结果始终在 [0,1]。
// 音频题型与未知题型返回 0，音频题型需调用 ScoreRemote。
func ScoreExercise(kind Kind, correct, response []string) float64 {
	h, ok := handlers[kind]
	if !ok {
		return 0
	}
	return Clamp01(h(correct, response))
}

// ScoreRemote 外部评分服务返回的分数以其为准，仅做区间修正
func ScoreRemote(score float64) float64 {
	return Clamp01(score)
}

// IsCorrect 得分不低于 0.7 即为正确
func IsCorrect(score float64) bool {
	return score+scoreEpsilon >= CorrectThreshold
}

// Clamp01 将分数限制在 [0,1]，NaN 视为 0
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// scoreChoice 选择题与情景题：集合完全一致 1 分，有交集 0.5 分
func scoreChoice(correct, response []string) float64 {
	want := toSet(correct)
	if len(want) == 0 {
		return 0
	}
	got := toSet(response)
	if len(want) == len(got) && overlap(want, got) == len(want) {
		return 1
	}
	if overlap(want, got) > 0 {
		return 0.5
	}
	return 0
}

// scoreMatch 按位置比对，得分为匹配位置数占比
func scoreMatch(correct, response []string) float64 {
	if len(correct) == 0 {
		return 0
	}
	matches := 0
	for i, c := range correct {
		if i < len(response) && strings.TrimSpace(response[i]) == strings.TrimSpace(c) {
			matches++
		}
	}
	return float64(matches) / float64(len(correct))
}

// scoreRewrite 改写题：规范化后完全一致得 1 分，否则按词集合 Jaccard 相似度
func scoreRewrite(correct, response []string) float64 {
	if len(correct) == 0 {
		return 0
	}
	reference := normalizeText(strings.Join(correct, " "))
	answer := normalizeText(strings.Join(response, " "))
	if reference == "" {
		return 0
	}
	if reference == answer {
		return 1
	}
	return Jaccard(strings.Fields(reference), strings.Fields(answer))
}

// Jaccard 词集合交集与并集之比，并集为空时为 0
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	inter := overlap(setA, setB)
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		set[item] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
