package dispatch

import (
	"context"
	"strings"
	"unicode"
)

// Pick is a strategy's chosen candidate. A nil Pick means the strategy
// declined to choose.
type Pick struct {
	Name   string
	Reason string
}

// Strategy decides which candidate, if any, best serves an utterance.
type Strategy interface {
	Name() string
	Pick(ctx context.Context, utterance string, candidates []Candidate) (*Pick, error)
}

// Heuristic is a deterministic, call-free strategy: it scores candidates by
// token overlap between the utterance and the candidate's name plus
// description. First-registered wins ties.
type Heuristic struct{}

func (Heuristic) Name() string { return "heuristic" }

func (Heuristic) Pick(_ context.Context, utterance string, candidates []Candidate) (*Pick, error) {
	tokens := tokenize(utterance)
	if len(tokens) == 0 || len(candidates) == 0 {
		return nil, nil
	}

	best := -1
	bestScore := 0
	for i, cand := range candidates {
		haystack := strings.ToLower(cand.Name + " " + cand.Description)
		score := 0
		for _, tok := range tokens {
			if strings.Contains(haystack, tok) {
				score++
			}
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return nil, nil
	}
	return &Pick{
		Name:   candidates[best].Name,
		Reason: "요청 문장과 도구 설명의 단어가 일치합니다.",
	}, nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var out []string
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}
