package evaluation

import (
	"sort"

	"github.com/BaSui01/agentteams/types"
)

// RankEntry 排名条目
type RankEntry struct {
	Rank         int     `json:"rank"`
	EvaluationID string  `json:"evaluation_id"`
	TeamName     string  `json:"team_name"`
	OverallScore float64 `json:"overall_score"`
	Grade        string  `json:"grade"`
}

// DimensionComparison 单个维度的对比
type DimensionComparison struct {
	Scores         map[string]float64 `json:"scores"`
	BestTeam       string             `json:"best_team"`
	BestEvaluation string             `json:"best_evaluation"`
}

// Comparison 多个评估结果的对比。Scores 以 evaluation id 为键。
type Comparison struct {
	Ranking     []RankEntry                       `json:"ranking"`
	Winner      string                            `json:"winner"`
	Dimensions  map[Dimension]DimensionComparison `json:"dimension_comparison"`
	ScoreSpread float64                           `json:"score_spread"`
}

// Compare 对比至少两个评估结果
func Compare(results []*Result) (*Comparison, error) {
	if len(results) < 2 {
		return nil, types.NewInvalidRequestError("need at least 2 evaluations to compare")
	}

	ranked := append([]*Result(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].OverallScore > ranked[j].OverallScore })

	cmp := &Comparison{
		Ranking:    make([]RankEntry, len(ranked)),
		Winner:     ranked[0].TeamName,
		Dimensions: make(map[Dimension]DimensionComparison),
	}
	for i, r := range ranked {
		cmp.Ranking[i] = RankEntry{
			Rank:         i + 1,
			EvaluationID: r.ID,
			TeamName:     r.TeamName,
			OverallScore: r.OverallScore,
			Grade:        r.Grade,
		}
	}
	cmp.ScoreSpread = ranked[0].OverallScore - ranked[len(ranked)-1].OverallScore

	for _, d := range AllDimensions() {
		dc := DimensionComparison{Scores: make(map[string]float64)}
		best := -1.0
		for _, r := range results {
			score, ok := r.DimensionScores[d]
			if !ok {
				continue
			}
			dc.Scores[r.ID] = score
			if score > best {
				best = score
				dc.BestTeam = r.TeamName
				dc.BestEvaluation = r.ID
			}
		}
		if len(dc.Scores) > 0 {
			cmp.Dimensions[d] = dc
		}
	}
	return cmp, nil
}
