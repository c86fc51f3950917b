package evaluation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioSets(t *testing.T) {
	assert.Len(t, GeneralScenarios(), 5)
	assert.Len(t, ResearchScenarios(), 3)
	assert.Len(t, CreativeScenarios(), 3)
	assert.Len(t, LoadScenarios(), 2)
	assert.Len(t, QuickSet(), 5)
	assert.Len(t, ComprehensiveSet(), 11)

	for _, s := range allScenarios() {
		assert.NotEmpty(t, s.Name)
		assert.Positive(t, s.Timeout, s.Name)
	}
}

func TestScenarioFilters(t *testing.T) {
	for _, s := range ByDomain("business") {
		assert.Equal(t, "business", s.Domain)
	}
	assert.Len(t, ByDomain("business"), 2)
	assert.Empty(t, ByDomain("nope"))

	expert := ByDifficulty(DifficultyExpert)
	require.Len(t, expert, 1)
	assert.Equal(t, "Product Innovation", expert[0].Name)
}

func TestCustomScenario(t *testing.T) {
	s := Custom("mine", "do it")
	assert.Equal(t, ScenarioSimpleTask, s.Type)
	assert.Equal(t, DifficultyMedium, s.Difficulty)
	assert.Equal(t, 120*time.Second, s.Timeout)
	assert.Equal(t, "custom", s.Domain)

	s = Custom("edge", "", func(s *Scenario) {
		s.Type = ScenarioEdgeCase
		s.ExpectedOutcome = "graceful"
	})
	assert.Equal(t, ScenarioEdgeCase, s.Type)
	assert.Equal(t, "graceful", s.ExpectedOutcome)
}

func TestScenarioSet(t *testing.T) {
	quick, err := ScenarioSet("")
	require.NoError(t, err)
	assert.Len(t, quick, 5)

	all, err := ScenarioSet("comprehensive")
	require.NoError(t, err)
	assert.Len(t, all, 11)

	creative, err := ScenarioSet("domain:creative")
	require.NoError(t, err)
	assert.Len(t, creative, 2)

	_, err = ScenarioSet("domain:unknown")
	assert.Error(t, err)
	_, err = ScenarioSet("everything")
	assert.Error(t, err)
}

func TestParseDimensionAndGrade(t *testing.T) {
	d, err := ParseDimension("error_handling")
	require.NoError(t, err)
	assert.Equal(t, DimensionErrorHandling, d)
	_, err = ParseDimension("speed")
	assert.Error(t, err)

	cases := map[float64]string{0.95: "A+", 0.9: "A+", 0.85: "A", 0.7: "B", 0.65: "C", 0.5: "D", 0.49: "F", 0: "F"}
	for score, grade := range cases {
		assert.Equal(t, grade, Grade(score), "score %v", score)
	}
}
