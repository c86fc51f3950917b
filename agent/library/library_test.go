package library

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/testutil"
	"github.com/BaSui01/agentteams/types"
)

const (
	researcherYAML = `agent:
  name: web_researcher
  description: Searches the web and researches topics
prompts:
  system_prompt:
    template: You search the internet and analyze sources.
tools:
  built_in: [web_search]
specialization:
  capabilities: [web_search, research]
  keywords: [Internet, news]
`
	writerYAML = `agent:
  name: writer
  description: Writes articles and documents
prompts:
  system_prompt:
    template: You write clear content.
`
	coordinatorYAML = `agent:
  name: team_coordinator
  description: Coordinates and routes tasks to teams
prompts:
  system_prompt:
    template: You orchestrate work and delegate to the right team.
`
	analystYAML = `agent:
  name: data_analyst
  description: Senior expert who analyzes data and statistics
prompts:
  system_prompt:
    template: Review metrics and check results.
`
	hierarchicalYAML = `team:
  name: research_team
coordinator:
  name: main
teams: []
`
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "researcher.yml", researcherYAML)
	testutil.WriteFile(t, dir, "content/writer.yaml", writerYAML)
	testutil.WriteFile(t, dir, "coordinator.yml", coordinatorYAML)
	testutil.WriteFile(t, dir, "analyst.yml", analystYAML)
	testutil.WriteFile(t, dir, "hierarchical/research_team.yml", hierarchicalYAML)
	testutil.WriteFile(t, dir, "broken.yml", "agent: [unclosed")
	testutil.WriteFile(t, dir, "misc.yml", "foo: bar\n")
	testutil.WriteFile(t, dir, "notes.txt", "not an agent")

	lib, err := New(dir, zap.NewNop())
	require.NoError(t, err)
	return lib
}

func ids(agents []AgentMetadata) []string {
	out := make([]string, len(agents))
	for i, a := range agents {
		out[i] = a.ID
	}
	return out
}

func TestLibrary_Scan(t *testing.T) {
	lib := newTestLibrary(t)

	assert.Equal(t, []string{"analyst", "content_writer", "coordinator", "researcher"}, ids(lib.All()))
	assert.Equal(t, 4, lib.Len())

	researcher, cfg, err := lib.Get("researcher")
	require.NoError(t, err)
	assert.Equal(t, "web_researcher", researcher.Name)
	assert.Equal(t, RoleWorker, researcher.PrimaryRole)
	assert.Equal(t, []string{"analysis", "research", "web_search"}, researcher.Capabilities)
	assert.Equal(t, []string{"web_search"}, researcher.Tools)
	assert.Equal(t, []string{"internet", "news"}, researcher.Specializations)
	assert.Equal(t, filepath.Join(lib.Dir(), "researcher.yml"), researcher.FilePath)
	assert.Contains(t, cfg, "agent")

	coord, _, err := lib.Get("coordinator")
	require.NoError(t, err)
	assert.Equal(t, RoleCoordinator, coord.PrimaryRole)
	assert.True(t, coord.CanCoordinate)
	assert.True(t, coord.CanSupervise)
	assert.Equal(t, 10, coord.TeamSizeLimit)
	assert.Empty(t, coord.Capabilities)

	analyst, _, err := lib.Get("analyst")
	require.NoError(t, err)
	assert.Equal(t, RoleSpecialist, analyst.PrimaryRole)
	assert.Equal(t, []Role{RoleSupervisor}, analyst.SecondaryRoles)
	assert.False(t, analyst.CanCoordinate)
	assert.True(t, analyst.CanSupervise)
	assert.Equal(t, []string{"analysis", "data", "research"}, analyst.Capabilities)
	assert.InDelta(t, 2.75/3, analyst.CompatibilityScore, 1e-9)

	writer, ok := lib.FindByName("WRITER")
	require.True(t, ok)
	assert.Equal(t, "content_writer", writer.ID)
	assert.Equal(t, 1.0, writer.CompatibilityScore)

	_, _, err = lib.Get("missing")
	assert.True(t, types.IsErrorCode(err, types.ErrAgentNotFound))
}

func TestLibrary_MissingDirectory(t *testing.T) {
	lib, err := New(filepath.Join(t.TempDir(), "nope"), nil)
	require.NoError(t, err)
	assert.Zero(t, lib.Len())
	assert.Equal(t, 0, lib.Stats().TotalAgents)
}

func TestLibrary_Reload(t *testing.T) {
	lib := newTestLibrary(t)
	testutil.WriteFile(t, lib.Dir(), "extra/coder.yml", `agent:
  name: coder
  description: Writes and debugs code
prompts:
  system_prompt:
    template: Implement functions.
`)
	require.NoError(t, lib.Reload())

	assert.Equal(t, 5, lib.Len())
	coder, _, err := lib.Get("extra_coder")
	require.NoError(t, err)
	assert.Contains(t, coder.Capabilities, "coding")
}

func TestLibrary_Search(t *testing.T) {
	lib := newTestLibrary(t)

	found, total := lib.Search(SearchQuery{Query: "Research"})
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"analyst", "researcher"}, ids(found))

	found, _ = lib.Search(SearchQuery{Query: "news"})
	assert.Equal(t, []string{"researcher"}, ids(found))

	found, _ = lib.Search(SearchQuery{Role: RoleSupervisor})
	assert.Equal(t, []string{"analyst"}, ids(found))

	found, _ = lib.Search(SearchQuery{Capabilities: []string{"Writing", "data"}})
	assert.Equal(t, []string{"analyst", "content_writer"}, ids(found))

	found, total = lib.Search(SearchQuery{Limit: 1, Offset: 1})
	assert.Equal(t, 4, total)
	assert.Equal(t, []string{"content_writer"}, ids(found))

	found, total = lib.Search(SearchQuery{Offset: 10})
	assert.Equal(t, 4, total)
	assert.Empty(t, found)
}

func TestLibrary_Stats(t *testing.T) {
	st := newTestLibrary(t).Stats()

	assert.Equal(t, 4, st.TotalAgents)
	assert.Equal(t, map[string]int{"worker": 2, "coordinator": 1, "specialist": 1}, st.ByRole)
	assert.Equal(t, map[string]int{"analysis": 2, "research": 2, "data": 1, "web_search": 1, "writing": 1}, st.ByCapability)
	assert.Equal(t, 1, st.CoordinationCapable)
	assert.Equal(t, 2, st.SupervisionCapable)
	assert.InDelta(t, (2*2.75/3+2)/4, st.AverageCompatibility, 1e-9)
	assert.Equal(t, []string{"analysis", "research", "data", "web_search", "writing"}, st.MostPopularCapabilities)
	assert.False(t, st.LoadedAt.IsZero())
}

func TestLibrary_Compatibility(t *testing.T) {
	lib := newTestLibrary(t)

	report, err := lib.Compatibility([]string{"researcher", "analyst"})
	require.NoError(t, err)
	assert.Equal(t, 0.75, report.Matrix["researcher"]["analyst"])
	assert.Equal(t, 0.75, report.Matrix["analyst"]["researcher"])
	assert.NotContains(t, report.Matrix["researcher"], "researcher")
	assert.Equal(t, 0.75, report.AverageCompatibility)
	assert.Empty(t, report.Recommendations)

	_, err = lib.Compatibility([]string{"researcher", "researcher"})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))

	_, err = lib.Compatibility([]string{"researcher", "ghost"})
	assert.True(t, types.IsErrorCode(err, types.ErrAgentNotFound))
}

func TestLibrary_CompatibilityRecommendations(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a", "b", "c", "d", "e", "f"}
	for _, n := range names {
		testutil.WriteFile(t, dir, n+".yml", "agent:\n  name: "+n+"\nspecialization:\n  capabilities: [writing]\n")
	}
	lib, err := New(dir, nil)
	require.NoError(t, err)

	report, err := lib.Compatibility(names)
	require.NoError(t, err)
	assert.Equal(t, 0.5, report.AverageCompatibility)
	assert.Equal(t, []string{
		"Consider agents with more complementary capabilities",
		"Large teams may benefit from hierarchical organization",
	}, report.Recommendations)
}

func TestPairCompatibility(t *testing.T) {
	assert.Equal(t, 0.5, pairCompatibility([]string{"a", "b"}, []string{"b", "a"}))
	assert.Equal(t, 1.0, pairCompatibility([]string{"a"}, []string{"b"}))
	assert.Equal(t, 0.5, pairCompatibility(nil, nil))
	assert.Equal(t, 0.75, pairCompatibility([]string{"a", "b", "c"}, []string{"a", "b", "d"}))
}

func TestLibrary_TeamSuggestions(t *testing.T) {
	lib := newTestLibrary(t)

	res, err := lib.TeamSuggestions("Search the web and write an article", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, TaskAnalysis{TaskType: "web_search", Complexity: "medium", RequiredCapabilities: []string{"web_search", "writing"}}, res.TaskAnalysis)
	require.Len(t, res.Suggestions, 1)

	s := res.Suggestions[0]
	assert.Equal(t, []string{"content_writer", "researcher"}, ids(s.Workers))
	assert.Equal(t, []string{"web_search", "writing"}, s.CoveredCapabilities)
	require.NotNil(t, s.Coordinator)
	assert.Equal(t, "coordinator", s.Coordinator.ID)
	assert.Equal(t, 1.0, s.CompatibilityScore)
	assert.Equal(t, 1.0, s.EstimatedPerformance)
	assert.Equal(t, "Covers 2 of 2 required capabilities (web_search, writing) with writer, web_researcher; coordinated by team_coordinator", s.Reasoning)
}

func TestLibrary_TeamSuggestionsRanking(t *testing.T) {
	lib := newTestLibrary(t)

	res, err := lib.TeamSuggestions("analyze the data", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "medium", res.TaskAnalysis.Complexity)
	assert.Equal(t, []string{"analysis", "data", "research"}, res.TaskAnalysis.RequiredCapabilities)
	require.Len(t, res.Suggestions, 2)
	assert.Equal(t, []string{"analyst"}, ids(res.Suggestions[0].Workers))
	assert.InDelta(t, 0.6+0.4*2.75/3, res.Suggestions[0].EstimatedPerformance, 1e-9)
	assert.Equal(t, []string{"researcher", "analyst"}, ids(res.Suggestions[1].Workers))
	assert.InDelta(t, 0.9, res.Suggestions[1].EstimatedPerformance, 1e-9)

	res, err = lib.TeamSuggestions("analyze the data", nil, 1)
	require.NoError(t, err)
	assert.Len(t, res.Suggestions, 1)
}

func TestLibrary_TeamSuggestionsEdgeCases(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.TeamSuggestions("  ", nil, 0)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))

	res, err := lib.TeamSuggestions("hmm", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Suggestions)
	assert.Equal(t, "general", res.TaskAnalysis.TaskType)
	assert.Equal(t, "simple", res.TaskAnalysis.Complexity)

	res, err = lib.TeamSuggestions("", []string{"Writing"}, 0)
	require.NoError(t, err)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, []string{"content_writer"}, ids(res.Suggestions[0].Workers))
}
