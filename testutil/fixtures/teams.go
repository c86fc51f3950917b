// Package fixtures 提供测试用的团队与 Agent 配置样例。
package fixtures

// ResearchTeamYAML 两个团队三个 worker 的层级配置
const ResearchTeamYAML = `team:
  name: research_team
  description: Research and writing team
  version: "1.0"
coordinator:
  name: research_coordinator
  llm:
    provider: echo
    model: gpt-4o-mini
  prompts:
    system_prompt:
      template: |
        You coordinate the research and writing teams.
        Route each task to the best team and delegate with a clear brief.
  routing:
    strategy: hybrid
teams:
  - name: research
    description: Finds and analyzes information
    supervisor:
      name: research_supervisor
      llm:
        provider: echo
        model: gpt-4o-mini
      prompts:
        system_prompt:
          template: |
            You supervise web_researcher (web_search, research) and
            data_analyst (analysis, data). Select the worker and delegate.
    workers:
      - name: web_researcher
        role: researcher
        description: Searches the web for sources
        capabilities: [web_search, research]
        keywords: [search, find, lookup]
        priority: 2
      - name: data_analyst
        role: analyst
        description: Analyzes datasets and statistics
        capabilities: [analysis, data]
        keywords: [analyze, statistics]
  - name: writing
    description: Produces written content
    supervisor:
      name: writing_supervisor
      prompts:
        system_prompt:
          template: |
            You supervise content_writer (writing). Assign writing tasks to the worker.
    workers:
      - name: content_writer
        role: writer
        description: Writes articles and reports
        capabilities: [writing]
        keywords: [write, draft, article]
`

// ResearchTeamJSON 与 ResearchTeamYAML 同结构的精简 JSON 版本
const ResearchTeamJSON = `{
  "team": {"name": "json_team", "description": "JSON configured team"},
  "coordinator": {"name": "json_coordinator", "llm": {"provider": "echo", "model": "gpt-4o-mini"}},
  "teams": [
    {
      "name": "analysis",
      "supervisor": {"name": "analysis_supervisor"},
      "workers": [
        {"name": "analyst", "capabilities": ["analysis"], "priority": 1, "max_workload": 5}
      ]
    }
  ]
}`

// WriterAgentYAML 单个 Agent 配置
const WriterAgentYAML = `agent:
  name: technical_writer
  description: Writes technical documentation and reports
  version: "1.0"
llm:
  provider: echo
  model: gpt-4o-mini
prompts:
  system_prompt:
    template: You are a technical writer. Write clear documentation.
tools:
  built_in: [file_reader]
  custom:
    - name: style_checker
      description: Checks writing style
specialization:
  capabilities: [writing, documentation]
  keywords: [write, document]
  priority: 2
`

// CoordinatorAgentYAML 具备协调能力的单个 Agent 配置
const CoordinatorAgentYAML = `agent:
  name: project_coordinator
  description: Coordinates and orchestrates multiple teams, manages delegation
prompts:
  system_prompt:
    template: You coordinate teams, route and delegate tasks to the right team.
specialization:
  capabilities: [coordination, planning]
`

// ResearcherAgentYAML 研究型单个 Agent 配置
const ResearcherAgentYAML = `agent:
  name: web_researcher
  description: Researches topics on the web and gathers information
prompts:
  system_prompt:
    template: You search the web, find sources and investigate topics.
tools:
  built_in: [web_search]
specialization:
  capabilities: [research, web_search]
  keywords: [search, find]
`
