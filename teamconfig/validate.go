package teamconfig

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the structural requirements a team runtime depends on.
// An empty team list is accepted; callers surface it as a warning.
func (c *HierarchicalConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Team.Name) == "" {
		errs = append(errs, errors.New("team.name is required"))
	}
	if c.Coordinator == nil {
		errs = append(errs, errors.New("coordinator section is required"))
	}

	teamNames := make(map[string]struct{}, len(c.Teams))
	workerNames := make(map[string]string)
	for i, t := range c.Teams {
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, fmt.Errorf("teams[%d].name is required", i))
			continue
		}
		if _, dup := teamNames[t.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate team name %q", t.Name))
		}
		teamNames[t.Name] = struct{}{}

		for j, w := range t.Workers {
			if strings.TrimSpace(w.Name) == "" {
				errs = append(errs, fmt.Errorf("teams[%d].workers[%d].name is required", i, j))
				continue
			}
			if owner, dup := workerNames[w.Name]; dup {
				errs = append(errs, fmt.Errorf("duplicate worker name %q in teams %q and %q", w.Name, owner, t.Name))
				continue
			}
			workerNames[w.Name] = t.Name
			if w.Priority < 0 {
				errs = append(errs, fmt.Errorf("worker %q: priority must be >= 0", w.Name))
			}
			if w.MaxWorkload < 0 {
				errs = append(errs, fmt.Errorf("worker %q: max_workload must be >= 0", w.Name))
			}
		}
	}

	return errors.Join(errs...)
}

// Validate checks a single agent definition.
func (c *AgentConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Agent.Name) == "" {
		errs = append(errs, errors.New("agent.name is required"))
	}
	if strings.TrimSpace(c.Prompts.SystemPrompt.Template) == "" {
		errs = append(errs, errors.New("prompts.system_prompt.template is required"))
	}
	return errors.Join(errs...)
}
