package teamconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TemplateInfo summarizes one template file.
type TemplateInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Type         string    `json:"type"`
	FilePath     string    `json:"file_path"`
	CreatedAt    time.Time `json:"created_at"`
	TeamCount    int       `json:"team_count"`
	WorkerCount  int       `json:"worker_count"`
	Capabilities []string  `json:"capabilities"`
}

// ScanTemplates lists the *.yml and *.yaml templates of every directory.
// Missing directories are skipped; unreadable files are reported in the
// second return value and left out of the listing.
func ScanTemplates(dirs []string) ([]TemplateInfo, []error) {
	var (
		out  []TemplateInfo
		errs []error
		seen = make(map[string]struct{})
	)

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("read template dir %s: %w", dir, err))
			}
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !isYAMLFile(e.Name()) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			info, err := templateInfo(path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			// 同名模板以靠前目录为准
			if _, dup := seen[info.ID]; dup {
				continue
			}
			seen[info.ID] = struct{}{}
			out = append(out, *info)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, errs
}

// FindTemplate returns the path of <dir>/<id>.yml (or .yaml) in the first
// directory that has it.
func FindTemplate(dirs []string, id string) (string, bool) {
	if !validTemplateID(id) {
		return "", false
	}
	for _, dir := range dirs {
		for _, ext := range []string{".yml", ".yaml"} {
			path := filepath.Join(dir, id+ext)
			if fileExists(path) {
				return path, true
			}
		}
	}
	return "", false
}

// LoadTemplate returns the summary and raw data of a template.
func LoadTemplate(dirs []string, id string) (*TemplateInfo, map[string]any, error) {
	path, ok := FindTemplate(dirs, id)
	if !ok {
		return nil, nil, os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read template %s: %w", path, err)
	}
	raw, err := DecodeMap(data, FormatYAML)
	if err != nil {
		return nil, nil, fmt.Errorf("template %s: %w", path, err)
	}
	info, err := summarize(id, path, raw)
	if err != nil {
		return nil, nil, err
	}
	return info, raw, nil
}

func templateInfo(path string) (*TemplateInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	raw, err := DecodeMap(data, FormatYAML)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return summarize(id, path, raw)
}

func summarize(id, path string, raw map[string]any) (*TemplateInfo, error) {
	cfg, err := FromMap(raw)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}

	info := &TemplateInfo{
		ID:           id,
		Name:         cfg.Team.Name,
		Description:  cfg.Team.Description,
		Type:         DetectType(raw),
		FilePath:     path,
		TeamCount:    len(cfg.Teams),
		WorkerCount:  cfg.WorkerCount(),
		Capabilities: cfg.Capabilities(),
	}
	if info.Name == "" {
		info.Name = id
	}
	if info.Description == "" {
		info.Description = "No description"
	}
	if st, err := os.Stat(path); err == nil {
		info.CreatedAt = st.ModTime().UTC()
	}
	return info, nil
}

func validTemplateID(id string) bool {
	if id == "" || id == "." || strings.Contains(id, "..") {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

func isYAMLFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}
