package dbt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultProjectName = "dbt_milkyway"
	DefaultTargetPath  = "target"
	projectFile        = "dbt_project.yml"
)

// ProjectInfo is the part of dbt_project.yml that decides where compiled
// artifacts land.
type ProjectInfo struct {
	Name       string `yaml:"name"`
	TargetPath string `yaml:"target-path"`
}

// LoadProjectInfo reads dir/dbt_project.yml. A missing file yields the defaults.
func LoadProjectInfo(dir string) (ProjectInfo, error) {
	info := ProjectInfo{Name: DefaultProjectName, TargetPath: DefaultTargetPath}

	data, err := os.ReadFile(filepath.Join(dir, projectFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return info, nil
		}
		return info, fmt.Errorf("read %s: %w", projectFile, err)
	}

	var parsed ProjectInfo
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return info, fmt.Errorf("parse %s: %w", projectFile, err)
	}
	if parsed.Name != "" {
		info.Name = parsed.Name
	}
	if parsed.TargetPath != "" {
		info.TargetPath = parsed.TargetPath
	}
	return info, nil
}

// CompiledPath is where dbt writes the compiled SQL of a root-project model.
func (p ProjectInfo) CompiledPath(projectDir, model string) string {
	target := p.TargetPath
	if !filepath.IsAbs(target) {
		target = filepath.Join(projectDir, target)
	}
	return filepath.Join(target, "compiled", p.Name, "models", model+".sql")
}
