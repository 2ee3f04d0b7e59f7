package rule

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// rulesGlob locates rule documents inside one skill directory.
const rulesGlob = "rules/*.md"

// LoadResult carries the parsed rules of one skill together with the
// parse failures encountered. Failed files are reported and skipped;
// they never abort the rest of the skill.
type LoadResult struct {
	Skill  string
	Rules  []*Rule
	Failed []*ParseError
}

// ListSkills returns the skill names under the skills directory: every
// subdirectory containing at least one rule document.
func ListSkills(skillsDir string) ([]string, error) {
	entries, err := os.ReadDir(skillsDir)
	if err != nil {
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	var skills []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		matches, err := doublestar.FilepathGlob(filepath.Join(skillsDir, e.Name(), rulesGlob))
		if err != nil {
			return nil, fmt.Errorf("glob skill %s: %w", e.Name(), err)
		}
		if len(matches) > 0 {
			skills = append(skills, e.Name())
		}
	}
	sort.Strings(skills)
	return skills, nil
}

// LoadSkill parses every rule document of one skill. Discovery order is
// lexicographic by filename, which downstream ordering treats as the
// stable original order.
func LoadSkill(skillsDir, skill string) (*LoadResult, error) {
	pattern := filepath.Join(skillsDir, skill, rulesGlob)
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("skill %s has no rule documents under %s", skill, pattern)
	}
	sort.Strings(matches)

	result := &LoadResult{Skill: skill}
	for _, path := range matches {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		r, err := Parse(path, content)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				result.Failed = append(result.Failed, perr)
				continue
			}
			return nil, err
		}
		result.Rules = append(result.Rules, r)
	}
	return result, nil
}
