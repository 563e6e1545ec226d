package extract

import (
	"os"
	"path/filepath"
)

// Detection is the result of repo-type classification.
type Detection struct {
	Profile    string
	Confidence float64
	Indicators []string
}

type indicatorCheck struct {
	name  string
	found func(root string) bool
}

func fileExists(root, name string) bool {
	info, err := os.Stat(filepath.Join(root, name))
	return err == nil && !info.IsDir()
}

func dirExists(root, name string) bool {
	info, err := os.Stat(filepath.Join(root, name))
	return err == nil && info.IsDir()
}

var ansibleIndicators = []indicatorCheck{
	{"ansible.cfg", func(r string) bool { return fileExists(r, "ansible.cfg") }},
	{"playbooks/", func(r string) bool { return dirExists(r, "playbooks") }},
	{"roles/", func(r string) bool { return dirExists(r, "roles") }},
	{"inventory/", func(r string) bool { return dirExists(r, "inventory") }},
	{"group_vars/", func(r string) bool { return dirExists(r, "group_vars") }},
	{"host_vars/", func(r string) bool { return dirExists(r, "host_vars") }},
	{".ansible/", func(r string) bool { return dirExists(r, ".ansible") }},
	{"site.yml", func(r string) bool { return fileExists(r, "site.yml") || fileExists(r, "site.yaml") }},
	{"tasks/+handlers/", func(r string) bool { return dirExists(r, "tasks") && dirExists(r, "handlers") }},
}

var pythonIndicators = []indicatorCheck{
	{"pyproject.toml", func(r string) bool { return fileExists(r, "pyproject.toml") }},
	{"setup.py", func(r string) bool { return fileExists(r, "setup.py") }},
	{"setup.cfg", func(r string) bool { return fileExists(r, "setup.cfg") }},
	{"requirements.txt", func(r string) bool { return fileExists(r, "requirements.txt") }},
	{"__init__.py", hasInitPy},
}

// hasInitPy looks for a package marker at the top level or under src/.
func hasInitPy(root string) bool {
	if fileExists(root, "__init__.py") {
		return true
	}
	matches, _ := filepath.Glob(filepath.Join(root, "src", "*", "__init__.py"))
	if len(matches) > 0 {
		return true
	}
	matches, _ = filepath.Glob(filepath.Join(root, "*", "__init__.py"))
	return len(matches) > 0
}

// Detect classifies a repository root. Rules are ordered; the first
// profile that matches wins. With no match the generic profile is
// returned at confidence 0.5.
func Detect(root string) Detection {
	if d, ok := score("ansible", root, ansibleIndicators, 3); ok {
		return d
	}
	if d, ok := score("python", root, pythonIndicators, 2); ok {
		return d
	}
	return Detection{Profile: "generic", Confidence: 0.5}
}

func score(profile, root string, checks []indicatorCheck, target float64) (Detection, bool) {
	var hits []string
	for _, c := range checks {
		if c.found(root) {
			hits = append(hits, c.name)
		}
	}
	if len(hits) == 0 {
		return Detection{}, false
	}
	confidence := float64(len(hits)) / target
	if confidence > 1.0 {
		confidence = 1.0
	}
	return Detection{Profile: profile, Confidence: confidence, Indicators: hits}, true
}
