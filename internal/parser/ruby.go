package parser

import (
	"fmt"
	"os"
	"regexp"
)

// VagrantProvisioner is one provisioner block in a Vagrantfile.
type VagrantProvisioner struct {
	Type     string
	Playbook string
}

// VagrantFile is the typed parse result for a Vagrantfile.
type VagrantFile struct {
	Boxes        []string
	Hostnames    []string
	Networks     []string
	Machines     []string
	Provisioners []VagrantProvisioner
}

var (
	vagrantBoxRe       = regexp.MustCompile(`\.vm\.box\s*=\s*["']([^"']+)["']`)
	vagrantHostnameRe  = regexp.MustCompile(`\.vm\.hostname\s*=\s*["']([^"']+)["']`)
	vagrantNetworkRe   = regexp.MustCompile(`\.vm\.network\s+["']([^"']+)["']`)
	vagrantDefineRe    = regexp.MustCompile(`\.vm\.define\s+[:"']([A-Za-z0-9_-]+)`)
	vagrantProvisionRe = regexp.MustCompile(`\.vm\.provision\s+[:"']([A-Za-z0-9_-]+)`)
	vagrantPlaybookRe  = regexp.MustCompile(`\.playbook\s*=\s*["']([^"']+)["']`)
)

// ParseRuby scans a Ruby file. Only Vagrantfiles produce meaningful
// metadata; other Ruby files parse to an empty structure.
func ParseRuby(path string) *Result {
	r := newResult(path, "ruby")

	data, err := os.ReadFile(path)
	if err != nil {
		return r.addError(fmt.Errorf("failed to read file: %w", err))
	}
	content := string(data)

	vf := &VagrantFile{
		Boxes:     uniqueMatches(vagrantBoxRe, content),
		Hostnames: uniqueMatches(vagrantHostnameRe, content),
		Networks:  uniqueMatches(vagrantNetworkRe, content),
		Machines:  uniqueMatches(vagrantDefineRe, content),
	}

	playbooks := uniqueMatches(vagrantPlaybookRe, content)
	for _, ptype := range uniqueMatches(vagrantProvisionRe, content) {
		prov := VagrantProvisioner{Type: ptype}
		if ptype == "ansible" && len(playbooks) > 0 {
			prov.Playbook = playbooks[0]
		}
		vf.Provisioners = append(vf.Provisioners, prov)
	}

	r.Root = vf
	r.Metadata["is_vagrantfile"] = len(vf.Boxes) > 0 || len(vf.Provisioners) > 0 || len(vf.Machines) > 0
	return r
}
