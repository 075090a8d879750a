package ioc

import (
	"sort"
	"strings"
)

// Discoverer selects the descriptors of a catalog that live under a scan
// path.
type Discoverer struct {
	Catalog Catalog
}

// NewDiscoverer returns a Discoverer over c, or over Registered when c is nil.
func NewDiscoverer(c Catalog) *Discoverer {
	if c == nil {
		c = Registered
	}
	return &Discoverer{Catalog: c}
}

// Discover returns the descriptors whose package equals, or is nested
// under, one of the comma-separated roots in scanPath. The result is
// sorted by bean name.
func (d *Discoverer) Discover(scanPath string) ([]Descriptor, error) {
	roots := splitScanPath(scanPath)
	if len(roots) == 0 {
		return nil, &DiscoveryError{Reason: "empty scan path"}
	}

	seen := make(map[string]bool)
	var out []Descriptor
	for _, desc := range d.Catalog.Descriptors() {
		if desc.Name == "" {
			return nil, &DiscoveryError{Reason: "descriptor without a name"}
		}
		if desc.New == nil {
			return nil, &DiscoveryError{Bean: desc.Name, Reason: "descriptor without a factory"}
		}
		if !inScope(desc.PackagePath(), roots) {
			continue
		}
		if seen[desc.Name] {
			return nil, &DiscoveryError{Bean: desc.Name, Reason: "duplicate bean name"}
		}
		seen[desc.Name] = true
		out = append(out, desc)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func splitScanPath(scanPath string) []string {
	var roots []string
	for _, r := range strings.Split(scanPath, ",") {
		r = strings.TrimSuffix(strings.TrimSpace(r), "/")
		if r != "" {
			roots = append(roots, r)
		}
	}
	return roots
}

func inScope(pkg string, roots []string) bool {
	for _, r := range roots {
		if pkg == r || strings.HasPrefix(pkg, r+"/") {
			return true
		}
	}
	return false
}
