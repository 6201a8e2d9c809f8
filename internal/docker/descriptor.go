package docker

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Descriptor is the subset of a compose file deployctl inspects.
type Descriptor struct {
	Services map[string]ServiceSpec `yaml:"services"`
}

type ServiceSpec struct {
	Image string `yaml:"image"`
}

func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file '%s': %w", path, err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse compose file '%s': %w", path, err)
	}
	if len(d.Services) == 0 {
		return nil, fmt.Errorf("compose file '%s' declares no services", path)
	}
	return &d, nil
}

func (d *Descriptor) HasService(name string) bool {
	_, ok := d.Services[name]
	return ok
}

func (d *Descriptor) ServiceNames() []string {
	names := make([]string, 0, len(d.Services))
	for name := range d.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ImageUsesVariable reports whether the image of service interpolates key,
// as in "registry/app:${IMAGE_TAG}".
func (d *Descriptor) ImageUsesVariable(service, key string) bool {
	svc, ok := d.Services[service]
	if !ok {
		return false
	}
	return strings.Contains(svc.Image, "${"+key+"}") ||
		strings.Contains(svc.Image, "${"+key+":") ||
		strings.Contains(svc.Image, "$"+key)
}
