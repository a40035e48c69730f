package providers

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// Family names a provider wire format
type Family string

// Descriptor is the static description of one supported provider
type Descriptor struct {
	ID       string            `yaml:"id" json:"id"`
	Name     string            `yaml:"name" json:"name"`
	Model    string            `yaml:"model" json:"model"`
	Endpoint string            `yaml:"endpoint" json:"-"`
	Family   Family            `yaml:"family" json:"-"`
	Headers  map[string]string `yaml:"headers,omitempty" json:"-"`
}

type catalogFile struct {
	Providers []Descriptor `yaml:"providers"`
}

// BuiltinCatalog returns the descriptors shipped with the binary, in display order
func BuiltinCatalog() ([]Descriptor, error) {
	return ParseCatalog(builtinCatalog)
}

// ParseCatalog decodes a YAML provider catalog
func ParseCatalog(data []byte) ([]Descriptor, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse provider catalog: %w", err)
	}
	if len(file.Providers) == 0 {
		return nil, fmt.Errorf("provider catalog is empty")
	}
	return file.Providers, nil
}

func (d Descriptor) validate() error {
	switch {
	case d.ID == "":
		return fmt.Errorf("provider id is required")
	case d.Name == "":
		return fmt.Errorf("provider %s: name is required", d.ID)
	case d.Model == "":
		return fmt.Errorf("provider %s: model is required", d.ID)
	case d.Endpoint == "":
		return fmt.Errorf("provider %s: endpoint is required", d.ID)
	case d.Family == "":
		return fmt.Errorf("provider %s: family is required", d.ID)
	}
	return nil
}
