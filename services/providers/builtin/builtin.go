// Package builtin assembles the provider registry from the embedded catalog
// and the adapter families compiled into the binary.
package builtin

import (
	"fmt"

	"github.com/Janghoon33/AI-Pick/config"
	"github.com/Janghoon33/AI-Pick/services/providers"
	"github.com/Janghoon33/AI-Pick/services/providers/anthropic"
	"github.com/Janghoon33/AI-Pick/services/providers/cohere"
	"github.com/Janghoon33/AI-Pick/services/providers/google"
	"github.com/Janghoon33/AI-Pick/services/providers/openai"
)

const refererHeader = "HTTP-Referer"

// Factories maps every compiled-in family to its adapter constructor
func Factories() map[providers.Family]providers.AdapterFactory {
	return map[providers.Family]providers.AdapterFactory{
		openai.Family:    openai.New,
		anthropic.Family: anthropic.New,
		google.Family:    google.New,
		cohere.Family:    cohere.New,
	}
}

// NewRegistry loads the embedded catalog and binds each entry to its adapter.
// Descriptors that send a Referer get the configured one.
func NewRegistry(cfg config.GatewayConfig) (*providers.Registry, error) {
	descriptors, err := providers.BuiltinCatalog()
	if err != nil {
		return nil, err
	}

	if cfg.Referer != "" {
		for i, d := range descriptors {
			if _, ok := d.Headers[refererHeader]; ok {
				headers := make(map[string]string, len(d.Headers))
				for k, v := range d.Headers {
					headers[k] = v
				}
				headers[refererHeader] = cfg.Referer
				descriptors[i].Headers = headers
			}
		}
	}

	registry, err := providers.NewRegistry(descriptors, Factories())
	if err != nil {
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}
	return registry, nil
}
