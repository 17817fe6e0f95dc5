// Package chart loads chart-of-accounts templates used to bootstrap tenants.
package chart

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"khata/internal/domain"
)

//go:embed default_chart.yaml
var defaultChart []byte

// Template is a named list of accounts.
type Template struct {
	Name     string    `yaml:"name" validate:"required"`
	Accounts []Account `yaml:"accounts" validate:"required,min=1,dive"`
}

// Account is one template entry. Role binds the account to an AccountMapping.
type Account struct {
	Code    string `yaml:"code" validate:"required,max=20"`
	Name    string `yaml:"name" validate:"required,max=200"`
	Type    string `yaml:"type" validate:"required,oneof=asset liability equity income expense"`
	SubType string `yaml:"sub_type"`
	Role    string `yaml:"role"`
}

var validate = validator.New()

// Default returns the embedded template.
func Default() (*Template, error) {
	return Parse(defaultChart)
}

// Load reads a template from path, or returns the embedded default when path
// is empty.
func Load(path string) (*Template, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chart template: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML template.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing chart template: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks field constraints plus code and role uniqueness.
func (t *Template) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: chart template: %v", domain.ErrInvalidInput, err)
	}
	codes := make(map[string]bool, len(t.Accounts))
	roles := make(map[domain.AccountRole]bool)
	for _, a := range t.Accounts {
		if codes[a.Code] {
			return fmt.Errorf("%w: chart template: duplicate code %s", domain.ErrInvalidInput, a.Code)
		}
		codes[a.Code] = true
		if a.Role == "" {
			continue
		}
		role := domain.AccountRole(a.Role)
		if !domain.ValidAccountRoles[role] {
			return fmt.Errorf("%w: chart template: unknown role %q", domain.ErrInvalidAccountRole, a.Role)
		}
		if roles[role] {
			return fmt.Errorf("%w: chart template: role %s bound twice", domain.ErrInvalidInput, a.Role)
		}
		roles[role] = true
	}
	return nil
}
