package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/Jlo00/colonyNetwork/pkg/contracts"
	"github.com/Jlo00/colonyNetwork/pkg/governance"
)

// SupportedSchemaVersions is the range of profile schema versions this build reads.
const SupportedSchemaVersions = ">= 1.0.0, < 2.0.0"

const profileSchemaURL = "https://colony.network/schemas/network-profile.schema.json"

//go:embed profile.schema.json
var profileSchema string

// NetworkProfile holds the network-wide settings a deployment can tune.
type NetworkProfile struct {
	SchemaVersion string           `yaml:"schema_version" json:"schema_version"`
	FeeInverse    uint64           `yaml:"fee_inverse" json:"fee_inverse"`
	MetaColony    MetaColonyConfig `yaml:"meta_colony" json:"meta_colony"`
	Mining        MiningConfig     `yaml:"mining" json:"mining"`
	Policy        PolicyConfig     `yaml:"policy" json:"policy"`
}

type MetaColonyConfig struct {
	Token contracts.TokenInfo `yaml:"token" json:"token"`
}

type MiningConfig struct {
	Stream string `yaml:"stream" json:"stream"`
}

// PolicyConfig optionally replaces the default signer table.
type PolicyConfig struct {
	Rules []governance.Rule `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// DefaultProfile returns the profile used when none is configured.
func DefaultProfile() *NetworkProfile {
	return &NetworkProfile{
		SchemaVersion: "1.0.0",
		FeeInverse:    100,
		MetaColony: MetaColonyConfig{Token: contracts.TokenInfo{
			Symbol:   "CLNY",
			Name:     "Colony Network Token",
			Decimals: 18,
		}},
		Mining: MiningConfig{Stream: "colony:mining:cycles"},
	}
}

// LoadProfile reads and validates a network profile file.
func LoadProfile(path string) (*NetworkProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", path, err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", path, err)
	}
	return p, nil
}

// ParseProfile validates YAML against the profile schema, checks the schema
// version, and fills unset fields from DefaultProfile.
func ParseProfile(data []byte) (*NetworkProfile, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	profile := DefaultProfile()
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := checkSchemaVersion(profile.SchemaVersion); err != nil {
		return nil, err
	}
	if len(profile.Policy.Rules) > 0 {
		if _, err := governance.NewPolicyTable(profile.Policy.Rules); err != nil {
			return nil, fmt.Errorf("policy: %w", err)
		}
	}
	return profile, nil
}

// PolicyTable compiles the profile's rules, or the default rules if none are set.
func (p *NetworkProfile) PolicyTable() (*governance.PolicyTable, error) {
	if len(p.Policy.Rules) == 0 {
		return governance.NewPolicyTable(governance.DefaultRules())
	}
	return governance.NewPolicyTable(p.Policy.Rules)
}

func validateDocument(doc interface{}) error {
	// Round-trip through JSON so the validator sees JSON types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("profile is not JSON-compatible: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var jsonDoc interface{}
	if err := dec.Decode(&jsonDoc); err != nil {
		return fmt.Errorf("profile is not JSON-compatible: %w", err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(profileSchemaURL, bytes.NewReader([]byte(profileSchema))); err != nil {
		return fmt.Errorf("profile schema load failed: %w", err)
	}
	schema, err := c.Compile(profileSchemaURL)
	if err != nil {
		return fmt.Errorf("profile schema compile failed: %w", err)
	}
	if err := schema.Validate(jsonDoc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func checkSchemaVersion(v string) error {
	version, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid schema_version %q: %w", v, err)
	}
	constraint, err := semver.NewConstraint(SupportedSchemaVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return fmt.Errorf("schema_version %s is outside supported range %s", version, SupportedSchemaVersions)
	}
	return nil
}
