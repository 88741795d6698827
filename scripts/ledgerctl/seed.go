package main

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/carson-networks/ledger-rules/internal/matcher"
	"github.com/carson-networks/ledger-rules/internal/storage/rule"
)

type seedFile struct {
	Rules []seedRule `yaml:"rules"`
}

type seedRule struct {
	Name     string `yaml:"name"`
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    string `yaml:"value"`
	Category string `yaml:"category"`
	Flag     string `yaml:"flag"`
	Priority int    `yaml:"priority"`
	Active   *bool  `yaml:"active"`
}

// parseSeedRules reads a rule seed file and validates every entry before
// any is written.
func parseSeedRules(r io.Reader) ([]rule.RuleCreate, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode seed file")
	}

	creates := make([]rule.RuleCreate, 0, len(file.Rules))
	for i, s := range file.Rules {
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		create := rule.RuleCreate{
			Name:     s.Name,
			Field:    rule.Field(s.Field),
			Operator: rule.Operator(s.Operator),
			Value:    s.Value,
			Category: s.Category,
			Flag:     s.Flag,
			Priority: s.Priority,
			Active:   active,
		}
		if create.Name == "" {
			create.Name = s.Value
		}
		candidate := rule.Rule{
			Name:     create.Name,
			Field:    create.Field,
			Operator: create.Operator,
			Value:    create.Value,
			Category: create.Category,
			Flag:     create.Flag,
		}
		if err := matcher.Validate(&candidate); err != nil {
			return nil, errors.Wrapf(err, "rule %d (%s)", i+1, create.Name)
		}
		creates = append(creates, create)
	}
	return creates, nil
}
