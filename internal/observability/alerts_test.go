package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestAlertRulesReferenceRegisteredMetrics(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "storefront-admin.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var spec alertSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}
	if len(spec.Groups) != 1 || spec.Groups[0].Name != "storefront-admin" {
		t.Fatalf("expected a single storefront-admin group, got %+v", spec.Groups)
	}

	metrics := NewMetrics()
	metrics.FetchCompleted("zones", "failed", 0)
	metrics.BulkTransition("zones", 0, 0)
	families, err := metrics.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	registered := make([]string, 0, len(families))
	for _, f := range families {
		registered = append(registered, f.GetName())
	}

	expected := map[string]string{
		"ListFetchFailures":  "critical",
		"ListFetchSlow":      "warning",
		"BulkActionsFailing": "warning",
	}
	rules := spec.Groups[0].Rules
	if len(rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(rules))
	}
	for _, rule := range rules {
		severity, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if rule.Labels["severity"] != severity {
			t.Fatalf("rule %s severity mismatch: %s", rule.Alert, rule.Labels["severity"])
		}
		if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" {
			t.Fatalf("rule %s must include summary and description annotations", rule.Alert)
		}
		if rule.For == "" {
			t.Fatalf("rule %s must define a hold duration", rule.Alert)
		}
		found := false
		for _, name := range registered {
			if strings.Contains(rule.Expr, name) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("rule %s does not reference a registered metric: %s", rule.Alert, rule.Expr)
		}
	}
}
