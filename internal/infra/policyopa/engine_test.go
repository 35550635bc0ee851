package policyopa

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ohmage/internal/domain"
)

const testPolicy = `package ohmage.admission

deny[entry] {
	input.route == "auth:logout"
	not input.token_from_parameter
	entry := {"code": "TOKEN_SOURCE", "message": "token must be sent as a parameter"}
}

deny[entry] {
	not input.authenticated
	not input.client_id
	entry := {"code": "ANONYMOUS", "message": "credentials required"}
}

result := {
	"allow": count(deny) == 0,
	"deny": [entry | deny[entry]],
}
`

func newEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "admission.rego"), []byte(testPolicy), 0o644); err != nil {
		t.Fatalf("write rego: %v", err)
	}
	engine, err := NewEngineFromBundlePath(context.Background(), dir)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func baseInput() domain.AdmissionPolicyInput {
	return domain.AdmissionPolicyInput{
		Route:              "auth:logout",
		Method:             "DELETE",
		Authenticated:      true,
		Username:           "alice",
		TokenFromParameter: true,
	}
}

func TestEngineAllowsBaseline(t *testing.T) {
	engine := newEngine(t)
	out, err := engine.Evaluate(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !out.Allow {
		t.Fatalf("expected allow, got %+v", out)
	}
	if len(out.Deny) != 0 {
		t.Fatalf("expected empty deny list, got %v", out.Deny)
	}
}

func TestEngineDeterministic(t *testing.T) {
	engine := newEngine(t)
	input := baseInput()

	first, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate first: %v", err)
	}
	second, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate second: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected deterministic policy evaluation")
	}
}

func TestEngineDenies(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name   string
		mutate func(input *domain.AdmissionPolicyInput)
		want   []string
	}{
		{
			name: "cookie token on logout",
			mutate: func(input *domain.AdmissionPolicyInput) {
				input.TokenFromParameter = false
			},
			want: []string{"TOKEN_SOURCE"},
		},
		{
			name: "anonymous",
			mutate: func(input *domain.AdmissionPolicyInput) {
				input.Authenticated = false
				input.Username = ""
				input.TokenFromParameter = true
			},
			want: []string{"ANONYMOUS"},
		},
		{
			name: "both, sorted by code",
			mutate: func(input *domain.AdmissionPolicyInput) {
				input.Authenticated = false
				input.Username = ""
				input.TokenFromParameter = false
			},
			want: []string{"ANONYMOUS", "TOKEN_SOURCE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := baseInput()
			tt.mutate(&input)
			out, err := engine.Evaluate(context.Background(), input)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if out.Allow {
				t.Fatal("expected deny")
			}
			got := make([]string, 0, len(out.Deny))
			for _, entry := range out.Deny {
				got = append(got, entry.Code)
			}
			if !reflect.DeepEqual(tt.want, got) {
				t.Fatalf("expected deny codes %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEngineRejectsTimeBuiltin(t *testing.T) {
	rejectBuiltin(t, "time.now_ns()")
}

func TestEngineRejectsHttpSend(t *testing.T) {
	rejectBuiltin(t, "http.send({\"method\": \"get\", \"url\": \"https://example.com\"})")
}

func TestEngineRejectsRand(t *testing.T) {
	rejectBuiltin(t, "rand.intn(\"admission\", 10)")
}

func rejectBuiltin(t *testing.T, expr string) {
	t.Helper()
	dir := t.TempDir()
	regoContent := `package ohmage.admission
result := {"allow": true, "deny": []} {
  ` + expr + `
}`
	if err := os.WriteFile(filepath.Join(dir, "admission.rego"), []byte(regoContent), 0o644); err != nil {
		t.Fatalf("write rego: %v", err)
	}

	if _, err := NewEngineFromBundlePath(context.Background(), dir); err == nil {
		t.Fatal("expected builtin to be rejected")
	}
}
