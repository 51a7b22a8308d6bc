package snippet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v := NewValidator()
	t.Cleanup(v.Close)
	return v
}

func TestValidateCleanSnippets(t *testing.T) {
	v := newTestValidator(t)
	ctx := context.Background()

	cases := []struct {
		lang    string
		content string
	}{
		{"javascript", "function counter() {\n  let n = 0;\n  return () => n++;\n}\n"},
		{"javascript", "const add = (a, b) => a + b;\nexport default add;\n"},
		{"typescript", "interface User {\n  name: string;\n  age?: number;\n}\n"},
		{"tsx", "const App = () => <div>hello</div>;\nexport default App;\n"},
		{"go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"},
		{"python", "def greet(name):\n    return f\"hi {name}\"\n"},
		{"rust", "fn main() {\n    println!(\"hi\");\n}\n"},
		{"json", "{\"scripts\": {\"test\": \"jest\"}, \"private\": true}\n"},
		{"yaml", "name: ci\non:\n  push:\n    branches: [main]\n"},
	}
	for _, tc := range cases {
		t.Run(tc.lang, func(t *testing.T) {
			res, err := v.Validate(ctx, tc.lang, tc.content)
			require.NoError(t, err)
			assert.True(t, res.Checked, "expected a checker for %s", tc.lang)
			assert.Empty(t, res.Issues, "unexpected issues: %v", res.Issues)
			assert.True(t, res.Valid())
		})
	}
}

func TestValidateBrokenJavaScript(t *testing.T) {
	v := newTestValidator(t)

	res, err := v.Validate(context.Background(), "javascript", "const add = (a, b => a + b;\n")
	require.NoError(t, err)
	require.True(t, res.Checked)
	require.NotEmpty(t, res.Issues)
	assert.False(t, res.Valid())
	assert.Equal(t, 1, res.Issues[0].Line)
}

func TestValidateBrokenJSON(t *testing.T) {
	v := newTestValidator(t)

	res, err := v.Validate(context.Background(), "json", "{\n  \"a\": 1,\n}\n")
	require.NoError(t, err)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, 3, res.Issues[0].Line)
}

func TestValidateBrokenYAML(t *testing.T) {
	v := newTestValidator(t)

	res, err := v.Validate(context.Background(), "yaml", "deps: [react, redux\n")
	require.NoError(t, err)
	require.True(t, res.Checked)
	require.NotEmpty(t, res.Issues)
}

func TestValidateMultiDocYAML(t *testing.T) {
	v := newTestValidator(t)

	res, err := v.Validate(context.Background(), "yaml", "a: 1\n---\nb: 2\n")
	require.NoError(t, err)
	assert.True(t, res.Valid())
}

func TestValidateEmptyJSON(t *testing.T) {
	v := newTestValidator(t)

	res, err := v.Validate(context.Background(), "json", "\n")
	require.NoError(t, err)
	assert.True(t, res.Valid())
}

func TestValidateUnknownLanguage(t *testing.T) {
	v := newTestValidator(t)

	res, err := v.Validate(context.Background(), "brainfuck", "+++>---")
	require.NoError(t, err)
	if res.Checked {
		t.Fatal("expected no checker for unknown language")
	}
	if len(res.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", res.Issues)
	}
}

func TestValidateIssueCap(t *testing.T) {
	v := newTestValidator(t)

	// Every line is its own broken statement.
	src := "const a = ;\nconst b = ;\nconst c = ;\nconst d = ;\nconst e = ;\n"
	res, err := v.Validate(context.Background(), "javascript", src)
	require.NoError(t, err)
	require.True(t, res.Checked)
	assert.NotEmpty(t, res.Issues)
	assert.LessOrEqual(t, len(res.Issues), maxIssues)
}

func TestSupported(t *testing.T) {
	v := newTestValidator(t)

	for _, lang := range []string{"javascript", "typescript", "tsx", "go", "python", "rust", "json", "yaml"} {
		if !v.Supported(lang) {
			t.Errorf("Supported(%q) = false, want true", lang)
		}
	}
	for _, lang := range []string{"", "text", "brainfuck", "md"} {
		if v.Supported(lang) {
			t.Errorf("Supported(%q) = true, want false", lang)
		}
	}
}
