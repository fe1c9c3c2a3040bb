package php

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	config := &Config{}

	assert.Equal(t, "php", config.Language())
	assert.Contains(t, config.Extensions(), ".php")
	assert.NotNil(t, config.GetLanguage())
	assert.Len(t, config.TemplateWrappers(), 3)
}

func TestParseSource(t *testing.T) {
	p := New()

	tree, err := p.Parse(context.Background(), []byte("<?php\n// greet\necho strlen($name);\n"))
	require.NoError(t, err)
	assert.Equal(t, "program", tree.Root.Kind)
	assert.False(t, tree.HasErrors())
	assert.True(t, p.Ignorable("comment"))
}

func TestParseTemplate(t *testing.T) {
	p := New()
	tests := []struct {
		name     string
		template string
		kind     string
	}{
		{"call statement is unwrapped", "strlen($s);", "function_call_expression"},
		{"function definition", "function _sift_f() {}", "function_definition"},
		{"bare expression", "$a + $b", "binary_expression"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roots, err := p.ParseTemplate(context.Background(), tt.template)
			require.NoError(t, err)
			require.Len(t, roots, 1)
			assert.Equal(t, tt.kind, roots[0].Kind)
		})
	}
}

func TestParseTemplateRejectsGarbage(t *testing.T) {
	_, err := New().ParseTemplate(context.Background(), "function (")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not parse as php")
}
