package compiler_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/espalier"
	"github.com/verdantlabs/espalier/internal/compiler"
	"github.com/verdantlabs/espalier/pkg/domain"
)

func TestParseFile(t *testing.T) {
	def, err := compiler.ParseFile(filepath.Join("testdata", "icp.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "icp-discovery", def.ID)
	assert.Equal(t, "Ideal Customer Profile Discovery", def.Title)
	require.Len(t, def.Steps, 3)

	company := def.Steps[0]
	assert.Equal(t, "company", company.ID)
	assert.False(t, company.Optional)
	assert.Equal(t, []domain.FieldPath{"company.segment", "company.size"}, company.Inputs)

	budget := def.Steps[2]
	assert.True(t, budget.Optional)

	require.Len(t, def.Rules, 1)
	assert.Equal(t, domain.FieldPath("company.segment"), def.Rules[0].Trigger)
	assert.Equal(t, domain.FieldPath("company.size"), def.Rules[0].Target)
}

func TestParsedDefinitionCompiles(t *testing.T) {
	def, err := compiler.ParseFile(filepath.Join("testdata", "icp.yaml"))
	require.NoError(t, err)

	_, err = espalier.New(def)
	assert.NoError(t, err)
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "not yaml",
			yaml: "{{{",
			want: "invalid YAML",
		},
		{
			name: "missing id",
			yaml: "title: x\nsteps:\n  - id: a\n",
			want: "missing 'id'",
		},
		{
			name: "no steps",
			yaml: "id: empty\n",
			want: "has no steps",
		},
		{
			name: "step missing id",
			yaml: "id: w\nsteps:\n  - prompt: hi\n",
			want: "step 0 is missing 'id'",
		},
		{
			name: "rule missing target",
			yaml: "id: w\nsteps:\n  - id: a\nrules:\n  - trigger: x\n",
			want: "'trigger' and 'target'",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := compiler.Parse(strings.NewReader(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
