package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/engine"
)

const jobYAML = `
name: ttbar-selection
log_level: DEBUG
cycles:
  - name: FirstCycle
    mode: distributed
    endpoint: inproc://4
    target_lumi: 1000
    output_dir: out
    postfix: .test
    properties:
      MinPt: 25000
      Labels: [tight, iso]
    datasets:
      - type: ttbar
        version: v1
        lumi: 250
        max_records: 100
        skip_records: 10
        cacheable: true
        files:
          - path: data/ttbar_1.cyc
            lumi: 125
          - path: /abs/ttbar_2.cyc
        streams:
          - name: Reco
            roles: [input, synchronized]
          - name: FirstCycleTree
            roles: [output]
        predicates:
          - stream: Reco
            expr: gt .El_N 0
      - type: data
        version: v1
        files:
          - path: data/data_1.cyc
        streams:
          - name: Reco
            roles: [input]
`

func TestParse(t *testing.T) {
	job, err := Parse([]byte(jobYAML), "/jobs")
	require.NoError(t, err)

	assert.Equal(t, "ttbar-selection", job.Name)
	assert.Equal(t, "DEBUG", job.LogLevel)
	require.Len(t, job.Cycles, 1)

	c := job.Cycles[0]
	assert.Equal(t, "FirstCycle", c.Name)
	assert.Equal(t, domain.RunModeDistributed, c.Mode)
	assert.Equal(t, "inproc://4", c.Endpoint)
	assert.Equal(t, 1000.0, c.TargetLumi)
	assert.Equal(t, filepath.Join("/jobs", "out"), c.OutputDir)
	assert.Equal(t, ".test", c.PostFix)

	assert.Equal(t, []domain.Property{
		{Name: "MinPt", Values: []string{"25000"}},
		{Name: "Labels", Values: []string{"tight", "iso"}},
	}, c.Properties)

	require.Len(t, c.Datasets, 2)
	ttbar := c.Datasets[0]
	assert.Equal(t, int64(100), ttbar.MaxRecords)
	assert.Equal(t, int64(10), ttbar.SkipRecords)
	assert.True(t, ttbar.Cacheable)
	assert.Equal(t, filepath.Join("/jobs", "data/ttbar_1.cyc"), ttbar.Files[0].Path)
	assert.Equal(t, "/abs/ttbar_2.cyc", ttbar.Files[1].Path)
	assert.Equal(t, 125.0, ttbar.Files[0].Lumi)
	assert.True(t, ttbar.Streams[0].Role.Has(domain.RoleInput))
	assert.True(t, ttbar.Streams[0].Role.Has(domain.RoleSynchronized))
	assert.True(t, ttbar.Streams[1].Role.Has(domain.RoleOutput))
	require.Len(t, ttbar.Predicates, 1)
	assert.Equal(t, "gt .El_N 0", ttbar.Predicates[0].Expr)

	// max_records не задан — обрабатываются все записи.
	assert.Equal(t, int64(-1), c.Datasets[1].MaxRecords)
}

func TestParse_Defaults(t *testing.T) {
	job, err := Parse([]byte(`
cycles:
  - name: FirstCycle
    datasets:
      - type: data
        files: [{path: a.cyc}]
`), "")
	require.NoError(t, err)

	c := job.Cycles[0]
	assert.Equal(t, domain.RunModeLocal, c.Mode)
	assert.Equal(t, ".", c.OutputDir)
	assert.Nil(t, c.Properties)
	assert.Equal(t, "a.cyc", c.Datasets[0].Files[0].Path)
	assert.Equal(t, int64(-1), c.Datasets[0].MaxRecords)
}

func TestParse_PropertyListForm(t *testing.T) {
	job, err := Parse([]byte(`
cycles:
  - name: FirstCycle
    properties:
      - name: MinPt
        values: ["30"]
    datasets:
      - type: data
        files: [{path: a.cyc}]
`), "")
	require.NoError(t, err)
	assert.Equal(t, []domain.Property{{Name: "MinPt", Values: []string{"30"}}}, job.Cycles[0].Properties)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"empty", "", ErrEmptyJob},
		{"no cycles", "name: x\n", engine.ErrNoCycles},
		{
			"nested property",
			"cycles:\n  - name: A\n    properties:\n      Bad: [[1, 2]]\n    datasets:\n      - type: data\n        files: [{path: a}]\n",
			ErrInvalidProperty,
		},
		{
			"scalar properties",
			"cycles:\n  - name: A\n    properties: 5\n    datasets:\n      - type: data\n        files: [{path: a}]\n",
			ErrInvalidProperty,
		},
		{
			"distributed without endpoint",
			"cycles:\n  - name: A\n    mode: DISTRIBUTED\n    datasets:\n      - type: data\n        files: [{path: a}]\n",
			engine.ErrMissingEndpoint,
		},
		{
			"unknown role",
			"cycles:\n  - name: A\n    datasets:\n      - type: data\n        files: [{path: a}]\n        streams: [{name: R, roles: [sideways]}]\n",
			engine.ErrUnknownRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("cycles:\n  - name: A\n    colour: blue\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(jobYAML), 0o644))

	job, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out"), job.Cycles[0].OutputDir)
	assert.Equal(t, filepath.Join(dir, "data/data_1.cyc"), job.Cycles[0].Datasets[1].Files[0].Path)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DB_URL", "postgresql://u:p@db:5432/c")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("WORKER_PORT", "9100")

	env := FromEnv()
	assert.Equal(t, "postgresql://u:p@db:5432/c", env.DatabaseURL)
	assert.Equal(t, "9100", env.WorkerPort)
	assert.NotEmpty(t, env.RabbitMQURL)
}
