package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pjavanrood/csrbench/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
datasets:
  - edges: data/small.txt
backends:
  - kind: sequential
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "order", cfg.Traversal.Output)
	assert.Equal(t, 1, cfg.Runner.Trials)
	assert.Equal(t, 4, cfg.Runner.GraphCacheSize)
	assert.Equal(t, CompareAuto, cfg.Runner.Compare)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, util.LogLevelInfo, cfg.GetLogLevel())

	ds := cfg.Datasets[0]
	assert.Equal(t, "data/small.txt", ds.Name)
	require.NotNil(t, ds.Source)
	assert.Equal(t, DefaultSource, *ds.Source)

	assert.Equal(t, KindSequential, cfg.Backends[0].Name)
}

func TestParseBackendDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
datasets:
  - name: small
    edges: data/small.txt
    source: 0
backends:
  - name: omp
    kind: shared_memory
  - name: mpi
    kind: distributed
  - name: cluster
    kind: distributed
    transport: tcp
    partitioning: range
    peers:
      - {id: 1, host: localhost, port: 9102}
      - {id: 0, host: localhost, port: 9101}
  - kind: accelerator
`))
	require.NoError(t, err)

	assert.Equal(t, 0, *cfg.Datasets[0].Source)

	omp, err := cfg.GetBackendByName("omp")
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), omp.Workers)

	mpi, err := cfg.GetBackendByName("mpi")
	require.NoError(t, err)
	assert.Equal(t, "inprocess", mpi.Transport)
	assert.Equal(t, 4, mpi.Partitions)
	assert.Equal(t, "hash", mpi.Partitioning)

	cluster, err := cfg.GetBackendByName("cluster")
	require.NoError(t, err)
	assert.Equal(t, 2, cluster.Partitions)
	assert.Equal(t, "localhost:9102", cluster.Peers[0].GetAddress())

	acc, err := cfg.GetBackendByName(KindAccelerator)
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), acc.Blocks)
	assert.Equal(t, 128, acc.ThreadsPerBlock)

	_, err = cfg.GetBackendByName("missing")
	assert.Error(t, err)
	_, err = cfg.GetDatasetByName("small")
	assert.NoError(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]string{
		"no datasets": `
backends:
  - kind: sequential
`,
		"no backends": `
datasets:
  - edges: a.txt
`,
		"bad output": `
traversal:
  output: parent
` + minimal,
		"bad compare": `
runner:
  compare: fuzzy
` + minimal,
		"negative trials": `
runner:
  trials: -1
` + minimal,
		"unknown kind": `
datasets:
  - edges: a.txt
backends:
  - kind: fpga
`,
		"duplicate backend": `
datasets:
  - edges: a.txt
backends:
  - kind: sequential
  - kind: sequential
`,
		"tcp without peers": `
datasets:
  - edges: a.txt
backends:
  - kind: distributed
    transport: tcp
`,
		"bad partitioning": `
datasets:
  - edges: a.txt
backends:
  - kind: distributed
    partitioning: metis
`,
		"bad log level": `
logging:
  level: LOUD
` + minimal,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Backends, 1)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShippedConfigFilesExist(t *testing.T) {
	root := filepath.Join("..", "..")
	cfg, err := LoadConfig(filepath.Join(root, "config.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Datasets)

	for _, ds := range cfg.Datasets {
		assert.FileExists(t, filepath.Join(root, ds.Edges), "dataset %s", ds.Name)
		if ds.Reference != "" {
			assert.FileExists(t, filepath.Join(root, ds.Reference), "dataset %s", ds.Name)
		}
	}
}
