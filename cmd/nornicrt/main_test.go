package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "../../pkg/graph/testdata/social.yaml"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml")))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "nornicrt v"+version)
}

func TestEval_Vertices(t *testing.T) {
	out, err := run(t, "eval", "--fixture", fixture, "--label", "Person",
		"-e", `{op: ">=", args: [{var: n, property: age}, {param: min}]}`,
		"--param", "min=18")
	require.NoError(t, err)
	assert.Equal(t, "Person/alice\nPerson/carol\n", out)
}

func TestEval_Badger(t *testing.T) {
	out, err := run(t, "eval", "--fixture", fixture, "--badger-in-memory", "--stats",
		"-e", `{op: "IS NOT NULL", args: [{var: n, property: born}]}`, "--label", "Person")
	require.NoError(t, err)
	assert.Contains(t, out, "Person/alice\nPerson/carol\n")
	assert.Contains(t, out, "2/3 matched")
}

func TestEval_Edges(t *testing.T) {
	out, err := run(t, "eval", "--fixture", fixture, "--edge", "Person:works_at:Company",
		"-e", `{op: "=", args: [{var: r, property: role}, {literal: manager}]}`)
	require.NoError(t, err)
	assert.Equal(t, "carol -[works_at]-> initech\n", out)
}

func TestEncodeThenEvalWire(t *testing.T) {
	wire := filepath.Join(t.TempDir(), "adults.bin")
	_, err := run(t, "encode", "-o", wire,
		"-e", `{op: ">", args: [{var: n, property: age}, {literal: 18}]}`)
	require.NoError(t, err)
	info, err := os.Stat(wire)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	out, err := run(t, "eval", "--fixture", fixture, "--label", "Person", "-f", wire)
	require.NoError(t, err)
	assert.Equal(t, "Person/alice\nPerson/carol\n", out)
}

func TestInspect(t *testing.T) {
	out, err := run(t, "inspect", "--fixture", fixture,
		"-e", `{op: ">", args: [{var: n, property: age}, {literal: 18}]}`)
	require.NoError(t, err)
	assert.Contains(t, out, "expression: (n.age > 18)")
	assert.Contains(t, out, "entry:      VertexVar")
	assert.Contains(t, out, "context:    false")
}

func TestEval_Errors(t *testing.T) {
	_, err := run(t, "eval", "--fixture", fixture)
	assert.Error(t, err)

	_, err = run(t, "eval", "--fixture", fixture, "-e", `{var: n, property: nickname}`)
	assert.Error(t, err)

	_, err = run(t, "eval", "--fixture", fixture, "-e", `{literal: true}`, "--param", "oops")
	assert.Error(t, err)

	_, err = run(t, "eval", "--fixture", fixture, "-e", `{literal: true}`, "--edge", "Person:knows")
	assert.Error(t, err)

	_, err = run(t, "inspect", "--fixture", fixture, "-e", `{literal: true}`, "--as", "row")
	assert.Error(t, err)
}
