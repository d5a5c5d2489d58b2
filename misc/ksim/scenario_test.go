package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ukern/src/config"
	"ukern/src/proc"
	"ukern/src/util"
)

func runScenario(t *testing.T, name string, data []byte) (*Result_t, string) {
	sc, err := Parse_scenario(name, data, config.Default())
	require.NoError(t, err)
	var out bytes.Buffer
	res, err := sc.Run(&out, hclog.NewNullLogger())
	require.NoError(t, err)
	return res, out.String()
}

func TestTestdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/*.txtar")
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, p := range paths {
		t.Run(filepath.Base(p), func(t *testing.T) {
			data, err := os.ReadFile(p)
			require.NoError(t, err)
			res, _ := runScenario(t, filepath.Base(p), data)
			assert.Empty(t, res.Failures)
			require.NotEmpty(t, res.Tasks)
			assert.Equal(t, proc.Exited, res.Tasks[0].Status)
		})
	}
}

func TestTelemetryScenario(t *testing.T) {
	data, err := os.ReadFile("testdata/telemetry.txtar")
	require.NoError(t, err)
	res, out := runScenario(t, "telemetry", data)
	assert.Equal(t, "hello from init\n", out)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, 3, res.Tasks[0].Exitcode)
	assert.Contains(t, res.Kstats, "#Nfaults: 2")

	// both advances happen in user space; the manual clock does not
	// move during a call
	ru := res.Tasks[0].Rusage
	require.Len(t, ru, 32)
	assert.Equal(t, 1, util.Readn(ru, 8, 0))
	assert.Equal(t, 520000, util.Readn(ru, 8, 8))
	assert.Zero(t, util.Readn(ru, 8, 16))
	assert.Zero(t, util.Readn(ru, 8, 24))
	assert.Equal(t, ru, res.Rusage)
	assert.Zero(t, res.Nready)

	var rep bytes.Buffer
	report(message.NewPrinter(language.English), &rep, res)
	assert.Contains(t, rep.String(), "0 ready, user 1.520000s sys 0.000000s")
	assert.Contains(t, rep.String(), "exit 3, 13 syscalls, user 1.520000s")
}

func TestReadyAndTotals(t *testing.T) {
	res, _ := runScenario(t, "two", []byte(`-- config.json --
{"clock": "manual"}
-- script --
spawn a
spawn b
advance 2ms
yield
advance 3ms
yield
`))
	assert.Empty(t, res.Failures)
	require.Len(t, res.Tasks, 2)
	assert.Equal(t, 1, res.Nready)
	assert.Equal(t, 2000, util.Readn(res.Tasks[0].Rusage, 8, 8))
	assert.Equal(t, 3000, util.Readn(res.Tasks[1].Rusage, 8, 8))
	assert.Equal(t, 5000, util.Readn(res.Rusage, 8, 8))
}

func TestFailedExpectation(t *testing.T) {
	res, _ := runScenario(t, "bad", []byte(`-- script --
spawn a
mmap 0x1000 4096 0
expect 0
sbrk 0
expect 0x40000000
`))
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0], "got -1, want 0")
	assert.Equal(t, 2, res.Ncalls)
}

func TestRawSyscallNumbers(t *testing.T) {
	res, _ := runScenario(t, "raw", []byte(`-- script --
spawn a
sys_124
expect 0
sys_7 1 2 3
expect -1
`))
	assert.Empty(t, res.Failures)
	assert.Equal(t, uint32(1), res.Tasks[0].Calls.Calls[7])
}

func TestScenarioErrors(t *testing.T) {
	base := config.Default()
	bad := []string{
		"no files here\n",
		"-- script --\nspawn a\n-- extra --\n",
		"-- config.json --\n{\"clock\": 3}\n-- script --\n",
	}
	for _, in := range bad {
		_, err := Parse_scenario("x", []byte(in), base)
		assert.Error(t, err, in)
	}

	runerr := []string{
		"-- script --\nmmap 0x1000 4096 3\n",
		"-- script --\nspawn a\nfrobnicate\n",
		"-- script --\nspawn a\nmmap 1 2 3 4\n",
		"-- script --\nspawn a\nexpect lots\n",
		"-- script --\nspawn a\nadvance 1s\n",
	}
	for _, in := range runerr {
		sc, err := Parse_scenario("x", []byte(in), base)
		require.NoError(t, err, in)
		var out bytes.Buffer
		_, err = sc.Run(&out, hclog.NewNullLogger())
		assert.Error(t, err, in)
	}
}

func TestRunWritesProfile(t *testing.T) {
	dir := t.TempDir()
	prof := filepath.Join(dir, "calls.pb.gz")
	var out bytes.Buffer
	require.NoError(t, run("ksim.json", prof, "error", []string{"testdata/mmap.txtar"}, &out))
	assert.Contains(t, out.String(), "ok   mmap:")

	f, err := os.Open(prof)
	require.NoError(t, err)
	defer f.Close()
	p, err := profile.Parse(f)
	require.NoError(t, err)
	require.NotEmpty(t, p.Sample)
	assert.Equal(t, []string{"mmap/init"}, p.Sample[0].Label["task"])
}

func TestRunReportsFailures(t *testing.T) {
	dir := t.TempDir()
	sc := filepath.Join(dir, "fails.txtar")
	require.NoError(t, os.WriteFile(sc, []byte("-- script --\nspawn a\nyield\nexpect 1\n"), 0o644))
	var out bytes.Buffer
	err := run("", "", "error", []string{sc}, &out)
	assert.ErrorContains(t, err, "1: expectations failed")
	assert.Contains(t, out.String(), "FAIL fails:")
}
