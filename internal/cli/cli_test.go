package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/Cyclone/internal/analysis"
	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/ntuple"
)

// execute запускает корневую команду и возвращает stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "ERROR")

	var stdout, stderr bytes.Buffer
	root := NewRootCmd("test", analysis.NewRegistry())
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeStream(t *testing.T, path, dir, name string, n int) {
	t.Helper()
	f, err := ntuple.Open(path, ntuple.ModeCreate)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	recs := make([]domain.Record, n)
	for i := range recs {
		recs[i] = domain.Record{"El_N": 1, "El_p_T": []float64{float64(1000 * (i + 1))}, "El_eta": []float64{0.2}}
	}
	if err := f.AppendRecords(dir, name, recs); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestLs_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.cyc")
	writeStream(t, path, "reco", "Reco", 3)

	out, err := execute(t, "ls", path, "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entries []entryView
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}

	var found bool
	for _, e := range entries {
		if e.Type == "stream" && strings.HasSuffix(e.Path, "Reco") {
			found = true
			if e.Records != 3 {
				t.Errorf("expected 3 records, got %d", e.Records)
			}
		}
	}
	if !found {
		t.Errorf("stream Reco not listed: %+v", entries)
	}
}

func TestLs_MissingFile(t *testing.T) {
	if _, err := execute(t, "ls", filepath.Join(t.TempDir(), "nope.cyc")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.cyc")
	b := filepath.Join(dir, "b.cyc")
	writeStream(t, a, "", "Reco", 2)
	writeStream(t, b, "", "Reco", 3)
	merged := filepath.Join(dir, "merged.cyc")

	if _, err := execute(t, "merge", "-o", merged, a, b); err != nil {
		t.Fatalf("merge: %v", err)
	}

	f, err := ntuple.Open(merged, ntuple.ModeRead)
	if err != nil {
		t.Fatalf("open merged: %v", err)
	}
	defer f.Close()
	n, err := f.StreamLen("", "Reco")
	if err != nil {
		t.Fatalf("stream len: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 records, got %d", n)
	}
}

func TestMerge_RequiresOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.cyc")
	writeStream(t, path, "", "Reco", 1)

	if _, err := execute(t, "merge", path); err == nil {
		t.Error("expected error without --output")
	}
}

func writeJob(t *testing.T, dir, reco string) string {
	t.Helper()
	job := fmt.Sprintf(`
name: cli-test
cycles:
  - name: FirstCycle
    mode: distributed
    endpoint: inproc://2
    output_dir: out
    properties:
      MinPt: 1500
    datasets:
      - type: data
        version: "2024"
        files:
          - path: %s
        streams:
          - name: Reco
            roles: [input, synchronized]
          - name: FirstCycleTree
            roles: [output]
`, reco)
	path := filepath.Join(dir, "job.yaml")
	if err := os.WriteFile(path, []byte(job), 0o644); err != nil {
		t.Fatalf("write job: %v", err)
	}
	return path
}

func TestRun_JSONReport(t *testing.T) {
	dir := t.TempDir()
	reco := filepath.Join(dir, "reco.cyc")
	writeStream(t, reco, "", "Reco", 4)
	job := writeJob(t, dir, reco)

	if err := os.MkdirAll(filepath.Join(dir, "out"), 0o755); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "run", job, "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var reports []reportView
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}

	r := reports[0]
	if r.Status != string(domain.CycleRunSucceeded) {
		t.Errorf("expected SUCCEEDED, got %s (%s)", r.Status, r.Error)
	}
	// Первая запись (1000) ниже MinPt.
	if r.Processed != 4 || r.Skipped != 1 {
		t.Errorf("expected 4 processed / 1 skipped, got %d / %d", r.Processed, r.Skipped)
	}
	if len(r.Datasets) != 1 || r.Datasets[0].Output == "" {
		t.Fatalf("expected one dataset with output, got %+v", r.Datasets)
	}
	if _, err := os.Stat(r.Datasets[0].Output); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestRun_CycleOutOfRange(t *testing.T) {
	dir := t.TempDir()
	reco := filepath.Join(dir, "reco.cyc")
	writeStream(t, reco, "", "Reco", 1)
	job := writeJob(t, dir, reco)

	_, err := execute(t, "run", job, "--cycle", "3")
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("expected out of range error, got %v", err)
	}
}

func TestRun_InvalidCron(t *testing.T) {
	dir := t.TempDir()
	job := writeJob(t, dir, filepath.Join(dir, "reco.cyc"))

	if _, err := execute(t, "run", job, "--cron", "every tuesday"); err == nil {
		t.Error("expected invalid cron error")
	}
}
