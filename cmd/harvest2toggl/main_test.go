package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alcm-b/toggl-import/internal/storage/sqlite"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

const teamConfig = `{
  "email": "jane@example.com",
  "task_override": ["bind"],
  "task_client": {"bind": "Parallels"}
}`

func TestCLI_StdinFilter(t *testing.T) {
	in := harvestHeader + "2020-01-01,Acme,Website,P1,design,Work,0.25,Y,N,Jane,Doe,Eng,Y,50,12.5,USD\n"

	out, _, err := execute(t, in)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := togglHeader + "Website,design,Work,2020-01-01,08:00:00,00:15:00,nobody@example.com,Jane Doe,harvest import,Acme\n"
	if out != want {
		t.Fatalf("stdout:\n%s\nwant:\n%s", out, want)
	}
}

func TestCLI_FilesAndConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "team.json", teamConfig)
	a := writeFile(t, dir, "a.csv", harvestHeader+"2020-01-01,Acme,Website,P1,bind,Work,8.5,Y,N,Jane,Doe,Eng,Y,50,425,USD\n")
	b := writeFile(t, dir, "b.csv", "2020-01-02,Acme,Website,P1,design,Mockups,1.5,Y,N,Jane,Doe,Eng,Y,50,75,USD\n")

	out, _, err := execute(t, "", "--config", cfgPath, a, b)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := togglHeader +
		"bind,bind,Work,2020-01-01,08:00:00,08:30:00,jane@example.com,Jane Doe,harvest import,Parallels\n" +
		"Website,design,Mockups,2020-01-02,08:00:00,01:30:00,jane@example.com,Jane Doe,harvest import,Acme\n"
	if out != want {
		t.Fatalf("stdout:\n%s\nwant:\n%s", out, want)
	}
	if strings.Count(out, "Project,Task") != 1 {
		t.Fatalf("header written more than once:\n%s", out)
	}
}

func TestCLI_DashReadsStdin(t *testing.T) {
	in := harvestHeader + "2020-01-01,Acme,Website,P1,design,Work,2,Y,N,Jane,Doe\n"
	out, _, err := execute(t, in, "-")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, ",02:00:00,") {
		t.Fatalf("stdout=%q", out)
	}
}

func TestCLI_Failures(t *testing.T) {
	dir := t.TempDir()
	badCfg := writeFile(t, dir, "bad.json", `{"start_time": "8 o'clock"}`)

	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr string
		wantOut string
	}{
		{name: "missing_file", args: []string{filepath.Join(dir, "nope.csv")}, wantErr: "nope.csv"},
		{name: "empty_stdin", stdin: "", wantErr: "no header row"},
		{
			name:    "short_row",
			stdin:   harvestHeader + "2020-01-01,Acme,Website,P1,design,Work,1,Y,N,Jane,Doe\n2020-01-02,Acme,Website\n",
			wantErr: "-:3: malformed row",
			wantOut: togglHeader + "Website,design,Work,2020-01-01,08:00:00,01:00:00,nobody@example.com,Jane Doe,harvest import,Acme\n",
		},
		{name: "invalid_config", args: []string{"--config", badCfg}, wantErr: "configuration is invalid"},
		{name: "missing_config", args: []string{"--config", filepath.Join(dir, "none.json")}, wantErr: "open config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.stdin, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err=%v; want containing %q", err, tt.wantErr)
			}
			if out != tt.wantOut {
				t.Fatalf("stdout=%q; want %q", out, tt.wantOut)
			}
		})
	}
}

func TestCLI_Validate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", teamConfig)
	warn := writeFile(t, dir, "warn.json", `{"email": "not-an-email"}`)
	bad := writeFile(t, dir, "bad.json", `{"archive": {"kind": "sqlite"}}`)

	t.Run("valid", func(t *testing.T) {
		out, errOut, err := execute(t, "", "--validate", "--config", good)
		if err != nil || out != "" || errOut != "" {
			t.Fatalf("err=%v stdout=%q stderr=%q", err, out, errOut)
		}
	})
	t.Run("warnings_do_not_fail", func(t *testing.T) {
		_, errOut, err := execute(t, "", "--validate", "--config", warn)
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if !strings.HasPrefix(errOut, "warning: email: ") {
			t.Fatalf("stderr=%q", errOut)
		}
	})
	t.Run("errors_fail", func(t *testing.T) {
		_, errOut, err := execute(t, "", "--validate", "--config", bad)
		if err == nil {
			t.Fatalf("expected error")
		}
		if !strings.Contains(errOut, "error: archive.dsn: ") {
			t.Fatalf("stderr=%q", errOut)
		}
	})
}

func TestCLI_SQLiteArchive(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "toggl.db")
	cfgPath := writeFile(t, dir, "archive.json", `{
  "archive": {"kind": "sqlite", "dsn": "`+filepath.ToSlash(dbPath)+`", "table": "toggl_entries", "auto_create_table": true}
}`)
	in := harvestHeader +
		"2020-01-01,Acme,Website,P1,design,Work,1,Y,N,Jane,Doe\n" +
		"2020-01-02,Acme,Website,P1,design,Work,2,Y,N,Jane,Doe\n"

	for run := 0; run < 2; run++ {
		if _, _, err := execute(t, in, "--config", cfgPath); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}

	r, err := sqlite.NewRepository(context.Background(), filepath.ToSlash(dbPath), "toggl_entries")
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer r.Close()

	var rows, runs int
	if err := r.DB().QueryRow(`SELECT COUNT(*), COUNT(DISTINCT run_id) FROM toggl_entries`).Scan(&rows, &runs); err != nil {
		t.Fatalf("query: %v", err)
	}
	if rows != 4 || runs != 2 {
		t.Fatalf("rows=%d runs=%d; want 4 rows over 2 runs", rows, runs)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"", "env", "cfg"}, "env"},
		{[]string{"flag", "env"}, "flag"},
		{[]string{"", ""}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := firstNonEmpty(tt.in...); got != tt.want {
			t.Fatalf("firstNonEmpty(%q)=%q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfigureMetrics_DisabledPaths(t *testing.T) {
	t.Setenv("METRICS_BACKEND", "")
	cfg := testConfig()

	if configureMetrics(options{}, cfg) {
		t.Fatalf("default backend should be none")
	}
	if configureMetrics(options{metricsBackend: "graphite"}, cfg) {
		t.Fatalf("unknown backend should not install anything")
	}
	t.Setenv("METRICS_BACKEND", "none")
	cfg.Metrics.Backend = "pushgateway"
	if configureMetrics(options{}, cfg) {
		t.Fatalf("env should take precedence over config")
	}
}
