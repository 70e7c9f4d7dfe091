package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/alcm-b/toggl-import/internal/config"
	"github.com/alcm-b/toggl-import/internal/datasource"
	"github.com/alcm-b/toggl-import/internal/parser"
	"github.com/alcm-b/toggl-import/internal/storage"
	"github.com/alcm-b/toggl-import/internal/transformer"
)

const harvestHeader = "Date,Client,Project,Project Code,Task,Notes,Hours,Billable?,Invoiced?,First Name,Last Name,Department,Employee?,Hourly Rate,Billable Amount,Currency\n"

const togglHeader = "Project,Task,Description,Start date,Start time,Duration,email,user,tags,client\n"

// memSource is an in-memory datasource.Source.
type memSource struct {
	name string
	body string
}

func (m memSource) Name() string { return m.name }

func (m memSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(m.body)), nil
}

func sources(ss ...memSource) []datasource.Source {
	out := make([]datasource.Source, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// fakeRepo is a storage.Repository that records calls.
type fakeRepo struct {
	columns []string
	rows    [][]any
	execs   []string
	copyErr error
	closed  bool
}

func (f *fakeRepo) CopyFrom(_ context.Context, columns []string, rows [][]any) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.columns = columns
	f.rows = append(f.rows, rows...)
	return int64(len(rows)), nil
}

func (f *fakeRepo) Exec(_ context.Context, sql string) error {
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeRepo) Close() { f.closed = true }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Email = "jane@example.com"
	cfg.TaskOverride = []string{"bind"}
	cfg.TaskClient = map[string]string{"bind": "Parallels"}
	return cfg
}

func TestRunConvert_EndToEnd(t *testing.T) {
	in := harvestHeader +
		"2020-01-01,Acme,Website,P1,bind,Work,8.5,Y,N,Jane,Doe,Eng,Y,50,425,USD\n" +
		"2020-01-02,OtherCo,Website,P1,design,Mockups,0.25,Y,N,John,Roe,Eng,Y,50,12.5,USD\n"

	var out strings.Builder
	sum, err := runConvert(context.Background(), testConfig(), sources(memSource{"export.csv", in}), &out)
	if err != nil {
		t.Fatalf("runConvert: %v", err)
	}

	want := togglHeader +
		"bind,bind,Work,2020-01-01,08:00:00,08:30:00,jane@example.com,Jane Doe,harvest import,Parallels\n" +
		"Website,design,Mockups,2020-01-02,08:00:00,00:15:00,jane@example.com,John Roe,harvest import,OtherCo\n"
	if out.String() != want {
		t.Fatalf("output:\n%s\nwant:\n%s", out.String(), want)
	}
	if sum.converted != 2 || sum.sources != 1 || sum.runID != "" {
		t.Fatalf("summary=%+v", sum)
	}
}

func TestRunConvert_HeaderOnly(t *testing.T) {
	var out strings.Builder
	sum, err := runConvert(context.Background(), testConfig(), sources(memSource{"-", harvestHeader}), &out)
	if err != nil {
		t.Fatalf("runConvert: %v", err)
	}
	if out.String() != togglHeader || sum.converted != 0 {
		t.Fatalf("output=%q converted=%d; want header only", out.String(), sum.converted)
	}
}

func TestRunConvert_EmptyInput(t *testing.T) {
	var out strings.Builder
	_, err := runConvert(context.Background(), testConfig(), sources(memSource{"-", ""}), &out)
	if !errors.Is(err, parser.ErrNoHeader) {
		t.Fatalf("err=%v; want ErrNoHeader", err)
	}
	if out.Len() != 0 {
		t.Fatalf("output=%q; want nothing", out.String())
	}
}

func TestRunConvert_BadRowStopsAndFlushesPrefix(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		wantErr error
	}{
		{name: "short_row", row: "2020-01-02,Acme,Website\n", wantErr: transformer.ErrMalformedRow},
		{name: "blank_line", row: "\n", wantErr: transformer.ErrMalformedRow},
		{name: "bad_hours", row: "2020-01-02,Acme,Website,P1,design,x,abc,Y,N,Jane,Doe\n", wantErr: transformer.ErrInvalidHours},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := harvestHeader +
				"2020-01-01,Acme,Website,P1,design,Work,1,Y,N,Jane,Doe\n" +
				tt.row +
				"2020-01-03,Acme,Website,P1,design,Work,2,Y,N,Jane,Doe\n"

			var out strings.Builder
			sum, err := runConvert(context.Background(), testConfig(), sources(memSource{"export.csv", in}), &out)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v; want %v", err, tt.wantErr)
			}
			var rowErr *transformer.RowError
			if !errors.As(err, &rowErr) {
				t.Fatalf("err=%T; want *transformer.RowError", err)
			}
			if rowErr.Source != "export.csv" || rowErr.Line != 3 {
				t.Fatalf("RowError at %s:%d; want export.csv:3", rowErr.Source, rowErr.Line)
			}

			want := togglHeader + "Website,design,Work,2020-01-01,08:00:00,01:00:00,jane@example.com,Jane Doe,harvest import,Acme\n"
			if out.String() != want {
				t.Fatalf("output:\n%s\nwant:\n%s", out.String(), want)
			}
			if sum.converted != 1 {
				t.Fatalf("converted=%d; want 1", sum.converted)
			}
		})
	}
}

func TestRunConvert_MultipleInputs(t *testing.T) {
	first := harvestHeader + "2020-01-01,Acme,Website,P1,design,A,1,Y,N,Jane,Doe\n"
	second := "2020-01-02,Acme,Website,P1,design,B,2,Y,N,Jane,Doe\n"
	secondWithHeader := harvestHeader + second

	rowA := "Website,design,A,2020-01-01,08:00:00,01:00:00,jane@example.com,Jane Doe,harvest import,Acme\n"
	rowB := "Website,design,B,2020-01-02,08:00:00,02:00:00,jane@example.com,Jane Doe,harvest import,Acme\n"

	tests := []struct {
		name          string
		headerPerFile bool
		srcs          []memSource
		want          string
	}{
		{
			name: "concatenated_stream",
			srcs: []memSource{{"a.csv", first}, {"b.csv", second}},
			want: togglHeader + rowA + rowB,
		},
		{
			name:          "header_per_file",
			headerPerFile: true,
			srcs:          []memSource{{"a.csv", first}, {"b.csv", secondWithHeader}},
			want:          togglHeader + rowA + rowB,
		},
		{
			name: "empty_first_file",
			srcs: []memSource{{"empty.csv", ""}, {"a.csv", first}},
			want: togglHeader + rowA,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Input.HeaderPerFile = tt.headerPerFile

			var out strings.Builder
			sum, err := runConvert(context.Background(), cfg, sources(tt.srcs...), &out)
			if err != nil {
				t.Fatalf("runConvert: %v", err)
			}
			if out.String() != tt.want {
				t.Fatalf("output:\n%s\nwant:\n%s", out.String(), tt.want)
			}
			if sum.sources != len(tt.srcs) {
				t.Fatalf("sources=%d; want %d", sum.sources, len(tt.srcs))
			}
		})
	}
}

func TestRunConvert_DelimitersAndRounding(t *testing.T) {
	cfg := testConfig()
	cfg.Input.Comma = ";"
	cfg.Output.Comma = "\t"
	cfg.MinuteRounding = config.RoundingTruncate

	in := "Date;Client;Project;Project Code;Task;Notes;Hours;Billable?;Invoiced?;First Name;Last Name\n" +
		"2020-01-01;Acme;Website;P1;design;Work;8.7;Y;N;Jane;Doe\n"

	var out strings.Builder
	if _, err := runConvert(context.Background(), cfg, sources(memSource{"export.csv", in}), &out); err != nil {
		t.Fatalf("runConvert: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%q", lines)
	}
	fields := strings.Split(lines[1], "\t")
	if len(fields) != 10 || fields[5] != "08:41:00" {
		t.Fatalf("row=%q; want tab separated with truncated duration 08:41:00", lines[1])
	}
}

func TestRunConvert_UnknownRounding(t *testing.T) {
	cfg := testConfig()
	cfg.MinuteRounding = "bankers"
	var out strings.Builder
	if _, err := runConvert(context.Background(), cfg, sources(memSource{"-", harvestHeader}), &out); err == nil {
		t.Fatalf("expected error for unknown rounding")
	}
}

func TestRunConvert_Archive(t *testing.T) {
	old := newRepositoryFn
	defer func() { newRepositoryFn = old }()

	repo := &fakeRepo{}
	var gotCfg storage.Config
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		gotCfg = cfg
		return repo, nil
	}

	cfg := testConfig()
	cfg.Archive = config.Archive{Kind: "fake", DSN: "mem", Table: "toggl_entries"}

	in := harvestHeader +
		"2020-01-01,Acme,Website,P1,bind,Work,8.5,Y,N,Jane,Doe\n" +
		"2020-01-02,Acme,Website,P1,design,Work,1,Y,N,Jane,Doe\n"

	var out strings.Builder
	sum, err := runConvert(context.Background(), cfg, sources(memSource{"export.csv", in}), &out)
	if err != nil {
		t.Fatalf("runConvert: %v", err)
	}
	if gotCfg.Kind != "fake" || gotCfg.DSN != "mem" || gotCfg.Table != "toggl_entries" {
		t.Fatalf("storage config=%+v", gotCfg)
	}
	if sum.archived != 2 || len(repo.rows) != 2 {
		t.Fatalf("archived=%d rows=%d; want 2", sum.archived, len(repo.rows))
	}
	if sum.runID == "" || repo.rows[0][0] != sum.runID {
		t.Fatalf("runID=%q row run_id=%v", sum.runID, repo.rows[0][0])
	}
	if repo.rows[1][1] != "export.csv" || repo.rows[1][2] != int64(3) {
		t.Fatalf("row source/line=%v/%v; want export.csv/3", repo.rows[1][1], repo.rows[1][2])
	}
	if !repo.closed {
		t.Fatalf("repository was not closed")
	}
	if len(repo.execs) != 0 {
		t.Fatalf("execs=%v; want none without auto_create_table", repo.execs)
	}
}

func TestRunConvert_ArchiveSkippedOnBadRow(t *testing.T) {
	old := newRepositoryFn
	defer func() { newRepositoryFn = old }()

	repo := &fakeRepo{}
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return repo, nil
	}

	cfg := testConfig()
	cfg.Archive = config.Archive{Kind: "fake", DSN: "mem", Table: "toggl_entries"}

	in := harvestHeader +
		"2020-01-01,Acme,Website,P1,bind,Work,8.5,Y,N,Jane,Doe\n" +
		"short,row\n"

	var out strings.Builder
	if _, err := runConvert(context.Background(), cfg, sources(memSource{"export.csv", in}), &out); err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.rows) != 0 {
		t.Fatalf("archived %d rows from a failed run", len(repo.rows))
	}
}

func TestRunConvert_ArchiveErrors(t *testing.T) {
	old := newRepositoryFn
	defer func() { newRepositoryFn = old }()

	cfg := testConfig()
	cfg.Archive = config.Archive{Kind: "fake", DSN: "mem", Table: "toggl_entries"}
	in := harvestHeader + "2020-01-01,Acme,Website,P1,bind,Work,8.5,Y,N,Jane,Doe\n"

	t.Run("open_fails_before_output", func(t *testing.T) {
		boom := errors.New("unreachable")
		newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
			return nil, boom
		}
		var out strings.Builder
		_, err := runConvert(context.Background(), cfg, sources(memSource{"-", in}), &out)
		if !errors.Is(err, boom) {
			t.Fatalf("err=%v; want boom", err)
		}
		if out.Len() != 0 {
			t.Fatalf("output=%q; want nothing", out.String())
		}
	})

	t.Run("commit_fails_after_output", func(t *testing.T) {
		boom := errors.New("disk full")
		newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
			return &fakeRepo{copyErr: boom}, nil
		}
		var out strings.Builder
		_, err := runConvert(context.Background(), cfg, sources(memSource{"-", in}), &out)
		if !errors.Is(err, boom) {
			t.Fatalf("err=%v; want boom", err)
		}
		if !strings.HasPrefix(out.String(), togglHeader) {
			t.Fatalf("output=%q; want converted rows", out.String())
		}
	})
}

func TestRunConvert_AutoCreateTable(t *testing.T) {
	old := newRepositoryFn
	defer func() { newRepositoryFn = old }()

	repo := &fakeRepo{}
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return repo, nil
	}
	storage.RegisterDDL("fake-ddl", func(ctx context.Context, r storage.Repository, table string) error {
		return r.Exec(ctx, "CREATE "+table)
	})

	cfg := testConfig()
	cfg.Archive = config.Archive{Kind: "fake-ddl", DSN: "mem", Table: "toggl_entries", AutoCreateTable: true}

	var out strings.Builder
	if _, err := runConvert(context.Background(), cfg, sources(memSource{"-", harvestHeader}), &out); err != nil {
		t.Fatalf("runConvert: %v", err)
	}
	if len(repo.execs) != 1 || repo.execs[0] != "CREATE toggl_entries" {
		t.Fatalf("execs=%v", repo.execs)
	}
}

func TestRunConvert_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out strings.Builder
	_, err := runConvert(ctx, testConfig(), sources(memSource{"-", harvestHeader}), &out)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v; want context.Canceled", err)
	}
}

func TestRunConvert_ParserSeam(t *testing.T) {
	old := openParserFn
	defer func() { openParserFn = old }()

	var gotName string
	var gotOpt parser.Options
	openParserFn = func(name string, r io.Reader, opt parser.Options) (parser.RowReader, error) {
		gotName, gotOpt = name, opt
		return old(name, r, opt)
	}

	cfg := testConfig()
	cfg.Input.Encoding = "windows-1252"
	cfg.Input.Sheet = "Report"

	var out strings.Builder
	if _, err := runConvert(context.Background(), cfg, sources(memSource{"export.csv", harvestHeader}), &out); err != nil {
		t.Fatalf("runConvert: %v", err)
	}
	if gotName != "export.csv" || gotOpt.Comma != ',' || gotOpt.Encoding != "windows-1252" || gotOpt.Sheet != "Report" {
		t.Fatalf("parser got name=%q opt=%+v", gotName, gotOpt)
	}
}
