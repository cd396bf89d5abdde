// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/scanocr/internal/toolchain"
	"github.com/pdiddy/scanocr/pkg/types"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeTools implements toolchain.Executor by emulating the converters and the
// OCR engine on the filesystem.
type fakeTools struct {
	// pages maps a source file name to its page count.
	pages map[string]int
	// fail, when it returns an error, makes the invocation exit non-zero.
	fail func(tool string, args []string) error
	// delay, when set, stalls an OCR invocation to shuffle completion order.
	delay func(page int) time.Duration
	// killed, when it reports true for an OCR invocation, leaves a truncated
	// fragment behind and exits as if killed.
	killed func(stem, kind string) bool

	mu    sync.Mutex
	calls map[string]int
	kinds map[string]int
}

func newFakeTools(pages map[string]int) *fakeTools {
	return &fakeTools{pages: pages, calls: map[string]int{}, kinds: map[string]int{}}
}

func (f *fakeTools) LookPath(string) (string, error) { return "", errors.New("not found") }
func (f *fakeTools) IsExecutable(string) bool        { return false }

func (f *fakeTools) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	tool := filepath.Base(name)
	f.mu.Lock()
	f.calls[tool]++
	if tool == "tesseract" {
		f.kinds[args[len(args)-1]]++
	}
	f.mu.Unlock()

	if tool == "tesseract" && f.killed != nil {
		stem, kind := args[1], args[len(args)-1]
		if f.killed(stem, kind) {
			_ = os.WriteFile(stem+"."+kind, []byte("TRUNCATED-"+kind+"\n"), 0o644)
			return nil, errors.New("signal: killed")
		}
	}

	if f.fail != nil {
		if err := f.fail(tool, args); err != nil {
			return []byte("simulated failure"), err
		}
	}

	switch tool {
	case "magick":
		src, pattern := args[len(args)-4], args[len(args)-1]
		for i := 1; i <= f.pages[filepath.Base(src)]; i++ {
			if err := os.WriteFile(fmt.Sprintf(pattern, i), []byte("png"), 0o644); err != nil {
				return nil, err
			}
		}
	case "pdftoppm":
		src, root := args[len(args)-2], args[len(args)-1]
		for i := 1; i <= f.pages[filepath.Base(src)]; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", root, i), []byte("png"), 0o644); err != nil {
				return nil, err
			}
		}
	case "tesseract":
		stem, kind := args[1], args[len(args)-1]
		if f.delay != nil {
			page, _ := strconv.Atoi(stem[len(stem)-4:])
			time.Sleep(f.delay(page))
		}
		content := filepath.Base(stem) + "\n"
		if kind == "txt" {
			content = "text of " + filepath.Base(stem) + "\n\n  \n"
		}
		if err := os.WriteFile(stem+"."+kind, []byte(content), 0o644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (f *fakeTools) count(tool string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[tool]
}

// concatMerger "merges" by concatenating file contents, so the merged
// document lists fragment stems in page order.
type concatMerger struct {
	err error
}

func (m *concatMerger) Merge(inputs []string, out string) error {
	if m.err != nil {
		_ = os.WriteFile(out, []byte("partial"), 0o644)
		return m.err
	}
	var b bytes.Buffer
	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		b.Write(data)
	}
	return os.WriteFile(out, b.Bytes(), 0o644)
}

type fixedCounter int

func (c fixedCounter) PageCount(string) (int, error) { return int(c), nil }

func allTools() toolchain.Tools {
	return toolchain.Tools{
		Rasterizer:         toolchain.Tool{Role: toolchain.RoleRasterizer, Path: "/usr/bin/magick"},
		RasterizerFallback: toolchain.Tool{Role: toolchain.RoleRasterizerFallback, Path: "/usr/bin/pdftoppm"},
		OCR:                toolchain.Tool{Role: toolchain.RoleOCR, Path: "/usr/bin/tesseract"},
	}
}

func writeSources(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var paths []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("%PDF-1.7 scanned"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func newPipeline(t *testing.T, cfg types.PipelineConfig, deps Deps) *Pipeline {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = quietLogger
	}
	if deps.Merger == nil {
		deps.Merger = &concatMerger{}
	}
	p, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

var separatorRe = regexp.MustCompile(`(?m)^={31}(\d+)={31}$`)

func separatorPages(t *testing.T, path string) []int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var pages []int
	for _, m := range separatorRe.FindAllStringSubmatch(string(data), -1) {
		n, _ := strconv.Atoi(m[1])
		pages = append(pages, n)
	}
	return pages
}

func assertNoWorkspace(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "._chunk_") {
			t.Errorf("leftover %s in %s", e.Name(), dir)
		}
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunKilledPageLeavesNoTrace(t *testing.T) {
	dir := t.TempDir()
	src := writeSources(t, dir, "report.pdf")[0]
	tools := newFakeTools(map[string]int{"report.pdf": 3})
	tools.killed = func(stem, kind string) bool {
		return filepath.Base(stem) == "report-0002"
	}
	cfg := types.DefaultPipelineConfig()
	cfg.KeepIntermediate = true
	p := newPipeline(t, cfg, Deps{Tools: allTools(), Executor: tools})

	res, err := p.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != types.StatusDone {
		t.Errorf("status = %s, want done", res.Status)
	}
	if !equalInts(res.FailedPages, []int{2}) {
		t.Errorf("failed pages = %v, want [2]", res.FailedPages)
	}

	merged, err := os.ReadFile(res.PDFPath)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(merged), "report-0001\nreport-0003\n"; got != want {
		t.Errorf("merged pdf = %q, want %q", got, want)
	}
	text, err := os.ReadFile(res.TextPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(text), "TRUNCATED") {
		t.Errorf("text output contains a killed page:\n%s", text)
	}
	if got := separatorPages(t, res.TextPath); !equalInts(got, []int{1, 3}) {
		t.Errorf("text pages = %v, want [1 3]", got)
	}

	// The kept workspace holds no fragment for the killed page.
	leftovers, err := filepath.Glob(filepath.Join(dir, "*_report_*", "report-0002.*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) == 0 {
		t.Fatal("kept workspace has no image for page 2")
	}
	for _, l := range leftovers {
		if filepath.Ext(l) != ".png" {
			t.Errorf("partial fragment left behind: %s", filepath.Base(l))
		}
	}
}

func TestRunThreePagesOneTextFailure(t *testing.T) {
	dir := t.TempDir()
	src := writeSources(t, dir, "report.pdf")[0]
	tools := newFakeTools(map[string]int{"report.pdf": 3})
	tools.fail = func(tool string, args []string) error {
		if tool == "tesseract" && filepath.Base(args[0]) == "report-0002.png" && args[len(args)-1] == "txt" {
			return errors.New("exit status 1")
		}
		return nil
	}
	cfg := types.DefaultPipelineConfig()
	cfg.MaxWorkers = 2
	p := newPipeline(t, cfg, Deps{Tools: allTools(), Executor: tools})

	res, err := p.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if res.Status != types.StatusDone {
		t.Errorf("status = %q, want done", res.Status)
	}
	if !equalInts(res.FailedPages, []int{2}) {
		t.Errorf("failed pages = %v, want [2]", res.FailedPages)
	}
	if res.Pages != 3 || res.PagesOCRed != 3 {
		t.Errorf("pages = %d, ocred = %d, want 3 and 3", res.Pages, res.PagesOCRed)
	}

	text, err := os.ReadFile(filepath.Join(dir, "report.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Repeat("=", 31) + "1" + strings.Repeat("=", 31) + "\n" +
		"text of report-0001\n" +
		strings.Repeat("=", 31) + "3" + strings.Repeat("=", 31) + "\n" +
		"text of report-0003\n"
	if string(text) != want {
		t.Errorf("text output:\n%s\nwant:\n%s", text, want)
	}

	merged, err := os.ReadFile(filepath.Join(dir, "report-searchable.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if string(merged) != "report-0001\nreport-0002\nreport-0003\n" {
		t.Errorf("merged pdf = %q", merged)
	}
	assertNoWorkspace(t, dir)
}

func TestRunPageOrderIgnoresCompletionOrder(t *testing.T) {
	dir := t.TempDir()
	src := writeSources(t, dir, "book.pdf")[0]
	const n = 12
	tools := newFakeTools(map[string]int{"book.pdf": n})
	// Early pages finish last.
	tools.delay = func(page int) time.Duration { return time.Duration(n-page) * 3 * time.Millisecond }
	cfg := types.DefaultPipelineConfig()
	cfg.MaxWorkers = 4
	cfg.MergeBatchSize = 5
	p := newPipeline(t, cfg, Deps{Tools: allTools(), Executor: tools})

	if _, err := p.Run(context.Background(), src); err != nil {
		t.Fatal(err)
	}

	var want []int
	var wantPDF strings.Builder
	for i := 1; i <= n; i++ {
		want = append(want, i)
		fmt.Fprintf(&wantPDF, "book-%04d\n", i)
	}
	if got := separatorPages(t, filepath.Join(dir, "book.txt")); !equalInts(got, want) {
		t.Errorf("separators = %v, want %v", got, want)
	}
	merged, err := os.ReadFile(filepath.Join(dir, "book-searchable.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if string(merged) != wantPDF.String() {
		t.Errorf("merged pdf = %q", merged)
	}
	assertNoWorkspace(t, dir)
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	paths := writeSources(t, dir, "a.pdf", "broken.pdf", "c.pdf")
	tools := newFakeTools(map[string]int{"a.pdf": 2, "broken.pdf": 4, "c.pdf": 1})
	tools.fail = func(tool string, args []string) error {
		if tool == "tesseract" {
			return nil
		}
		for _, a := range args {
			if filepath.Base(a) == "broken.pdf" {
				return errors.New("exit status 1")
			}
		}
		return nil
	}
	p := newPipeline(t, types.DefaultPipelineConfig(), Deps{Tools: allTools(), Executor: tools})
	rec := &memRecorder{}

	var buf bytes.Buffer
	result := p.ProcessBatch(context.Background(), paths, rec, &buf)

	if result.Done != 2 || result.Failed != 1 || result.Total() != 3 || !result.HasFailures() {
		t.Errorf("result = %+v", result)
	}
	if got := result.Results[1]; got.Status != types.StatusFailed || !strings.Contains(got.Error, "rasterizing") {
		t.Errorf("broken.pdf result = %+v", got)
	}
	for _, name := range []string{"a.txt", "a-searchable.pdf", "c.txt", "c-searchable.pdf"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected output %s: %v", name, err)
		}
	}
	for _, name := range []string{"broken.txt", "broken-searchable.pdf"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			t.Errorf("unexpected output %s", name)
		}
	}

	out := buf.String()
	for _, want := range []string{
		"done:     a (pdf, txt)",
		"failed:   broken (",
		"done:     c (pdf, txt)",
		"Batch summary: 2 done, 0 partial, 0 degraded, 1 failed (total: 3)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(rec.results) != 3 {
		t.Errorf("recorded %d results, want 3", len(rec.results))
	}
	assertNoWorkspace(t, dir)
}

type memRecorder struct {
	results []types.DocumentResult
}

func (m *memRecorder) Record(_ context.Context, res types.DocumentResult) error {
	m.results = append(m.results, res)
	return nil
}

func TestRunFallbackRasterizer(t *testing.T) {
	dir := t.TempDir()
	src := writeSources(t, dir, "scan.pdf")[0]
	tools := newFakeTools(map[string]int{"scan.pdf": 11})
	tools.fail = func(tool string, _ []string) error {
		if tool == "magick" {
			return errors.New("exit status 1")
		}
		return nil
	}
	p := newPipeline(t, types.DefaultPipelineConfig(), Deps{Tools: allTools(), Executor: tools})

	res, err := p.Run(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if !res.UsedFallback || res.Pages != 11 || res.Status != types.StatusDone {
		t.Errorf("result = %+v", res)
	}
	got := separatorPages(t, filepath.Join(dir, "scan.txt"))
	if len(got) != 11 || got[0] != 1 || got[1] != 2 || got[10] != 11 {
		t.Errorf("separators = %v", got)
	}
}

func TestRunDegradedWithoutOCR(t *testing.T) {
	dir := t.TempDir()
	src := writeSources(t, dir, "report.pdf")[0]
	tools := newFakeTools(map[string]int{"report.pdf": 2})
	bound := allTools()
	bound.OCR.Path = ""
	p := newPipeline(t, types.DefaultPipelineConfig(), Deps{Tools: bound, Executor: tools})

	res, err := p.Run(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != types.StatusDegraded {
		t.Errorf("status = %q, want degraded", res.Status)
	}
	if len(res.Produced()) != 0 {
		t.Errorf("produced = %v, want none", res.Produced())
	}
	if tools.count("tesseract") != 0 {
		t.Error("unavailable OCR engine was invoked")
	}
	if !strings.HasPrefix(StatusLine(res), "degraded: report") {
		t.Errorf("status line = %q", StatusLine(res))
	}
	assertNoWorkspace(t, dir)
}

func TestRunPartialWhenMergeFails(t *testing.T) {
	dir := t.TempDir()
	src := writeSources(t, dir, "report.pdf")[0]
	tools := newFakeTools(map[string]int{"report.pdf": 3})
	p := newPipeline(t, types.DefaultPipelineConfig(), Deps{
		Tools:    allTools(),
		Executor: tools,
		Merger:   &concatMerger{err: errors.New("merge primitive exploded")},
	})

	res, err := p.Run(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != types.StatusPartial {
		t.Errorf("status = %q, want partial", res.Status)
	}
	if res.PDFPath != "" || res.TextPath == "" {
		t.Errorf("pdf = %q, text = %q", res.PDFPath, res.TextPath)
	}
	if !strings.Contains(res.Error, "merge primitive exploded") {
		t.Errorf("error = %q", res.Error)
	}
	if _, err := os.Stat(filepath.Join(dir, "report-searchable.pdf")); err == nil {
		t.Error("partial searchable pdf left behind")
	}
	if !strings.HasPrefix(StatusLine(res), "partial:  report (txt; pdf:") {
		t.Errorf("status line = %q", StatusLine(res))
	}
}

func TestRunTextOnly(t *testing.T) {
	dir := t.TempDir()
	src := writeSources(t, dir, "report.pdf")[0]
	tools := newFakeTools(map[string]int{"report.pdf": 3})
	cfg := types.DefaultPipelineConfig()
	cfg.Outputs = []types.OutputKind{types.OutputText}
	p, err := New(cfg, Deps{Tools: allTools(), Executor: tools, Logger: quietLogger})
	if err != nil {
		t.Fatalf("text-only pipeline needs no merger: %v", err)
	}

	res, err := p.Run(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != types.StatusDone || res.PDFPath != "" {
		t.Errorf("result = %+v", res)
	}
	if tools.kinds["pdf"] != 0 || tools.kinds["txt"] != 3 {
		t.Errorf("invocations by kind = %v", tools.kinds)
	}
}

func TestRunAllOCRFailsIsFatal(t *testing.T) {
	dir := t.TempDir()
	src := writeSources(t, dir, "report.pdf")[0]
	tools := newFakeTools(map[string]int{"report.pdf": 2})
	tools.fail = func(tool string, _ []string) error {
		if tool == "tesseract" {
			return errors.New("exit status 1")
		}
		return nil
	}
	p := newPipeline(t, types.DefaultPipelineConfig(), Deps{Tools: allTools(), Executor: tools})

	res, err := p.Run(context.Background(), src)
	if !errors.Is(err, ErrDocumentFatal) {
		t.Fatalf("err = %v, want ErrDocumentFatal", err)
	}
	if res.Status != types.StatusFailed || !equalInts(res.FailedPages, []int{1, 2}) {
		t.Errorf("result = %+v", res)
	}
	assertNoWorkspace(t, dir)
}

func TestRunKeepIntermediate(t *testing.T) {
	dir := t.TempDir()
	src := writeSources(t, dir, "report.pdf")[0]
	root := filepath.Join(t.TempDir(), "work")
	cfg := types.DefaultPipelineConfig()
	cfg.KeepIntermediate = true
	cfg.WorkspaceRoot = root
	p := newPipeline(t, cfg, Deps{Tools: allTools(), Executor: newFakeTools(map[string]int{"report.pdf": 2})})

	if _, err := p.Run(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	matches, err := filepath.Glob(filepath.Join(root, "*_report_*", "report-000?.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Errorf("kept images = %v, want 2", matches)
	}
	if _, err := os.Stat(filepath.Join(dir, "report.txt")); err != nil {
		t.Errorf("outputs belong next to the source: %v", err)
	}
}

func TestRunPageSelection(t *testing.T) {
	dir := t.TempDir()
	src := writeSources(t, dir, "report.pdf")[0]
	tools := newFakeTools(map[string]int{"report.pdf": 4})
	cfg := types.DefaultPipelineConfig()
	cfg.Pages = "3,1"
	p := newPipeline(t, cfg, Deps{Tools: allTools(), Executor: tools})

	res, err := p.Run(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if got := separatorPages(t, res.TextPath); !equalInts(got, []int{1, 3}) {
		t.Errorf("separators = %v, want [1 3]", got)
	}
	if tools.count("tesseract") != 4 {
		t.Errorf("tesseract calls = %d, want 4 (2 pages x 2 kinds)", tools.count("tesseract"))
	}
}

func TestRunPageSelectionOutOfRange(t *testing.T) {
	dir := t.TempDir()
	src := writeSources(t, dir, "report.pdf")[0]
	cfg := types.DefaultPipelineConfig()
	cfg.Pages = "9-12"
	p := newPipeline(t, cfg, Deps{Tools: allTools(), Executor: newFakeTools(map[string]int{"report.pdf": 4})})

	_, err := p.Run(context.Background(), src)
	if !errors.Is(err, ErrDocumentFatal) {
		t.Errorf("err = %v, want ErrDocumentFatal", err)
	}
	assertNoWorkspace(t, dir)
}

func TestRunPageCountMismatchIsNoted(t *testing.T) {
	dir := t.TempDir()
	src := writeSources(t, dir, "report.pdf")[0]
	p := newPipeline(t, types.DefaultPipelineConfig(), Deps{
		Tools:    allTools(),
		Executor: newFakeTools(map[string]int{"report.pdf": 3}),
		Pages:    fixedCounter(5),
	})

	res, err := p.Run(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, n := range res.Notes {
		if strings.Contains(n, "source has 5 pages, rasterized 3") {
			found = true
		}
	}
	if !found {
		t.Errorf("notes = %v", res.Notes)
	}
}

func TestRunMissingSource(t *testing.T) {
	tools := newFakeTools(nil)
	p := newPipeline(t, types.DefaultPipelineConfig(), Deps{Tools: allTools(), Executor: tools})

	res, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	if !errors.Is(err, ErrDocumentFatal) {
		t.Fatalf("err = %v, want ErrDocumentFatal", err)
	}
	if res.Status != types.StatusFailed {
		t.Errorf("status = %q", res.Status)
	}
	if tools.count("magick") != 0 {
		t.Error("rasterizer ran on a missing source")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := types.DefaultPipelineConfig()
	cfg.Pages = "1,x"
	if _, err := New(cfg, Deps{Merger: &concatMerger{}}); err == nil {
		t.Error("expected error for bad page spec")
	}
	if _, err := New(types.DefaultPipelineConfig(), Deps{}); err == nil {
		t.Error("expected error for pdf output without merger")
	}
	cfg = types.DefaultPipelineConfig()
	cfg.MaxWorkers = -1
	if _, err := New(cfg, Deps{Merger: &concatMerger{}}); err == nil {
		t.Error("expected error for negative workers")
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"b10.pdf", "b2.pdf", "B1.PDF", "b2-searchable.pdf", "._chunk_b2-searchable_000.pdf", "notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Discover([]string{dir, filepath.Join(dir, "b2.pdf")}, "-searchable")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, p := range got {
		names = append(names, filepath.Base(p))
	}
	want := []string{"B1.PDF", "b2.pdf", "b10.pdf"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("Discover = %v, want %v", names, want)
	}

	if _, err := Discover([]string{filepath.Join(dir, "missing")}, "-searchable"); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		res  types.DocumentResult
		want string
	}{
		{
			types.DocumentResult{Document: types.NewSourceDocument("/x/r.pdf"), Status: types.StatusDone, PDFPath: "p", TextPath: "t", FailedPages: []int{2}},
			"done:     r (pdf, txt, 1 page(s) failed OCR)",
		},
		{
			types.DocumentResult{Document: types.NewSourceDocument("/x/r.pdf"), Status: types.StatusFailed, Error: "rasterizing: no rasterizer available"},
			"failed:   r (rasterizing: no rasterizer available)",
		},
	}
	for _, tt := range tests {
		if got := StatusLine(tt.res); got != tt.want {
			t.Errorf("StatusLine = %q, want %q", got, tt.want)
		}
	}
}

func TestProcessBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newPipeline(t, types.DefaultPipelineConfig(), Deps{Tools: allTools(), Executor: newFakeTools(nil)})

	var buf bytes.Buffer
	result := p.ProcessBatch(ctx, []string{"a.pdf", "b.pdf"}, nil, &buf)
	if result.Total() != 0 {
		t.Errorf("processed %d documents after cancellation", result.Total())
	}
	if !strings.Contains(buf.String(), "cancelled: 2 document(s) not processed") {
		t.Errorf("output = %q", buf.String())
	}
}
