package backfill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/rapport/internal/analytics"
	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
	"github.com/MikeSquared-Agency/rapport/internal/processor"
)

// Config holds the backfill command configuration.
type Config struct {
	Dir            string
	SingleFile     string // process a single file only
	Since          time.Time
	Until          time.Time
	DryRun         bool
	MinMessages    int
	Concurrency    int
	OwnerUUID      uuid.UUID
	RelationshipID uuid.UUID // optional: import every file into one relationship
	FormatHint     string
	StatePath      string
	Location       *time.Location
	DropFallbacks  bool
	Out            io.Writer // summary output (default: stdout)
}

// Importer runs one import. *processor.Processor satisfies it.
type Importer interface {
	Import(ctx context.Context, req processor.Request) (*processor.Outcome, error)
	Analyze(ctx context.Context, export chatlog.RawExport) *analytics.Report
}

// Digester posts batch summaries. *slack.Poster satisfies it.
type Digester interface {
	PostMessage(ctx context.Context, text string) (string, error)
}

// Runner orchestrates the backfill process.
type Runner struct {
	cfg      Config
	importer Importer
	digest   Digester
	logger   *slog.Logger
}

// NewRunner creates a backfill runner. digest may be nil.
func NewRunner(cfg Config, importer Importer, digest Digester, logger *slog.Logger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Runner{
		cfg:      cfg,
		importer: importer,
		digest:   digest,
		logger:   logger,
	}
}

// Run executes the backfill process.
func (r *Runner) Run(ctx context.Context) error {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	paths, err := r.discoverFiles()
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}
	r.logger.Info("files discovered", "dir", r.cfg.Dir, "files", len(paths))

	// Read and pre-parse every pending file for filtering and dedup.
	var files []exportFile
	for _, path := range paths {
		if state.IsProcessed(path) {
			continue
		}
		f, err := r.load(path)
		if err != nil {
			r.logger.Warn("failed to read export", "path", path, "error", err)
			state.AddError(fmt.Sprintf("read %s: %v", path, err))
			continue
		}
		if len(f.messages) < r.cfg.MinMessages {
			continue
		}
		if !inDateRange(f.messages, r.cfg.Since, r.cfg.Until) {
			continue
		}
		files = append(files, f)
	}

	fps := make([]fileFingerprint, 0, len(files))
	for _, f := range files {
		fps = append(fps, f.fp)
	}
	duplicates := FindDuplicates(fps)

	var (
		mu        sync.Mutex
		summaries []FileSummary
		pending   []exportFile
	)
	for _, f := range files {
		if duplicates[f.path] {
			r.logger.Info("skipping duplicate export", "path", f.path)
			if !r.cfg.DryRun {
				state.MarkDuplicate(f.path)
			}
			summaries = append(summaries, FileSummary{Path: f.path, Date: firstDate(f.messages), Contact: f.contact, Duplicate: true})
			continue
		}
		pending = append(pending, f)
	}

	state.SetRemaining(len(pending))
	r.logger.Info("files to process",
		"total", len(pending),
		"duplicates_skipped", len(duplicates),
		"concurrency", r.cfg.Concurrency,
		"dry_run", r.cfg.DryRun,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, f := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			fs := r.importFile(gctx, f, state)

			mu.Lock()
			summaries = append(summaries, fs)
			mu.Unlock()

			if !r.cfg.DryRun {
				if err := state.Save(); err != nil {
					r.logger.Warn("failed to save state", "error", err)
				}
			}
			return nil
		})
	}

	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}
	if runErr != nil {
		r.logger.Info("backfill interrupted, saving state")
	}

	if !r.cfg.DryRun {
		if err := state.Save(); err != nil {
			r.logger.Warn("failed to save state", "error", err)
		}
	}

	// Digest uses a fresh context so an interrupted run still reports.
	r.postBatchSummary(context.WithoutCancel(ctx), summaries)
	r.printSummary(summaries, state)

	return runErr
}

// ImportFile imports a single export outside a batch run, as the watcher does.
func (r *Runner) ImportFile(ctx context.Context, path string) (FileSummary, error) {
	f, err := r.load(path)
	if err != nil {
		return FileSummary{Path: path}, fmt.Errorf("read export: %w", err)
	}
	state := &BackfillState{}
	fs := r.importFile(ctx, f, state)
	if len(state.Errors) > 0 {
		return fs, fmt.Errorf("import %s: %s", path, state.Errors[0])
	}
	return fs, nil
}

func (r *Runner) importFile(ctx context.Context, f exportFile, state *BackfillState) FileSummary {
	fs := FileSummary{
		Path:    f.path,
		Date:    firstDate(f.messages),
		Contact: f.contact,
	}
	export := chatlog.RawExport{Content: f.content, FormatHint: r.cfg.FormatHint, Contact: f.contact}

	r.logger.Info("processing file", "path", f.path, "messages", len(f.messages), "format", f.format)

	var rep *analytics.Report
	if r.cfg.DryRun {
		rep = r.importer.Analyze(ctx, export)
	} else {
		out, err := r.importer.Import(ctx, processor.Request{
			RelationshipID: r.relationshipFor(f.contact),
			OwnerUUID:      r.cfg.OwnerUUID,
			Source:         processor.SourceBackfill,
			Export:         export,
		})
		if err != nil {
			r.logger.Error("import failed", "path", f.path, "error", err)
			state.AddError(fmt.Sprintf("import %s: %v", f.path, err))
			fs.Errors++
			return fs
		}
		if out.Duplicate {
			fs.Duplicate = true
			state.MarkDuplicate(f.path)
			return fs
		}
		rep = out.Report
	}

	fs.Status = rep.Status
	fs.Messages = len(rep.Messages)
	fs.Sessions = len(rep.Sessions)
	fs.Memories = len(rep.Memories)
	if rep.Contact != "" {
		fs.Contact = rep.Contact
	}

	if !r.cfg.DryRun {
		state.MarkProcessed(f.path, fs.Messages, fs.Memories)
	}

	r.logger.Info("file processed",
		"path", f.path,
		"status", rep.Status,
		"messages", fs.Messages,
		"memories", fs.Memories,
		"dry_run", r.cfg.DryRun,
	)
	return fs
}

func (r *Runner) relationshipFor(contact string) uuid.UUID {
	if r.cfg.RelationshipID != uuid.Nil {
		return r.cfg.RelationshipID
	}
	return RelationshipID(r.cfg.OwnerUUID, contact)
}

// load reads an export and pre-parses it with the same timestamp settings the
// pipeline will use.
func (r *Runner) load(path string) (exportFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return exportFile{}, err
	}

	contact := ContactFromFilename(path)
	norm := chatlog.NewNormalizer(r.cfg.Location)
	res := chatlog.Parse(
		chatlog.RawExport{Content: string(data), FormatHint: r.cfg.FormatHint, Contact: contact},
		chatlog.Options{Normalizer: norm, DropFallbacks: r.cfg.DropFallbacks},
	)

	if contact == "" {
		for _, m := range res.Messages {
			if m.IsFromContact {
				contact = m.Sender
				break
			}
		}
	}

	return exportFile{
		path:     path,
		content:  string(data),
		contact:  contact,
		format:   res.Format,
		messages: res.Messages,
		fp:       BuildFingerprint(path, res.Messages),
	}, nil
}

// postBatchSummary posts a daily summary of backfill results, grouped by date.
// Without a digester it logs the summary instead.
func (r *Runner) postBatchSummary(ctx context.Context, summaries []FileSummary) {
	if len(summaries) == 0 {
		return
	}

	text := FormatDailySummary(summaries)

	if r.digest == nil {
		r.logger.Info("backfill batch summary (no Slack configured)",
			"summary", text,
		)
		return
	}

	if _, err := r.digest.PostMessage(ctx, text); err != nil {
		r.logger.Warn("failed to post batch summary to Slack, logging instead",
			"error", err,
			"summary", text,
		)
	}
}

func (r *Runner) printSummary(summaries []FileSummary, state *BackfillState) {
	imported, messages, memories, dups, errs := 0, 0, 0, 0, 0
	for _, s := range summaries {
		switch {
		case s.Duplicate:
			dups++
		case s.Errors > 0:
			errs += s.Errors
		case s.Status == analytics.StatusImported:
			imported++
		}
		messages += s.Messages
		memories += s.Memories
	}

	out := r.cfg.Out
	fmt.Fprintf(out, "\n=== Backfill Summary ===\n")
	fmt.Fprintf(out, "Files imported: %d\n", imported)
	fmt.Fprintf(out, "Duplicates skipped: %d\n", dups)
	fmt.Fprintf(out, "Messages: %d\n", messages)
	fmt.Fprintf(out, "Memories: %d\n", memories)
	fmt.Fprintf(out, "Errors: %d\n", errs)
	if r.cfg.DryRun {
		fmt.Fprintf(out, "Mode: DRY RUN (no DB writes)\n")
	} else {
		fmt.Fprintf(out, "State file: %s\n", state.Path())
	}
}

// FormatDailySummary formats file summaries grouped by the date of each
// export's first message.
func FormatDailySummary(summaries []FileSummary) string {
	byDate := make(map[string][]FileSummary)
	for _, s := range summaries {
		date := s.Date
		if date == "" {
			date = "unknown"
		}
		byDate[date] = append(byDate[date], s)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var sb strings.Builder
	sb.WriteString("*Chat Import Batch Summary*\n")

	for _, date := range dates {
		files := byDate[date]
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		totalMsg, totalMem := 0, 0
		for _, f := range files {
			totalMsg += f.Messages
			totalMem += f.Memories
		}
		fmt.Fprintf(&sb, "\n*%s* (%d files, %d messages, %d memories)\n", date, len(files), totalMsg, totalMem)
		for _, f := range files {
			name := filepath.Base(f.Path)
			contact := f.Contact
			if contact == "" {
				contact = "unknown"
			}
			if f.Duplicate {
				fmt.Fprintf(&sb, "  - %s [%s]: duplicate, skipped\n", name, contact)
				continue
			}
			fmt.Fprintf(&sb, "  - %s [%s]: %d msg, %d sessions, %d memories", name, contact, f.Messages, f.Sessions, f.Memories)
			if f.Status == analytics.StatusNoContent {
				sb.WriteString(" (no parseable content)")
			}
			if f.Errors > 0 {
				fmt.Fprintf(&sb, " (%d errors)", f.Errors)
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func (r *Runner) discoverFiles() ([]string, error) {
	if r.cfg.SingleFile != "" {
		path := expandHome(r.cfg.SingleFile)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("single file not found: %s", path)
		}
		return []string{path}, nil
	}

	dir := expandHome(r.cfg.Dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("export dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("export dir %s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if !entry.IsDir() && IsExportFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("error walking export dir", "dir", dir, "error", err)
	}
	sort.Strings(files)
	return files, nil
}
