package services

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cite-ledger/models"

	"github.com/nickng/bibtex"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FormatBibTeX is the only bibliographic record notation currently
// supported.
const FormatBibTeX = "bibtex"

// DumpFormatText renders each record as a human-readable citation string
// instead of returning the raw record.
const DumpFormatText = "text"

const (
	minLevel = 1
	maxLevel = 3
)

// Ledger tracks every citation a program makes, deduplicating identical
// references and counting how often and where each one is mentioned. A
// Ledger owns one exclusive sqlite connection for its lifetime and is
// single-threaded: callers needing concurrent recording must serialize
// access themselves.
type Ledger struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewLedger opens (or creates) the ledger database at path and prepares
// the citation and context tables. The path is the ledger's only
// configuration input.
func NewLedger(path string, log *zap.Logger) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: a database path must be provided", ErrInvalidArgument)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// one exclusive connection; the ledger is sequential by contract
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Citation{}, &models.Context{}); err != nil {
		return nil, fmt.Errorf("migrate ledger schema: %w", err)
	}
	return &Ledger{db: db, logger: log}, nil
}

// Close flushes pending writes and releases the database connection.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CiteRequest carries one citation mention. Raw, Alias, Module and Note
// are required; Level defaults to 1 and the DOI is extracted from Raw
// when not supplied. Format tags the notation of Raw.
type CiteRequest struct {
	Raw    string `json:"raw"`
	Alias  string `json:"alias"`
	Module string `json:"module"`
	Note   string `json:"note"`
	Level  int    `json:"level"`
	DOI    string `json:"doi"`
	Format string `json:"format"`
}

// Cite records one mention of a reference and returns its citation id.
// The first sighting of a record inserts the citation together with its
// first context in one transaction; a repeated (reference, module, note,
// level) tuple only increments that context's counter.
func (l *Ledger) Cite(req CiteRequest) (uint, error) {
	if req.Raw == "" || req.Alias == "" || req.Module == "" || req.Note == "" {
		return 0, fmt.Errorf("%w: raw, alias, module and note must all be provided", ErrInvalidArgument)
	}
	if req.Level == 0 {
		req.Level = minLevel
	}
	if req.Level < minLevel || req.Level > maxLevel {
		return 0, fmt.Errorf("%w: level must be between %d and %d", ErrInvalidArgument, minLevel, maxLevel)
	}
	format := req.Format
	if format == "" {
		format = FormatBibTeX
	}
	if format != FormatBibTeX {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	doi := strings.TrimSpace(req.DOI)
	if doi == "" {
		doi = extractDOI(req.Raw)
	}

	var referenceID uint
	err := l.db.Transaction(func(tx *gorm.DB) error {
		citation, err := resolveCitation(tx, req.Raw, req.Alias, doi)
		if err != nil {
			return err
		}
		if citation == nil {
			citation = &models.Citation{Alias: req.Alias, Raw: req.Raw}
			if doi != "" {
				citation.DOI = &doi
			}
			if err := tx.Create(citation).Error; err != nil {
				return err
			}
			referenceID = citation.ID
			return tx.Create(&models.Context{
				ReferenceID: citation.ID,
				Module:      req.Module,
				Note:        req.Note,
				Level:       req.Level,
				Count:       1,
			}).Error
		}
		referenceID = citation.ID
		return upsertContext(tx, citation.ID, req)
	})
	if err != nil {
		return 0, fmt.Errorf("record citation: %w", err)
	}

	l.logger.Debug("Citation recorded",
		zap.Uint("reference_id", referenceID),
		zap.String("alias", req.Alias),
		zap.String("module", req.Module),
		zap.Int("level", req.Level))
	return referenceID, nil
}

// resolveCitation looks an existing citation up by raw text first (the
// record text is the authoritative identity), then alias, then DOI.
// Returns nil when the reference has never been seen.
func resolveCitation(tx *gorm.DB, raw, alias, doi string) (*models.Citation, error) {
	keys := []struct {
		column string
		value  string
	}{
		{"raw", raw},
		{"alias", alias},
		{"doi", doi},
	}
	for _, key := range keys {
		if key.value == "" {
			continue
		}
		var citation models.Citation
		err := tx.Where(key.column+" = ?", key.value).First(&citation).Error
		if err == nil {
			return &citation, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// upsertContext inserts the context for a known citation or increments
// its counter when the exact tuple already exists.
func upsertContext(tx *gorm.DB, referenceID uint, req CiteRequest) error {
	var ctx models.Context
	err := tx.Where("reference_id = ? AND module = ? AND note = ? AND level = ?",
		referenceID, req.Module, req.Note, req.Level).First(&ctx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&models.Context{
			ReferenceID: referenceID,
			Module:      req.Module,
			Note:        req.Note,
			Level:       req.Level,
			Count:       1,
		}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&ctx).UpdateColumn("count", gorm.Expr("count + ?", 1)).Error
}

// extractDOI pulls the doi field out of a raw BibTeX record, if any.
// Records the parser cannot handle simply yield no DOI.
func extractDOI(raw string) string {
	bib, err := bibtex.Parse(strings.NewReader(raw))
	if err != nil || len(bib.Entries) == 0 {
		return ""
	}
	if v, ok := bib.Entries[0].Fields["doi"]; ok {
		return strings.TrimSpace(v.String())
	}
	return ""
}

// DumpOptions select and shape the dump output. A nil Level disables the
// importance filter; Outfile, when set, additionally writes one
// plain-text block per row.
type DumpOptions struct {
	Outfile string `json:"outfile"`
	Format  string `json:"fmt"`
	Level   *int   `json:"level"`
}

// DumpRow is one aggregated citation: the citation id, its raw or
// rendered record, the mention count summed over all qualifying contexts
// and the largest level number among them.
type DumpRow struct {
	ReferenceID   uint   `json:"reference_id"`
	Entry         string `json:"entry"`
	TotalMentions int64  `json:"total_mentions"`
	MaxLevel      int    `json:"max_level"`
}

// Dump aggregates every citation with at least one context at or below
// the level threshold, most-mentioned first. Format "bibtex" returns the
// raw records; "text" renders each record and normalizes its LaTeX
// notation and inline math to Unicode. Citations whose qualifying
// contexts sum to zero are excluded rather than listed with count 0.
func (l *Ledger) Dump(opts DumpOptions) ([]DumpRow, error) {
	format := opts.Format
	if format == "" {
		format = FormatBibTeX
	}
	if format != FormatBibTeX && format != DumpFormatText {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	level := maxLevel
	if opts.Level != nil {
		level = *opts.Level
		if level < minLevel || level > maxLevel {
			return nil, fmt.Errorf("%w: level must be between %d and %d or omitted", ErrInvalidArgument, minLevel, maxLevel)
		}
	}

	type aggRow struct {
		ID       uint
		Raw      string
		Mentions int64
		MaxLevel int
	}
	var rows []aggRow
	err := l.db.Table("citation").
		Select("citation.id AS id, citation.raw AS raw, SUM(context.count) AS mentions, MAX(context.level) AS max_level").
		Joins("JOIN context ON context.reference_id = citation.id").
		Where("context.level <= ?", level).
		Group("citation.id").
		Having("SUM(context.count) > 0").
		Order("mentions DESC, id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("dump query: %w", err)
	}

	out := make([]DumpRow, 0, len(rows))
	for _, row := range rows {
		entry := row.Raw
		if format == DumpFormatText {
			entry = l.renderEntry(row.Raw)
		}
		out = append(out, DumpRow{
			ReferenceID:   row.ID,
			Entry:         entry,
			TotalMentions: row.Mentions,
			MaxLevel:      row.MaxLevel,
		})
	}

	if opts.Outfile != "" {
		if err := writeDumpFile(opts.Outfile, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// renderEntry parses one raw record and renders its human-readable form.
// A record the parser cannot handle degrades to its raw text so the dump
// keeps going; failure isolation is per record.
func (l *Ledger) renderEntry(raw string) string {
	bib, err := bibtex.Parse(strings.NewReader(raw))
	if err != nil || len(bib.Entries) == 0 {
		l.logger.Warn("Record could not be parsed for text rendering", zap.Error(err))
		return strings.TrimSpace(raw)
	}
	return DecodeMathSymbols(DecodeLaTeX(FormatEntry(bib.Entries[0])))
}

// writeDumpFile creates (or overwrites) the dump file, one block per
// citation: the total-mentions line, the level line and the record text.
func writeDumpFile(path string, rows []DumpRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dump file: %w", err)
	}
	defer f.Close()
	for _, row := range rows {
		if _, err := fmt.Fprintf(f, "TOTAL_MENTIONS: %d\nLEVEL: %d\n%s", row.TotalMentions, row.MaxLevel, row.Entry); err != nil {
			return fmt.Errorf("write dump file: %w", err)
		}
		if !strings.HasSuffix(row.Entry, "\n") {
			if _, err := f.WriteString("\n"); err != nil {
				return fmt.Errorf("write dump file: %w", err)
			}
		}
	}
	return nil
}

// TotalCitations reports the global citation count when no selector is
// given, otherwise 1 or 0 for the existence of the citation selected by
// id or alias.
func (l *Ledger) TotalCitations(referenceID uint, alias string) (int64, error) {
	query := l.db.Model(&models.Citation{})
	switch {
	case referenceID != 0:
		query = query.Where("id = ?", referenceID)
	case alias != "":
		query = query.Where("alias = ?", alias)
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// TotalMentions sums the context counters of one citation; 0 when the
// citation does not exist.
func (l *Ledger) TotalMentions(referenceID uint, alias string) (int64, error) {
	id, err := l.resolveID(referenceID, alias)
	if err != nil || id == 0 {
		return 0, err
	}
	var total int64
	err = l.db.Model(&models.Context{}).
		Where("reference_id = ?", id).
		Select("COALESCE(SUM(count), 0)").
		Scan(&total).Error
	return total, err
}

// TotalContexts counts the distinct usage contexts of one citation; 0
// when the citation does not exist.
func (l *Ledger) TotalContexts(referenceID uint, alias string) (int64, error) {
	id, err := l.resolveID(referenceID, alias)
	if err != nil || id == 0 {
		return 0, err
	}
	var n int64
	err = l.db.Model(&models.Context{}).Where("reference_id = ?", id).Count(&n).Error
	return n, err
}

// resolveID maps an id-or-alias selector to a citation id, preferring the
// id. Returns 0 for an unknown alias; one of the two selectors must be
// usable.
func (l *Ledger) resolveID(referenceID uint, alias string) (uint, error) {
	if referenceID != 0 {
		return referenceID, nil
	}
	if alias == "" {
		return 0, fmt.Errorf("%w: a reference id or alias must be provided", ErrInvalidArgument)
	}
	var citation models.Citation
	err := l.db.Select("id").Where("alias = ?", alias).First(&citation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return citation.ID, nil
}

// LoadBibliography reads a bibliographic file and returns an alias to
// raw-record map for every entry found. The records are re-serialized, so
// they may differ textually from the file.
func LoadBibliography(bibfile, format string) (map[string]string, error) {
	if bibfile == "" {
		return nil, fmt.Errorf("%w: a bibliography file must be specified", ErrNotFound)
	}
	if format == "" {
		format = FormatBibTeX
	}
	if format != FormatBibTeX {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	f, err := os.Open(bibfile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, bibfile)
		}
		return nil, err
	}
	defer f.Close()
	bib, err := bibtex.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse bibliography %s: %w", bibfile, err)
	}
	entries := make(map[string]string, len(bib.Entries))
	for _, entry := range bib.Entries {
		entries[entry.CiteName] = EntryToBibTeX(entry)
	}
	return entries, nil
}
