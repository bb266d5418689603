package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/hollydata/filmcrawl/internal/profile"
	"github.com/hollydata/filmcrawl/internal/store"
)

// UnitedSource is the store source the merged cross-source profiles are
// persisted under.
const UnitedSource = "united"

// Assembler reads stored profiles and materializes dataset variants.
type Assembler struct {
	store  *store.Store
	logger *zap.Logger
}

// New returns an assembler over the given store.
func New(st *store.Store, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{store: st, logger: logger}
}

// row carries one selected key through the derivation steps.
type row struct {
	key   string
	prof  *profile.Profile
	cells map[string]profile.Scalar
}

// Build assembles the dataset described by spec and writes it to outPath as
// CSV. The file is staged to a temp path and renamed into place, so a
// truncated dataset is never visible. It returns the number of data rows
// written.
//
// Each derivation step runs to completion over every selected row before the
// next step begins; the one-hot vocabularies depend on the whole row set.
func (a *Assembler) Build(spec Spec, outPath string) (int, error) {
	keys, err := a.selectKeys(spec.Sources)
	if err != nil {
		return 0, err
	}

	rows := make([]*row, 0, len(keys))
	for _, key := range keys {
		prof, err := a.unionForKey(spec.Sources, key)
		if err != nil {
			return 0, err
		}
		rows = append(rows, &row{key: key, prof: prof})
	}

	header := deriveColumns(spec, rows)
	for _, r := range rows {
		fillCells(spec, r, header)
	}
	rows = filterRows(spec, rows)

	if err := writeCSV(outPath, header, rows); err != nil {
		return 0, err
	}
	a.logger.Info("dataset written",
		zap.String("dataset", spec.Name),
		zap.String("path", outPath),
		zap.Int("rows", len(rows)),
		zap.Int("columns", len(header)),
	)
	return len(rows), nil
}

// Unite merges the profiles of every key present under all of the given
// sources and persists each merged record under the united source,
// overwriting prior united records for those keys. It returns the number of
// merged profiles written.
func (a *Assembler) Unite(sources []string) (int, error) {
	keys, err := a.selectKeys(sources)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		prof, err := a.unionForKey(sources, key)
		if err != nil {
			return 0, err
		}
		if err := a.store.Put(UnitedSource, key, prof); err != nil {
			return 0, fmt.Errorf("persist united profile %s: %w", key, err)
		}
	}
	a.logger.Info("profiles united", zap.Strings("sources", sources), zap.Int("count", len(keys)))
	return len(keys), nil
}

// selectKeys returns the sorted key set for the dataset: every key of a
// single source, or the intersection of the key sets of several. A key with
// a missing source makes an incomplete row, so it is excluded rather than
// imputed.
func (a *Assembler) selectKeys(sources []string) ([]string, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}
	seen := map[string]int{}
	for _, src := range sources {
		keys, err := a.store.Keys(src)
		if err != nil {
			return nil, fmt.Errorf("list %s keys: %w", src, err)
		}
		for _, key := range keys {
			seen[key]++
		}
	}
	var selected []string
	for key, n := range seen {
		if n == len(sources) {
			selected = append(selected, key)
		}
	}
	sort.Strings(selected)
	return selected, nil
}

// unionForKey merges the per-source profiles stored under key into one
// record. Sources prefix their field names distinctly, so collisions should
// not occur; when they do, the later source wins. That is a known limitation
// of the union, not a guarantee.
func (a *Assembler) unionForKey(sources []string, key string) (*profile.Profile, error) {
	merged := profile.New(UnitedSource, "")
	merged.Key = key
	for _, src := range sources {
		prof, err := a.store.Get(src, key)
		if err != nil {
			return nil, fmt.Errorf("load %s/%s: %w", src, key, err)
		}
		if merged.Name == "" {
			merged.Name = prof.Name
		}
		merged.Merge(prof)
	}
	return merged, nil
}

// deriveColumns computes the full header. Scalar columns come from the
// union of observed field names; keyed-numeric columns come from the fixed
// declared vocabularies regardless of observation; one-hot columns come from
// the values observed across the whole row set. The header starts with key
// and name, then the remaining columns in lexicographic order.
func deriveColumns(spec Spec, rows []*row) []string {
	cols := map[string]struct{}{}

	for _, r := range rows {
		for name := range r.prof.Scalars {
			// key and name are the row identity columns; extractors also
			// store a name scalar, which must not become a second column.
			if name == "key" || name == "name" {
				continue
			}
			cols[name] = struct{}{}
		}
	}

	for field, vocab := range spec.TableVocabs {
		for _, cat := range vocab {
			cols[field+"."+cat] = struct{}{}
		}
	}

	for _, field := range spec.ListFields {
		for _, r := range rows {
			for _, value := range r.prof.Lists[field] {
				cols[field+"."+value] = struct{}{}
			}
		}
	}

	for _, agg := range spec.ReviewAggs {
		cols[agg.CountColumn] = struct{}{}
		cols[agg.MeanColumn] = struct{}{}
		cols[agg.CountColumn+"_by_opening"] = struct{}{}
		cols[agg.MeanColumn+"_by_opening"] = struct{}{}
	}

	for _, split := range spec.DateSplits {
		cols[split.Prefix+"_month"] = struct{}{}
		cols[split.Prefix+"_day"] = struct{}{}
		cols[split.Prefix+"_day_of_year"] = struct{}{}
	}

	rest := make([]string, 0, len(cols))
	for name := range cols {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append([]string{"key", "name"}, rest...)
}

// fillCells computes every header cell for one row. Columns the row has no
// value for stay null and render as empty cells.
func fillCells(spec Spec, r *row, header []string) {
	cells := make(map[string]profile.Scalar, len(header))
	cells["key"] = profile.StringScalar(r.key)
	cells["name"] = profile.StringScalar(r.prof.Name)

	for name, v := range r.prof.Scalars {
		if name == "key" || name == "name" {
			continue
		}
		cells[name] = v
	}

	for field, vocab := range spec.TableVocabs {
		table := r.prof.Tables[field]
		for _, cat := range vocab {
			if n, ok := table[cat]; ok {
				cells[field+"."+cat] = profile.FloatScalar(n)
			}
		}
	}

	for _, field := range spec.ListFields {
		values := r.prof.Lists[field]
		member := make(map[string]bool, len(values))
		for _, v := range values {
			member[v] = true
		}
		prefix := field + "."
		for _, col := range header {
			if len(col) <= len(prefix) || col[:len(prefix)] != prefix {
				continue
			}
			// An absent list yields 0 everywhere, a simplification that
			// conflates "no tags" with "tags unknown".
			if member[col[len(prefix):]] {
				cells[col] = profile.IntScalar(1)
			} else {
				cells[col] = profile.IntScalar(0)
			}
		}
	}

	refDate, hasRef := rowRefDate(spec, r)
	for _, agg := range spec.ReviewAggs {
		reviews := r.prof.Reviews[agg.Collection]
		cells[agg.CountColumn], cells[agg.MeanColumn] = reviewStats(reviews)
		if hasRef {
			var before []profile.Review
			for _, rev := range reviews {
				if rev.Date.Kind() != profile.Date {
					continue
				}
				if !rev.Date.Date().After(refDate.Date()) {
					before = append(before, rev)
				}
			}
			cells[agg.CountColumn+"_by_opening"], cells[agg.MeanColumn+"_by_opening"] = reviewStats(before)
		}
	}

	for _, split := range spec.DateSplits {
		if d, ok := r.prof.Scalars[split.Column]; ok && d.Kind() == profile.Date {
			t := d.Date()
			cells[split.Prefix+"_month"] = profile.IntScalar(int64(t.Month()))
			cells[split.Prefix+"_day"] = profile.IntScalar(int64(t.Day()))
			cells[split.Prefix+"_day_of_year"] = profile.IntScalar(int64(t.YearDay()))
		}
	}

	r.cells = cells
}

// reviewStats returns the count and mean-score cells for a review slice.
// The mean of an empty collection is null, not zero.
func reviewStats(reviews []profile.Review) (count, mean profile.Scalar) {
	count = profile.IntScalar(int64(len(reviews)))
	if len(reviews) == 0 {
		return count, profile.NullScalar()
	}
	var sum float64
	for _, rev := range reviews {
		sum += rev.Score
	}
	return count, profile.FloatScalar(sum / float64(len(reviews)))
}

// rowRefDate resolves the reference date anchoring the restricted review
// statistics. Without it those statistics stay null.
func rowRefDate(spec Spec, r *row) (profile.Scalar, bool) {
	if spec.RefDateColumn == "" {
		return profile.NullScalar(), false
	}
	d, ok := r.prof.Scalars[spec.RefDateColumn]
	if !ok || d.Kind() != profile.Date {
		return profile.NullScalar(), false
	}
	return d, true
}

// filterRows applies the mandatory-reference-date exclusion. Rows are
// dropped only here, after the global vocabularies were derived.
func filterRows(spec Spec, rows []*row) []*row {
	if !spec.RequireRefDate || spec.RefDateColumn == "" {
		return rows
	}
	kept := rows[:0]
	for _, r := range rows {
		if _, ok := rowRefDate(spec, r); ok {
			kept = append(kept, r)
		}
	}
	return kept
}

// writeCSV stages the dataset to a temp file and renames it into place.
func writeCSV(outPath string, header []string, rows []*row) error {
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("stage dataset: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write dataset header: %w", err)
	}
	record := make([]string, len(header))
	for _, r := range rows {
		for i, col := range header {
			record[i] = r.cells[col].Cell()
		}
		if err := w.Write(record); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write dataset row %s: %w", r.key, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return fmt.Errorf("commit dataset: %w", err)
	}
	return nil
}
