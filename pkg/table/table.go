// Package table implements the L9 relational layer: a schema-bearing
// collection of secret-shared columns plus the oblivious operators —
// filter, sort, shuffle, group-by aggregation, windowing, distinct,
// and equi-join — built on pkg/sortshuffle, pkg/aggregate, pkg/window
// and pkg/perm. Row counts (and therefore the padded size a table is
// compacted to) are treated as public, the same accepted leakage
// pkg/perm's and pkg/sortshuffle's reveal-based simplifications
// already carry; only column contents are protected.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/luxfi/orq/pkg/aggregate"
	"github.com/luxfi/orq/pkg/orqerr"
	"github.com/luxfi/orq/pkg/party"
	"github.com/luxfi/orq/pkg/perm"
	"github.com/luxfi/orq/pkg/protocol"
	"github.com/luxfi/orq/pkg/share"
	"github.com/luxfi/orq/pkg/sortshuffle"
	"github.com/luxfi/orq/pkg/vector"
	"github.com/luxfi/orq/pkg/window"
)

// Reserved column names: VALID marks a live row (added by
// NewWithValid), TABLE_ID distinguishes a join's two input sides once
// concatenated (stamped by Concatenate), UNIQ is the join's
// first-of-key-group scratch column (written by DistinctInto).
const (
	ColValid   = "__valid"
	ColTableID = "__table_id"
	ColUniq    = "__uniq"
)

// Column is one named, independently-encoded table column.
type Column[T vector.Numeric] struct {
	Name    string
	Boolean bool
	Data    share.Share[T]
}

// Table is an ordered set of equal-length columns sharing one schema.
type Table[T vector.Numeric] struct {
	Columns []Column[T]
	index   map[string]int
}

// New validates that every column has the same length and a unique
// name, then builds the schema index.
func New[T vector.Numeric](columns []Column[T]) (*Table[T], error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table: at least one column required: %w", orqerr.PreconditionViolated)
	}
	n := columns[0].Data.Size()
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if c.Data.Size() != n {
			return nil, fmt.Errorf("table: column %q size mismatch: %w", c.Name, orqerr.PreconditionViolated)
		}
		if _, dup := idx[c.Name]; dup {
			return nil, fmt.Errorf("table: duplicate column %q: %w", c.Name, orqerr.PreconditionViolated)
		}
		idx[c.Name] = i
	}
	return &Table[T]{Columns: columns, index: idx}, nil
}

// NewWithValid is New plus a freshly all-ones VALID column, the usual
// entry point for a table just loaded from secret-shared input.
func NewWithValid[T vector.Numeric](eng protocol.Engine[T], columns []Column[T]) (*Table[T], error) {
	n := columns[0].Data.Size()
	owner := eng.Parties().Sorted()[0]
	valid, err := eng.SecretShareA(vector.NewFilled[T](n, 1), owner)
	if err != nil {
		return nil, err
	}
	columns = append(columns, Column[T]{Name: ColValid, Data: valid})
	return New(columns)
}

func (t *Table[T]) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Data.Size()
}

func (t *Table[T]) Has(name string) bool { _, ok := t.index[name]; return ok }

func (t *Table[T]) Column(name string) (Column[T], error) {
	i, ok := t.index[name]
	if !ok {
		return Column[T]{}, fmt.Errorf("table: no column %q: %w", name, orqerr.PreconditionViolated)
	}
	return t.Columns[i], nil
}

func (t *Table[T]) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c.Name] = i
	}
}

// DeepCopy returns a table backed by independently materialized
// storage, so mutating the copy never aliases the original.
func (t *Table[T]) DeepCopy() *Table[T] {
	cols := make([]Column[T], len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = Column[T]{Name: c.Name, Boolean: c.Boolean, Data: c.Data.Map(func(v vector.Vec[T]) vector.Vec[T] { return v.Materialize() })}
	}
	out := &Table[T]{Columns: cols}
	out.reindex()
	return out
}

func sliceColumn[T vector.Numeric](c Column[T], start, end int) (Column[T], error) {
	parts := make([]vector.Vec[T], len(c.Data.Parts))
	for i, p := range c.Data.Parts {
		sliced, err := p.Slice(start, end)
		if err != nil {
			return Column[T]{}, err
		}
		parts[i] = sliced
	}
	s, err := share.New(parts)
	if err != nil {
		return Column[T]{}, err
	}
	return Column[T]{Name: c.Name, Boolean: c.Boolean, Data: s}, nil
}

// Head returns the first n rows as a new table aliasing t's storage.
func (t *Table[T]) Head(n int) (*Table[T], error) {
	cols := make([]Column[T], len(t.Columns))
	for i, c := range t.Columns {
		sliced, err := sliceColumn(c, 0, n)
		if err != nil {
			return nil, err
		}
		cols[i] = sliced
	}
	return New(cols)
}

// Tail returns the last n rows as a new table aliasing t's storage.
func (t *Table[T]) Tail(n int) (*Table[T], error) {
	rows := t.Rows()
	cols := make([]Column[T], len(t.Columns))
	for i, c := range t.Columns {
		sliced, err := sliceColumn(c, rows-n, rows)
		if err != nil {
			return nil, err
		}
		cols[i] = sliced
	}
	return New(cols)
}

// Resize grows (zero-padding) or shrinks every column to n rows
// in place.
func (t *Table[T]) Resize(n int) {
	for i := range t.Columns {
		t.Columns[i].Data.Resize(n)
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// PadPowerOfTwo grows t to the next power-of-two row count, marking
// every padding row VALID=0 (a precondition of pkg/sortshuffle's
// BitonicSort, which cannot operate on a non-power-of-two size).
func (t *Table[T]) PadPowerOfTwo() error {
	n := t.Rows()
	target := nextPowerOfTwo(n)
	if target == n {
		return nil
	}
	t.Resize(target)
	validIdx, ok := t.index[ColValid]
	if !ok {
		return fmt.Errorf("table: PadPowerOfTwo requires a %q column: %w", ColValid, orqerr.PreconditionViolated)
	}
	// Resize zero-fills new storage already; VALID's padding rows are
	// 0 automatically. Nothing further to do, this guard just
	// documents the invariant the caller is relying on.
	_ = validIdx
	return nil
}

// Filter ANDs predicate (A-shared 0/1, one entry per row) into VALID.
// Rows are not physically removed until Compact runs.
func (t *Table[T]) Filter(eng protocol.Engine[T], predicate share.Share[T]) error {
	i, ok := t.index[ColValid]
	if !ok {
		return fmt.Errorf("table: filter requires a %q column: %w", ColValid, orqerr.PreconditionViolated)
	}
	combined, err := eng.MultiplyA(t.Columns[i].Data, predicate)
	if err != nil {
		return err
	}
	t.Columns[i].Data = combined
	return nil
}

// Compact obliviously sorts rows by VALID descending and truncates to
// the revealed number of live rows, physically removing filtered-out
// rows. Row counts are public (see package doc).
func (t *Table[T]) Compact(eng protocol.Engine[T], mgr *perm.Manager) error {
	validIdx, ok := t.index[ColValid]
	if !ok {
		return fmt.Errorf("table: compact requires a %q column: %w", ColValid, orqerr.PreconditionViolated)
	}
	n := t.Rows()
	padded := t.DeepCopy()
	if err := padded.PadPowerOfTwo(); err != nil {
		return err
	}
	// BitonicSort sorts ascending; key each row by 1-VALID so rows with
	// VALID=1 (key 0) sort before the VALID=0 (key 1) rows, for signed
	// and unsigned T alike.
	ones := eng.PublicShare(vector.NewFilled[T](padded.Rows(), 1))
	invValid, err := eng.SubA(ones, padded.Columns[validIdx].Data)
	if err != nil {
		return err
	}
	payload := make([]share.Share[T], 0, len(padded.Columns))
	for i, c := range padded.Columns {
		if i == validIdx {
			continue
		}
		payload = append(payload, c.Data)
	}
	row := sortshuffle.Row[T]{Key: invValid, Payload: append([]share.Share[T]{padded.Columns[validIdx].Data}, payload...)}
	if err := sortshuffle.BitonicSort(eng, row); err != nil {
		return err
	}
	liveCount, err := eng.Open(countOnes(eng, t.Columns[validIdx].Data))
	if err != nil {
		return err
	}
	live := int(liveCount.At(0))
	if live > n {
		live = n
	}

	resultCols := make([]Column[T], len(padded.Columns))
	resultCols[validIdx] = Column[T]{Name: padded.Columns[validIdx].Name, Boolean: padded.Columns[validIdx].Boolean, Data: row.Payload[0]}
	pi := 1
	for i, c := range padded.Columns {
		if i == validIdx {
			continue
		}
		resultCols[i] = Column[T]{Name: c.Name, Boolean: c.Boolean, Data: row.Payload[pi]}
		pi++
	}
	result, err := New(resultCols)
	if err != nil {
		return err
	}
	resized, err := result.Head(live)
	if err != nil {
		return err
	}
	t.Columns = resized.Columns
	t.reindex()
	return nil
}

// countOnes sums an A-shared 0/1 column; additive shares sum linearly
// so this never drives a network round.
func countOnes[T vector.Numeric](eng protocol.Engine[T], flags share.Share[T]) share.Share[T] {
	return flags.Map(func(v vector.Vec[T]) vector.Vec[T] {
		sum, _ := v.ChunkedSum(v.Size())
		return sum
	})
}

// Sort obliviously shuffles then sorts t in place by keyColumn
// ascending. t must already be a power-of-two size (PadPowerOfTwo).
func (t *Table[T]) Sort(eng protocol.Engine[T], mgr *perm.Manager, keyColumn string) error {
	ki, ok := t.index[keyColumn]
	if !ok {
		return fmt.Errorf("table: no sort key column %q: %w", keyColumn, orqerr.PreconditionViolated)
	}
	payload := make([]share.Share[T], 0, len(t.Columns)-1)
	order := make([]int, 0, len(t.Columns)-1)
	for i, c := range t.Columns {
		if i == ki {
			continue
		}
		payload = append(payload, c.Data)
		order = append(order, i)
	}
	row := sortshuffle.Row[T]{Key: t.Columns[ki].Data, Payload: payload}
	sorted, err := sortshuffle.TableSort(eng, mgr, row)
	if err != nil {
		return err
	}
	t.Columns[ki].Data = sorted.Key
	for i, idx := range order {
		t.Columns[idx].Data = sorted.Payload[i]
	}
	return nil
}

// Shuffle obliviously permutes every row of t in place, consuming one
// sharded-permutation correlation from mgr.
func (t *Table[T]) Shuffle(eng protocol.Engine[T], mgr *perm.Manager) error {
	n := t.Rows()
	corr, err := mgr.GetNext(n)
	if err != nil {
		return err
	}
	for i, c := range t.Columns {
		shuffled, err := sortshuffle.Shuffle(eng, c.Data, corr, c.Boolean)
		if err != nil {
			return err
		}
		t.Columns[i].Data = shuffled
	}
	return nil
}

// ConvertAtoB converts an arithmetic column to its boolean encoding.
func (t *Table[T]) ConvertAtoB(eng protocol.Engine[T], name string) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("table: no column %q: %w", name, orqerr.PreconditionViolated)
	}
	if t.Columns[i].Boolean {
		return nil
	}
	b, err := eng.A2B(t.Columns[i].Data)
	if err != nil {
		return err
	}
	t.Columns[i].Data = b
	t.Columns[i].Boolean = true
	return nil
}

// ConvertBtoABit converts a single-bit boolean column to arithmetic.
func (t *Table[T]) ConvertBtoABit(eng protocol.Engine[T], name string) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("table: no column %q: %w", name, orqerr.PreconditionViolated)
	}
	if !t.Columns[i].Boolean {
		return nil
	}
	a, err := eng.B2ABit(t.Columns[i].Data)
	if err != nil {
		return err
	}
	t.Columns[i].Data = a
	t.Columns[i].Boolean = false
	return nil
}

func concatColumn[T vector.Numeric](name string, boolean bool, cols ...share.Share[T]) (Column[T], error) {
	r := cols[0].R()
	parts := make([]vector.Vec[T], r)
	for p := 0; p < r; p++ {
		vs := make([]vector.Vec[T], len(cols))
		for i, c := range cols {
			vs[i] = c.Parts[p]
		}
		parts[p] = vector.Concat(vs...)
	}
	s, err := share.New(parts)
	if err != nil {
		return Column[T]{}, err
	}
	return Column[T]{Name: name, Boolean: boolean, Data: s}, nil
}

// Concatenate unions tables' schemas row-wise (a table missing a
// column gets it zero-filled for its own rows), stamps TABLE_ID with
// each row's source table index (0 for the first table's rows, 1 for
// the second's, and so on — the 0/1 encoding every join uses to tell
// its two sides apart after they are merged), and, when padPow2 is
// set, pads the result to the next power of two with VALID=0 filler
// rows (spec.md §4.9).
func Concatenate[T vector.Numeric](eng protocol.Engine[T], padPow2 bool, tables ...*Table[T]) (*Table[T], error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("table: concatenate requires at least one table: %w", orqerr.PreconditionViolated)
	}
	var names []string
	seen := make(map[string]bool)
	boolOf := make(map[string]bool)
	for _, tb := range tables {
		for _, c := range tb.Columns {
			if c.Name == ColTableID {
				continue
			}
			if !seen[c.Name] {
				seen[c.Name] = true
				names = append(names, c.Name)
				boolOf[c.Name] = c.Boolean
			}
		}
	}

	cols := make([]Column[T], 0, len(names)+1)
	for _, name := range names {
		shares := make([]share.Share[T], len(tables))
		for ti, tb := range tables {
			if c, err := tb.Column(name); err == nil {
				shares[ti] = c.Data
			} else {
				shares[ti] = eng.PublicShare(vector.NewFilled[T](tb.Rows(), 0))
			}
		}
		merged, err := concatColumn(name, boolOf[name], shares...)
		if err != nil {
			return nil, err
		}
		cols = append(cols, merged)
	}

	idShares := make([]share.Share[T], len(tables))
	for ti, tb := range tables {
		idShares[ti] = eng.PublicShare(vector.NewFilled[T](tb.Rows(), T(ti)))
	}
	idCol, err := concatColumn(ColTableID, false, idShares...)
	if err != nil {
		return nil, err
	}
	cols = append(cols, idCol)

	out, err := New(cols)
	if err != nil {
		return nil, err
	}
	if padPow2 {
		if err := out.PadPowerOfTwo(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AggregateDirection selects which row of a group Aggregate leaves its
// finished result in (spec.md §4.7): Forward scans from the group's
// first row and leaves the result in its last row; Reverse scans from
// the last row and leaves the result in its first row.
type AggregateDirection int

const (
	Forward AggregateDirection = iota
	Reverse
)

// AggregateOptions configures AggregateWithOptions; the zero value is
// Forward direction with every row contributing to every selector.
type AggregateOptions struct {
	Direction AggregateDirection
	// SelB, if non-empty, names an A-shared 0/1 column (typically
	// TABLE_ID) that restricts which rows contribute to non-copy
	// selectors — the join machinery's way of aggregating only one
	// side of a concatenated table (spec.md §4.9.1).
	SelB string
}

func reverseShare[T vector.Numeric](s share.Share[T]) (share.Share[T], error) {
	parts := make([]vector.Vec[T], len(s.Parts))
	for i, p := range s.Parts {
		rev, err := p.DirectedSubsetReference(-1)
		if err != nil {
			return share.Share[T]{}, err
		}
		parts[i] = rev
	}
	return share.New(parts)
}

// Aggregate runs a forward group-by reduction over t (see
// AggregateWithOptions), which must already be sorted by groupKey
// ascending.
func (t *Table[T]) Aggregate(eng protocol.Engine[T], groupKey string, selectors []aggregate.AggregationSelector) error {
	return t.AggregateWithOptions(eng, groupKey, selectors, AggregateOptions{})
}

// AggregateWithOptions runs a group-by reduction over t, which must
// already be sorted by groupKey ascending. Every selector's running
// per-row scan is written back under its own column name. VALID is
// narrowed to "representative row of its group AND previously valid"
// only when the spec contains at least one real aggregation
// (AggregationSelector.IsAggregation); a spec built purely of Copy/
// Valid identity selectors changes no row's meaning, so there is
// nothing to narrow (spec.md §4.9, the mark_valid condition a join's
// carried-columns-only aggregate spec relies on).
func (t *Table[T]) AggregateWithOptions(eng protocol.Engine[T], groupKey string, selectors []aggregate.AggregationSelector, opts AggregateOptions) error {
	keyCol, err := t.Column(groupKey)
	if err != nil {
		return err
	}
	flags, err := aggregate.AdjacentDistinct(eng, keyCol.Data)
	if err != nil {
		return err
	}
	lastOfGroup, err := appendLastFlag(eng, flags)
	if err != nil {
		return err
	}

	var selMask share.Share[T]
	if opts.SelB != "" {
		selCol, err := t.Column(opts.SelB)
		if err != nil {
			return err
		}
		selMask = selCol.Data
	}

	hasRealAgg := false
	for _, sel := range selectors {
		col, err := t.Column(sel.Column())
		if err != nil {
			return err
		}
		values := col.Data
		if selMask.Size() > 0 && sel.IsAggregation() {
			values, err = eng.MultiplyA(values, selMask)
			if err != nil {
				return err
			}
		}
		if sel.IsAggregation() {
			hasRealAgg = true
		}

		var scanned share.Share[T]
		if opts.Direction == Reverse {
			revValues, err := reverseShare(values)
			if err != nil {
				return err
			}
			revFlags, err := reverseShare(lastOfGroup)
			if err != nil {
				return err
			}
			revScanned, err := aggregate.SegmentedScan(eng, sel.Op(), revValues, revFlags)
			if err != nil {
				return err
			}
			scanned, err = reverseShare(revScanned)
			if err != nil {
				return err
			}
		} else {
			scanned, err = aggregate.SegmentedScan(eng, sel.Op(), values, flags)
			if err != nil {
				return err
			}
		}
		t.Columns[t.index[sel.Column()]].Data = scanned
	}

	validIdx, ok := t.index[ColValid]
	if ok && hasRealAgg {
		marker := lastOfGroup
		if opts.Direction == Reverse {
			marker = flags
		}
		narrowed, err := eng.MultiplyA(t.Columns[validIdx].Data, marker)
		if err != nil {
			return err
		}
		t.Columns[validIdx].Data = narrowed
	}
	return nil
}

// appendLastFlag marks row i as 1 iff flags[i+1]==1 (it is the final
// row of its run) or i is the table's last row.
func appendLastFlag[T vector.Numeric](eng protocol.Engine[T], flags share.Share[T]) (share.Share[T], error) {
	n := flags.Size()
	if n == 0 {
		return flags, nil
	}
	head, err := sliceShare(flags, 1, n)
	if err != nil {
		return share.Share[T]{}, err
	}
	last := eng.PublicShare(vector.New([]T{1}))
	parts := make([]vector.Vec[T], len(head.Parts))
	for i := range parts {
		parts[i] = vector.Concat(head.Parts[i], last.Parts[i])
	}
	return share.New(parts)
}

func sliceShare[T vector.Numeric](s share.Share[T], start, end int) (share.Share[T], error) {
	parts := make([]vector.Vec[T], len(s.Parts))
	for i, p := range s.Parts {
		sliced, err := p.Slice(start, end)
		if err != nil {
			return share.Share[T]{}, err
		}
		parts[i] = sliced
	}
	return share.New(parts)
}

// Distinct removes duplicate rows as determined by keyColumn, which
// must already be sorted ascending: only the first row of each run of
// equal keys stays VALID.
func (t *Table[T]) Distinct(eng protocol.Engine[T], keyColumn string) error {
	keyCol, err := t.Column(keyColumn)
	if err != nil {
		return err
	}
	firstOfGroup, err := aggregate.AdjacentDistinct(eng, keyCol.Data)
	if err != nil {
		return err
	}
	validIdx, ok := t.index[ColValid]
	if !ok {
		return fmt.Errorf("table: distinct requires a %q column: %w", ColValid, orqerr.PreconditionViolated)
	}
	narrowed, err := eng.MultiplyA(t.Columns[validIdx].Data, firstOfGroup)
	if err != nil {
		return err
	}
	t.Columns[validIdx].Data = narrowed
	return nil
}

// DistinctInto computes, for t (already sorted by keyColumn ascending),
// a 0/1 "this row is the first of its key group" flag (1 for row 0 and
// for every row whose key differs from its predecessor's) and writes
// it into a column named uniqCol — spec.md §4.9.1's UNIQ scratch
// column, appended if absent. Unlike Distinct, it leaves VALID alone:
// the caller (join) combines UNIQ with TABLE_ID itself to compute
// VALID_TEMP.
func (t *Table[T]) DistinctInto(eng protocol.Engine[T], keyColumn, uniqCol string) error {
	keyCol, err := t.Column(keyColumn)
	if err != nil {
		return err
	}
	firstOfGroup, err := aggregate.AdjacentDistinct(eng, keyCol.Data)
	if err != nil {
		return err
	}
	if idx, ok := t.index[uniqCol]; ok {
		t.Columns[idx].Data = firstOfGroup
	} else {
		t.Columns = append(t.Columns, Column[T]{Name: uniqCol, Data: firstOfGroup})
		t.reindex()
	}
	return nil
}

// DeleteColumn drops a column (e.g. the join's scratch UNIQ/VALID_TEMP
// or TABLE_ID) once it has served its purpose.
func (t *Table[T]) DeleteColumn(name string) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("table: no column %q: %w", name, orqerr.PreconditionViolated)
	}
	t.Columns = append(t.Columns[:i], t.Columns[i+1:]...)
	t.reindex()
	return nil
}

// ThresholdSessionWindow assigns change-point session ids over
// valueColumn, writing them into a new column named outputColumn.
func (t *Table[T]) ThresholdSessionWindow(eng protocol.Engine[T], valueColumn, outputColumn string, threshold T) error {
	col, err := t.Column(valueColumn)
	if err != nil {
		return err
	}
	assign, err := window.ThresholdSession(eng, col.Data, threshold)
	if err != nil {
		return err
	}
	t.Columns = append(t.Columns, Column[T]{Name: outputColumn, Data: assign.ID})
	t.reindex()
	return nil
}

// TumblingWindow assigns window ids over timeColumn, writing them into
// a new column named outputColumn.
func (t *Table[T]) TumblingWindow(eng protocol.Engine[T], timeColumn, outputColumn string, size T) error {
	col, err := t.Column(timeColumn)
	if err != nil {
		return err
	}
	assign, err := window.Tumbling(eng, col.Data, size)
	if err != nil {
		return err
	}
	t.Columns = append(t.Columns, Column[T]{Name: outputColumn, Data: assign.ID})
	t.reindex()
	return nil
}

// GapSessionWindow assigns session ids over timeColumn using a gap
// threshold, writing them into a new column named outputColumn.
func (t *Table[T]) GapSessionWindow(eng protocol.Engine[T], timeColumn, outputColumn string, maxGap T) error {
	col, err := t.Column(timeColumn)
	if err != nil {
		return err
	}
	assign, err := window.GapSession(eng, col.Data, maxGap)
	if err != nil {
		return err
	}
	t.Columns = append(t.Columns, Column[T]{Name: outputColumn, Data: assign.ID})
	t.reindex()
	return nil
}

// ReadCSVFile parses a header + numeric-row CSV file local to owner
// and secret-shares every column. Every party passes a reader with the
// same header and number of rows; only the owner's values determine
// the shared values, and an empty reader is an error.
func ReadCSVFile[T vector.Numeric](eng protocol.Engine[T], r io.Reader, owner party.ID) (*Table[T], error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("table: empty csv: %w", orqerr.IOError)
		}
		return nil, fmt.Errorf("table: csv header: %w", orqerr.Wrap(err.Error(), orqerr.IOError))
	}
	data := make([][]T, len(header))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("table: csv row: %w", orqerr.Wrap(err.Error(), orqerr.IOError))
		}
		for i, field := range rec {
			v, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("table: csv field %q: %w", field, orqerr.Wrap(err.Error(), orqerr.IOError))
			}
			data[i] = append(data[i], T(v))
		}
	}
	cols := make([]Column[T], len(header))
	for i, name := range header {
		s, err := eng.SecretShareA(vector.New(data[i]), owner)
		if err != nil {
			return nil, err
		}
		cols[i] = Column[T]{Name: name, Data: s}
	}
	return NewWithValid(eng, cols)
}

// WriteCSV opens every column and writes the table as header + rows.
func WriteCSV[T vector.Numeric](eng protocol.Engine[T], t *Table[T], w io.Writer) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(t.Columns))
	opened := make([]vector.Vec[T], len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
		v, err := eng.Open(c.Data)
		if err != nil {
			return err
		}
		opened[i] = v
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("table: csv write header: %w", orqerr.Wrap(err.Error(), orqerr.IOError))
	}
	rows := t.Rows()
	for r := 0; r < rows; r++ {
		rec := make([]string, len(t.Columns))
		for c := range t.Columns {
			rec[c] = strconv.FormatInt(int64(opened[c].At(r)), 10)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("table: csv write row: %w", orqerr.Wrap(err.Error(), orqerr.IOError))
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile is WriteCSV against an on-disk file.
func WriteCSVFile[T vector.Numeric](eng protocol.Engine[T], t *Table[T], path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("table: create %q: %w", path, orqerr.Wrap(err.Error(), orqerr.IOError))
	}
	defer f.Close()
	return WriteCSV(eng, t, f)
}
