package row

import (
	"fmt"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/value"
)

// Row count ceilings enforced before a batch leaves the process.
const (
	MaxMultiGetRows   = 100
	MaxMultiWriteRows = 1000
)

// BatchOp selects the kind of a batch and with it the row ceiling.
type BatchOp uint8

const (
	BatchGet BatchOp = iota
	BatchPut
	BatchDelete
)

func (op BatchOp) String() string {
	switch op {
	case BatchGet:
		return "MultiGetRow"
	case BatchPut:
		return "MultiPutRow"
	case BatchDelete:
		return "MultiDeleteRow"
	default:
		return fmt.Sprintf("BatchOp(%d)", uint8(op))
	}
}

// Limit returns the maximum number of rows per batch.
func (op BatchOp) Limit() int {
	if op == BatchGet {
		return MaxMultiGetRows
	}
	return MaxMultiWriteRows
}

// BatchItem is one caller supplied row of a batch. Which fields are used depends on
// the BatchOp: gets and deletes use ColumnNames, puts use Columns and Checking.
type BatchItem struct {
	PrimaryKey  []Item
	Columns     []Item
	ColumnNames []string
	Checking    Checking
}

// BatchEntry is one encoded row of a batch request.
type BatchEntry struct {
	Table       string
	Row         Row
	ColumnNames []string
	Checking    Checking
}

// WireResult is one decoded, not yet flattened, batch result item.
type WireResult struct {
	Succeeded bool
	Code      string
	Message   string
	Table     string
	Row       *Row
}

// ItemError describes why a single batch item failed.
type ItemError struct {
	Code    string
	Message string
}

func (e *ItemError) Error() string { return fmt.Sprintf("%sError: %s", e.Code, e.Message) }

// ItemResult is the per-item outcome of a batch. Error is nil if Succeeded.
type ItemResult struct {
	Succeeded bool
	Error     *ItemError
	Table     string
	Row       map[string]any
}

// BuildBatch encodes items for op against table. Empty batches, batches over the
// ceiling and items with empty keys are rejected before any network call.
func BuildBatch(op BatchOp, table string, items []BatchItem) ([]BatchEntry, error) {
	if table == "" {
		return nil, apierr.Invalid("table name must not be empty")
	}
	if len(items) == 0 {
		return nil, apierr.Invalid("%s requires at least one row", op)
	}
	if len(items) > op.Limit() {
		return nil, apierr.Invalid(apierr.MessageRowsCountExceedsLimit)
	}

	entries := make([]BatchEntry, len(items))
	for i, it := range items {
		var (
			r   Row
			err error
		)
		if op == BatchPut {
			r, err = BuildRow(it.PrimaryKey, it.Columns)
		} else {
			r.PrimaryKey, err = BuildKey(it.PrimaryKey)
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		entries[i] = BatchEntry{Table: table, Row: r}
		switch op {
		case BatchPut:
			entries[i].Checking = it.Checking
			if entries[i].Checking == "" {
				entries[i].Checking = CheckingNo
			}
		default:
			entries[i].ColumnNames = it.ColumnNames
		}
	}
	return entries, nil
}

// ParseBatch flattens batch results. Result i corresponds to request item i; a failed
// item carries its error and never fails the whole batch. requested holds the column
// filter of each request item (nil or shorter slices mean no filter).
func ParseBatch(results []WireResult, requested [][]string, dec value.Decoder) ([]ItemResult, error) {
	out := make([]ItemResult, len(results))
	for i, res := range results {
		item := ItemResult{Succeeded: res.Succeeded, Table: res.Table}
		if !res.Succeeded {
			item.Error = &ItemError{Code: res.Code, Message: res.Message}
			out[i] = item
			continue
		}
		var filter []string
		if i < len(requested) {
			filter = requested[i]
		}
		parsed, err := ParseRow(res.Row, filter, dec)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		item.Row = parsed
		out[i] = item
	}
	return out, nil
}

// ColumnFilters returns the per-item column filters of entries, for ParseBatch.
func ColumnFilters(entries []BatchEntry) [][]string {
	filters := make([][]string, len(entries))
	for i, e := range entries {
		filters[i] = e.ColumnNames
	}
	return filters
}
