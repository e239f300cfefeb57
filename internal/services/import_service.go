package services

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/ingest"
	applog "spendwise/internal/log"
	"spendwise/internal/store"
)

// Publisher announces finished imports. *amqp.Client implements it.
type Publisher interface {
	PublishImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error
}

// ImportResult summarizes one statement upload.
type ImportResult struct {
	BatchID      string             `json:"batchId"`
	Imported     int                `json:"imported"`
	Dropped      int                `json:"dropped"`
	Skipped      int                `json:"skipped"`
	Errors       []ingest.RowError  `json:"errors"`
	Transactions []core.Transaction `json:"transactions"`
}

// ImportService orchestrates CSV parsing, mapping, ledger append and event publishing.
type ImportService struct {
	publisher Publisher
	maxRows   int
	logger    *applog.Logger
	events    *applog.StructuredLogger
}

// NewImportService creates the service. publisher may be nil; maxRows <= 0 means
// unlimited.
func NewImportService(publisher Publisher, maxRows int, logger *applog.Logger) *ImportService {
	if logger == nil {
		logger = applog.Default()
	}
	logger = logger.WithComponent(applog.ComponentImport)
	return &ImportService{
		publisher: publisher,
		maxRows:   maxRows,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
	}
}

// Preview returns the header and first rows of a statement without touching any ledger.
func (s *ImportService) Preview(ctx context.Context, r io.Reader) (ingest.Preview, error) {
	p, err := ingest.ReadPreview(ctx, r)
	if err != nil {
		return ingest.Preview{}, fmt.Errorf("preview statement: %w", err)
	}
	return p, nil
}

// Import parses a statement, maps it with m and appends the transactions to ledger
// in file order. Bad rows are skipped and reported; a bad file or mapping fails
// the whole import and leaves the ledger untouched.
func (s *ImportService) Import(ctx context.Context, ledger store.Ledger, username string, r io.Reader, m core.ColumnMapping) (ImportResult, error) {
	if err := ingest.ValidateMapping(m, nil); err != nil {
		return ImportResult{}, err
	}

	table, err := ingest.ReadRows(ctx, r, s.maxRows)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read statement: %w", err)
	}

	res, err := ingest.NewMapper(ledger).MapTable(table, m)
	if err != nil {
		return ImportResult{}, err
	}
	ledger.Append(res.Transactions...)

	out := ImportResult{
		BatchID:      uuid.NewString(),
		Imported:     len(res.Transactions),
		Dropped:      res.Dropped,
		Skipped:      len(res.Errors),
		Errors:       res.Errors,
		Transactions: res.Transactions,
	}
	if out.Errors == nil {
		out.Errors = []ingest.RowError{}
	}

	for _, rowErr := range res.Errors {
		s.logger.DebugContext(ctx, "Row skipped", applog.FieldLine, rowErr.Line, applog.FieldError, rowErr.Error())
	}
	s.events.LogImportCompleted(ctx, username, out.BatchID, out.Imported, out.Dropped, out.Skipped)

	if err := s.publish(ctx, username, out); err != nil {
		// The ledger already holds the rows; the event is best effort.
		s.events.LogError(ctx, "Failed to publish import event", err, applog.OpPublish,
			applog.LogFields{applog.FieldBatchID: out.BatchID})
	}
	return out, nil
}

func (s *ImportService) publish(ctx context.Context, username string, res ImportResult) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping import event")
		return nil
	}
	msg := amqp.NewImportCompletedMessage(res.BatchID, username, res.Imported, res.Dropped, res.Skipped)
	return s.publisher.PublishImportCompleted(ctx, msg)
}
