package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver.
//
// These follow the Interface Segregation Principle: the archiver only
// requires the query methods it actually calls, not the full domain store
// interfaces.
// ---------------------------------------------------------------------------

// OrderArchiveStore provides read access to orders for archival purposes.
type OrderArchiveStore interface {
	// ListBefore returns all orders created strictly before the given cutoff
	// time.
	ListBefore(ctx context.Context, before time.Time) ([]domain.Order, error)
}

// AbsorptionArchiveStore provides read access to absorption events for
// archival purposes.
type AbsorptionArchiveStore interface {
	// ListBefore returns all absorption events recorded strictly before the
	// given cutoff time.
	ListBefore(ctx context.Context, before time.Time) ([]domain.AbsorptionEvent, error)
}

// ---------------------------------------------------------------------------
// ArchiveImpl
// ---------------------------------------------------------------------------

// ArchiveImpl implements domain.Archiver by querying the domain stores for
// old records, serializing them to JSONL, and uploading the result to S3.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here -- that is a separate, explicit step to be executed
// after the archive has been verified.
type ArchiveImpl struct {
	writer domain.BlobWriter
	orders OrderArchiveStore
	events AbsorptionArchiveStore
	audit  domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	orders OrderArchiveStore,
	events AbsorptionArchiveStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		orders: orders,
		events: events,
		audit:  audit,
	}
}

// ArchiveOrders queries all orders before the cutoff, serializes them to
// JSONL, and uploads the file to S3 at archive/orders/YYYY-MM.jsonl. The
// archival event is recorded in the audit log and the count of archived
// records is returned.
func (a *ArchiveImpl) ArchiveOrders(ctx context.Context, before time.Time) (int64, error) {
	orders, err := a.orders.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders query: %w", err)
	}
	if len(orders) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(orders)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders marshal: %w", err)
	}

	path := archivePath("orders", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive orders upload: %w", err)
	}

	count := int64(len(orders))

	if err := a.audit.Log(ctx, "archive.orders", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive orders audit log: %w", err)
	}

	return count, nil
}

// ArchiveAbsorptionEvents queries all absorption events before the cutoff,
// serializes them to JSONL, and uploads the file to S3 at
// archive/absorption_events/YYYY-MM.jsonl. The archival event is recorded in
// the audit log and the count of archived records is returned.
func (a *ArchiveImpl) ArchiveAbsorptionEvents(ctx context.Context, before time.Time) (int64, error) {
	evts, err := a.events.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive absorption events query: %w", err)
	}
	if len(evts) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(evts)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive absorption events marshal: %w", err)
	}

	path := archivePath("absorption_events", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive absorption events upload: %w", err)
	}

	count := int64(len(evts))

	if err := a.audit.Log(ctx, "archive.absorption_events", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive absorption events audit log: %w", err)
	}

	return count, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/orders/2025-01.jsonl
//	archive/absorption_events/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
