package app

import (
	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// DedupeDLRRecords collapses duplicate delivery-receipt records by message
// id, keeping the first occurrence in input order. The gateway delivers
// receipts at least once, so raw telemetry must pass through here before
// any counting or aggregation.
func DedupeDLRRecords(records []domain.DLRRecord) []domain.DLRRecord {
	seen := make(map[string]struct{}, len(records))
	unique := make([]domain.DLRRecord, 0, len(records))
	for _, record := range records {
		if _, ok := seen[record.Data.ID]; ok {
			continue
		}
		seen[record.Data.ID] = struct{}{}
		unique = append(unique, record)
	}
	return unique
}
