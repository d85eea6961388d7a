package service

import (
	"time"

	"github.com/negasi/billiard-services/internal/hallsvc/audit"
)

// AuditService derives the per-table reports from the transaction ledger.
// It never mutates the ledger except through the explicit purge, which is
// the audit view's correction tool.
type AuditService struct {
	txs      *TransactionService
	settings *SettingsService
}

func NewAuditService(txs *TransactionService, settings *SettingsService) *AuditService {
	return &AuditService{txs: txs, settings: settings}
}

// LeakReport estimates unrecorded games per table for the business day
// containing day.
func (a *AuditService) LeakReport(day time.Time) []audit.TableReport {
	return audit.Report(a.settings.Get(), a.txs.All(), day)
}

// MatchSessions lists games grouped into played-together match sessions
// for the business day containing day.
func (a *AuditService) MatchSessions(day time.Time) []audit.Match {
	return audit.Matches(a.settings.Get(), a.txs.All(), day)
}

// PurgeGames hard-deletes the given transactions, returning how many were
// removed. Privileged callers only.
func (a *AuditService) PurgeGames(ids []string, privileged bool) int {
	return a.txs.DeleteMany(ids, privileged)
}
