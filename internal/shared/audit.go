package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// AuditLog records one committed write and the signed change it applied to
// a party balance. Summing Delta per party reproduces the balance movement
// since install, which is what an operator compares against when a ledger
// fails to reconcile.
type AuditLog struct {
	Action   string
	Entity   string
	EntityID int64
	Party    string
	PartyID  int64
	Delta    decimal.Decimal
	Meta     map[string]any
	At       time.Time
}

func (l AuditLog) validate() error {
	if l.Action == "" || l.Entity == "" || l.EntityID <= 0 {
		return errors.New("audit log requires action/entity/entity_id")
	}
	if l.PartyID > 0 && l.Party != "customer" && l.Party != "vendor" {
		return errors.New("audit log party must be customer or vendor")
	}
	return nil
}

// AuditLogger writes records into audit_logs on the caller's transaction.
type AuditLogger struct {
	db execer
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(db execer) *AuditLogger {
	return &AuditLogger{db: db}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.db == nil {
		return errors.New("audit logger not initialised")
	}
	if err := log.validate(); err != nil {
		return err
	}
	var meta []byte
	if len(log.Meta) > 0 {
		encoded, err := json.Marshal(log.Meta)
		if err != nil {
			return err
		}
		meta = encoded
	}
	var party *string
	var partyID *int64
	if log.PartyID > 0 {
		party, partyID = &log.Party, &log.PartyID
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err := l.db.Exec(ctx, `INSERT INTO audit_logs (action, entity, entity_id, party, party_id, balance_delta, meta, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))`,
		log.Action, log.Entity, log.EntityID, party, partyID, log.Delta, meta, at)
	return err
}
