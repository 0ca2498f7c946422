package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuditRecordValidation(t *testing.T) {
	var missing *AuditLogger
	err := missing.Record(context.Background(), AuditLog{Action: "document.post", Entity: EntitySourceDocument, EntityID: 7})
	require.ErrorContains(t, err, "not initialised")

	// Validation rejects incomplete records before any write is attempted,
	// so a logger without a pool is safe to use here.
	logger := &AuditLogger{}
	cases := []AuditLog{
		{Entity: EntitySourceDocument, EntityID: 7},
		{Action: "ledger.post", EntityID: 7},
		{Action: "ledger.post", Entity: EntityJournalEntry},
	}
	for _, log := range cases {
		err := logger.Record(context.Background(), log)
		require.ErrorContains(t, err, "requires an action")
	}
}
