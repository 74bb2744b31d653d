package postgres

import (
	"context"
	"testing"
	"time"

	"ecash-billing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice() *domain.StoredInvoice {
	now := time.Now().UTC().Truncate(time.Microsecond)
	expires := now.Add(time.Hour)
	return &domain.StoredInvoice{
		ID:             uuid.New(),
		Kind:           domain.InvoiceKindMint,
		MintURL:        testMintURL,
		QuoteID:        "q-1",
		PaymentRequest: "lnbc100n1test",
		Amount:         100,
		State:          domain.InvoiceStateUnpaid,
		CreatedAt:      now,
		ExpiresAt:      &expires,
		UpdatedAt:      now,
	}
}

func invoiceColumnNames() []string {
	return []string{"id", "kind", "mint_url", "quote_id", "payment_request", "amount", "state", "fee",
		"created_at", "expires_at", "checked_at", "paid_at", "issued_at", "updated_at", "change_outputs"}
}

func invoiceRow(inv *domain.StoredInvoice) *pgxmock.Rows {
	return pgxmock.NewRows(invoiceColumnNames()).AddRow(invoiceValues(inv)...)
}

func invoiceValues(inv *domain.StoredInvoice) []any {
	return []any{
		inv.ID, inv.Kind, inv.MintURL, inv.QuoteID, inv.PaymentRequest,
		inv.Amount, inv.State, inv.Fee, inv.CreatedAt, inv.ExpiresAt,
		inv.CheckedAt, inv.PaidAt, inv.IssuedAt, inv.UpdatedAt, encodeBlanks(inv.ChangeOutputs),
	}
}

func invoiceArgs(owner string, inv *domain.StoredInvoice) []any {
	return append([]any{owner}, invoiceValues(inv)...)
}

func TestInvoiceRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(mock, "alice")
	inv := newTestInvoice()

	mock.ExpectExec("INSERT INTO invoices").
		WithArgs(invoiceArgs("alice", inv)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), inv))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(mock, "alice")
	inv := newTestInvoice()

	mock.ExpectQuery("SELECT .+ FROM invoices WHERE owner = .+ AND id").
		WithArgs("alice", inv.ID).
		WillReturnRows(invoiceRow(inv))

	got, err := repo.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, inv.QuoteID, got.QuoteID)
	assert.Equal(t, inv.State, got.State)
	assert.Equal(t, *inv.ExpiresAt, *got.ExpiresAt)
	assert.Nil(t, got.Fee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_GetByQuote_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(mock, "alice")

	mock.ExpectQuery("SELECT .+ FROM invoices WHERE owner = .+ AND mint_url").
		WithArgs("alice", testMintURL, "missing").
		WillReturnRows(pgxmock.NewRows(invoiceColumnNames()))

	got, err := repo.GetByQuote(context.Background(), testMintURL, "missing")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(mock, "alice")
	a, b := newTestInvoice(), newTestInvoice()
	fee := int64(2)
	b.Kind, b.Fee = domain.InvoiceKindMelt, &fee

	rows := invoiceRow(a)
	rows.AddRow(invoiceValues(b)...)
	mock.ExpectQuery("SELECT .+ FROM invoices WHERE owner .+ ORDER BY created_at").
		WithArgs("alice").
		WillReturnRows(rows)

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.InvoiceKindMelt, got[1].Kind)
	assert.Equal(t, int64(2), *got[1].Fee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_ChangeOutputsRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(mock, "alice")
	inv := newTestInvoice()
	inv.Kind = domain.InvoiceKindMelt
	inv.ChangeOutputs = []domain.BlankOutput{{KeysetID: "00ad", Secret: "s1", R: "01"}, {KeysetID: "00ad", Secret: "s2", R: "02"}}

	mock.ExpectExec("UPDATE invoices SET .+ change_outputs = ").
		WithArgs(inv.State, inv.Fee, inv.ExpiresAt, inv.CheckedAt, inv.PaidAt, inv.IssuedAt, inv.UpdatedAt,
			[]byte(`[{"id":"00ad","secret":"s1","r":"01"},{"id":"00ad","secret":"s2","r":"02"}]`),
			"alice", inv.ID, domain.InvoiceStateUnpaid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT .+ FROM invoices WHERE owner = .+ AND id").
		WithArgs("alice", inv.ID).
		WillReturnRows(invoiceRow(inv))

	ok, err := repo.Update(context.Background(), inv, domain.InvoiceStateUnpaid)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ChangeOutputs, got.ChangeOutputs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_Update_GuardsExpectedState(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(mock, "alice")
	inv := newTestInvoice()
	inv.State = domain.InvoiceStatePaid

	mock.ExpectExec("UPDATE invoices SET .+ WHERE owner = .+ AND state =").
		WithArgs(inv.State, inv.Fee, inv.ExpiresAt, inv.CheckedAt, inv.PaidAt, inv.IssuedAt, inv.UpdatedAt, []byte(nil),
			"alice", inv.ID, domain.InvoiceStateUnpaid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE invoices").
		WithArgs(inv.State, inv.Fee, inv.ExpiresAt, inv.CheckedAt, inv.PaidAt, inv.IssuedAt, inv.UpdatedAt, []byte(nil),
			"alice", inv.ID, domain.InvoiceStateUnpaid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.Update(context.Background(), inv, domain.InvoiceStateUnpaid)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Update(context.Background(), inv, domain.InvoiceStateUnpaid)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_Upsert_OnlyForwardOrFresher(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(mock, "alice")
	inv := newTestInvoice()

	mock.ExpectExec(`ON CONFLICT \(id\) DO UPDATE .+ WHERE invoices.owner = EXCLUDED.owner AND \(` +
		`\(invoices.state = EXCLUDED.state AND invoices.updated_at < EXCLUDED.updated_at\) ` +
		`OR \(invoices.state = 'UNPAID' AND EXCLUDED.state IN \('PAID', 'EXPIRED'\)\) ` +
		`OR \(invoices.state IN \('UNPAID', 'PAID'\) AND EXCLUDED.state = 'ISSUED' AND invoices.kind = 'mint'\)\)`).
		WithArgs(invoiceArgs("alice", inv)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	assert.NoError(t, repo.Upsert(context.Background(), inv))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(mock, "alice")
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectExec("DELETE FROM invoices WHERE owner").
		WithArgs("alice", ids).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	assert.NoError(t, repo.Delete(context.Background(), ids))
	assert.NoError(t, repo.Delete(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
