package account

import (
	"context"

	"grantly.org/internal/audit"
	"grantly.org/internal/auth"
	"grantly.org/internal/eventing"
)

// Service orchestrates account creation and permission-scoped reads.
type Service struct {
	db       TxBeginner
	accounts AccountsTable
	perms    PermissionsTable

	// OnCreated publishes every committed account to its listeners before
	// Create returns.
	OnCreated eventing.Delegate[Account]
}

// NewService wires the service against a transaction source and the two
// tables. db must be the same handle the tables execute on.
func NewService(db TxBeginner, accounts AccountsTable, perms PermissionsTable) *Service {
	return &Service{db: db, accounts: accounts, perms: perms}
}

// Create inserts the account and the creating subject's default grants
// (read then write) in one transaction, then emits the created event.
// Authorization is asserted before the input is touched; that error is
// returned verbatim. Listeners run only after commit, so a handler error
// fails Create even though the account row is already durable.
func (s *Service) Create(ctx context.Context, a auth.Auth, input Input) (Account, error) {
	subject, err := a.AssertSubject()
	if err != nil {
		return Account{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	created, err := s.accounts.Insert(ctx, tx, input)
	if err != nil {
		return Account{}, err
	}
	grants := []PermissionInput{
		{AccountID: created.ID, Subject: subject, AccessLevel: AccessLevelRead},
		{AccountID: created.ID, Subject: subject, AccessLevel: AccessLevelWrite},
	}
	if _, err := s.perms.InsertMany(ctx, tx, grants); err != nil {
		return Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return Account{}, err
	}

	if err := s.OnCreated.Emit(ctx, created); err != nil {
		return Account{}, err
	}

	_ = audit.LogEvent(ctx, "account.create", map[string]any{
		"subject":    subject,
		"account_id": created.ID,
	})
	return created, nil
}

// queryFrom builds the read query every caller-visible read goes through.
// The subject/read-grant scoping is unconditional: a caller only ever sees
// accounts they hold read access to.
func (s *Service) queryFrom(a auth.Auth, params QueryParams) (AccountsQuery, error) {
	subject, err := a.AssertSubject()
	if err != nil {
		return nil, err
	}

	q := s.accounts.Query().
		Limit(params.Limit).
		WhereCreatedBefore(params.CreatedBefore).
		WherePermissionSubject(subject).
		WherePermissionAccessLevel(AccessLevelRead)

	switch params.OrderBy {
	case OrderByCreatedAt, OrderByCreatedAtDesc:
		q = q.OrderByCreatedAt(OrderDesc)
	case OrderByCreatedAtAsc:
		q = q.OrderByCreatedAt(OrderAsc)
	}
	return q, nil
}

// Find returns the caller-visible accounts matching params, with a total
// count over the same filters when requested.
func (s *Service) Find(ctx context.Context, a auth.Auth, params QueryParams) (Page, error) {
	q, err := s.queryFrom(a, params)
	if err != nil {
		return Page{}, err
	}

	rows, err := q.Many(ctx)
	if err != nil {
		return Page{}, err
	}
	if rows == nil {
		rows = []Account{}
	}
	page := Page{Rows: rows}

	if params.Total {
		total, err := q.Count(ctx)
		if err != nil {
			return Page{}, err
		}
		page.Total = &total
	}
	return page, nil
}

// Total returns only the count of caller-visible accounts matching params.
func (s *Service) Total(ctx context.Context, a auth.Auth, params QueryParams) (int64, error) {
	q, err := s.queryFrom(a, params)
	if err != nil {
		return 0, err
	}
	return q.Count(ctx)
}
