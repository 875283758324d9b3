package transactions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusledger/campusledger/internal/audit"
	"github.com/campusledger/campusledger/internal/platform/httpx"
	"github.com/campusledger/campusledger/internal/rbac"
)

type mockTxnRepo struct {
	txns        map[uuid.UUID]*Transaction
	budgetDepts map[uuid.UUID]uuid.UUID
	spentDelta  float64
}

func newMockTxnRepo() *mockTxnRepo {
	return &mockTxnRepo{
		txns:        make(map[uuid.UUID]*Transaction),
		budgetDepts: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockTxnRepo) Create(_ context.Context, t *Transaction) error {
	cp := *t
	m.txns[t.ID] = &cp
	if t.Type == TypeExpense {
		m.spentDelta += t.Amount
	}
	return nil
}

func (m *mockTxnRepo) GetByID(_ context.Context, id uuid.UUID) (*Transaction, error) {
	t, ok := m.txns[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTxnRepo) List(_ context.Context, budgetID, departmentID uuid.UUID, limit, offset int) ([]Transaction, error) {
	var out []Transaction
	for _, t := range m.txns {
		if budgetID != uuid.Nil && t.BudgetID != budgetID {
			continue
		}
		if departmentID != uuid.Nil && m.budgetDepts[t.BudgetID] != departmentID {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockTxnRepo) Update(_ context.Context, t *Transaction, amountDelta float64) error {
	if _, ok := m.txns[t.ID]; !ok {
		return httpx.ErrNotFound
	}
	cp := *t
	m.txns[t.ID] = &cp
	if t.Type == TypeExpense {
		m.spentDelta += amountDelta
	}
	return nil
}

func (m *mockTxnRepo) Delete(_ context.Context, t *Transaction) error {
	if _, ok := m.txns[t.ID]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.txns, t.ID)
	if t.Type == TypeExpense {
		m.spentDelta -= t.Amount
	}
	return nil
}

func (m *mockTxnRepo) BudgetDepartment(_ context.Context, budgetID uuid.UUID) (uuid.UUID, error) {
	dept, ok := m.budgetDepts[budgetID]
	if !ok {
		return uuid.Nil, httpx.ErrNotFound
	}
	return dept, nil
}

type auditSink struct {
	actions []string
}

func (a *auditSink) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	if action, ok := args[2].(string); ok {
		a.actions = append(a.actions, action)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func newTxnFixture(t *testing.T) (*Service, *mockTxnRepo, *auditSink) {
	t.Helper()
	repo := newMockTxnRepo()
	audits := &auditSink{}
	return NewService(repo, audit.NewRecorder(audits, nil)), repo, audits
}

func TestCreateResolvesBudgetDepartmentForScope(t *testing.T) {
	service, repo, audits := newTxnFixture(t)
	dept := uuid.New()
	budgetID := uuid.New()
	repo.budgetDepts[budgetID] = dept

	outsider := rbac.Actor{ID: uuid.New(), Role: rbac.RoleDepartmentHead, DepartmentID: uuid.New()}
	_, err := service.Create(context.Background(), outsider, CreateTransactionRequest{
		BudgetID: budgetID.String(), Type: TypeExpense, Amount: 100,
	}, RequestMeta{ActorID: outsider.ID})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Empty(t, audits.actions)

	insider := rbac.Actor{ID: uuid.New(), Role: rbac.RoleDepartmentHead, DepartmentID: dept}
	txn, err := service.Create(context.Background(), insider, CreateTransactionRequest{
		BudgetID: budgetID.String(), Type: TypeExpense, Amount: 100, Description: "lab supplies",
	}, RequestMeta{ActorID: insider.ID})
	require.NoError(t, err)
	assert.Equal(t, TypeExpense, txn.Type)
	require.NotNil(t, txn.CreatedBy)
	assert.Equal(t, insider.ID, *txn.CreatedBy)
	assert.Equal(t, []string{audit.ActionCreate}, audits.actions)
	assert.Equal(t, 100.0, repo.spentDelta)
}

func TestCreateUnknownBudgetReadsAsNotFound(t *testing.T) {
	service, _, _ := newTxnFixture(t)
	admin := rbac.Actor{ID: uuid.New(), Role: rbac.RoleAdmin}

	_, err := service.Create(context.Background(), admin, CreateTransactionRequest{
		BudgetID: uuid.NewString(), Type: TypeIncome, Amount: 10,
	}, RequestMeta{})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestUpdateAppliesSpentDelta(t *testing.T) {
	service, repo, audits := newTxnFixture(t)
	txn := &Transaction{ID: uuid.New(), BudgetID: uuid.New(), Type: TypeExpense, Amount: 100}
	require.NoError(t, repo.Create(context.Background(), txn))
	repo.spentDelta = 100

	newAmount := 250.0
	updated, err := service.Update(context.Background(), txn.ID, UpdateTransactionRequest{Amount: &newAmount}, RequestMeta{ActorID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 250.0, updated.Amount)
	assert.Equal(t, 250.0, repo.spentDelta, "budget spent amount follows the amount edit")
	assert.Equal(t, []string{audit.ActionUpdate}, audits.actions)
}

func TestUpdateWithoutChangesEmitsNoAudit(t *testing.T) {
	service, repo, audits := newTxnFixture(t)
	txn := &Transaction{ID: uuid.New(), BudgetID: uuid.New(), Type: TypeIncome, Amount: 300, Description: "grant"}
	require.NoError(t, repo.Create(context.Background(), txn))

	sameDesc := "grant"
	_, err := service.Update(context.Background(), txn.ID, UpdateTransactionRequest{Description: &sameDesc}, RequestMeta{})
	require.NoError(t, err)
	assert.Empty(t, audits.actions)
}

func TestDeleteReversesExpense(t *testing.T) {
	service, repo, audits := newTxnFixture(t)
	txn := &Transaction{ID: uuid.New(), BudgetID: uuid.New(), Type: TypeExpense, Amount: 75}
	require.NoError(t, repo.Create(context.Background(), txn))
	require.Equal(t, 75.0, repo.spentDelta)

	require.NoError(t, service.Delete(context.Background(), txn.ID, RequestMeta{ActorID: uuid.New()}))
	assert.Equal(t, 0.0, repo.spentDelta)
	assert.Equal(t, []string{audit.ActionDelete}, audits.actions)
}

func TestListScopesNonPrivilegedActors(t *testing.T) {
	service, repo, _ := newTxnFixture(t)
	deptA := uuid.New()
	deptB := uuid.New()
	budgetA := uuid.New()
	budgetB := uuid.New()
	repo.budgetDepts[budgetA] = deptA
	repo.budgetDepts[budgetB] = deptB
	require.NoError(t, repo.Create(context.Background(), &Transaction{ID: uuid.New(), BudgetID: budgetA, Type: TypeIncome, Amount: 1}))
	require.NoError(t, repo.Create(context.Background(), &Transaction{ID: uuid.New(), BudgetID: budgetB, Type: TypeIncome, Amount: 1}))

	head := rbac.Actor{ID: uuid.New(), Role: rbac.RoleDepartmentHead, DepartmentID: deptA}
	list, err := service.List(context.Background(), head, uuid.Nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, budgetA, list[0].BudgetID)

	manager := rbac.Actor{ID: uuid.New(), Role: rbac.RoleFinanceManager}
	list, err = service.List(context.Background(), manager, uuid.Nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
