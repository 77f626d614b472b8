package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL for every collection. It never validates; the
// repository does that before calling in.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const timeLayout = time.RFC3339Nano

// --- users ---

const createUser = `INSERT INTO users (email, credential_digest, created_at) VALUES (?, ?, ?) RETURNING id`

func (q *Queries) CreateUser(ctx context.Context, u core.User) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createUser, u.Email, u.CredentialDigest, u.CreatedAt.UTC().Format(timeLayout)).Scan(&id)
	return id, err
}

const userColumns = `id, email, credential_digest, created_at`

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const listUserIDs = `SELECT id FROM users ORDER BY id`

func (q *Queries) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listUserIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanUser(row *sql.Row) (core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.CredentialDigest, &createdAt); err != nil {
		return core.User{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return core.User{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	u.CreatedAt = t
	return u, nil
}

// --- categories ---

const createCategory = `INSERT INTO categories (user_id, name, kind) VALUES (?, ?, ?) RETURNING id`

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createCategory, c.UserID, c.Name, string(c.Kind)).Scan(&id)
	return id, err
}

const getCategoryByID = `SELECT id, user_id, name, kind FROM categories WHERE id = ?`

func (q *Queries) GetCategoryByID(ctx context.Context, id int64) (core.Category, error) {
	var (
		c    core.Category
		kind string
	)
	if err := q.db.QueryRowContext(ctx, getCategoryByID, id).Scan(&c.ID, &c.UserID, &c.Name, &kind); err != nil {
		return core.Category{}, err
	}
	c.Kind = core.Kind(kind)
	return c, nil
}

const getCategoriesByUser = `SELECT id, user_id, name, kind FROM categories WHERE user_id = ?`

func (q *Queries) GetCategoriesByUser(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, getCategoriesByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c    core.Category
			kind string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &kind); err != nil {
			return nil, err
		}
		c.Kind = core.Kind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- transactions ---

const createTransaction = `INSERT INTO transactions (user_id, category_id, kind, amount, date, note)
VALUES (?, ?, ?, ?, ?, ?) RETURNING id`

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createTransaction,
		t.UserID, t.CategoryID, string(t.Kind), t.Amount.String(), t.Date.String(), t.Note,
	).Scan(&id)
	return id, err
}

const transactionColumns = `id, user_id, category_id, kind, amount, date, note`

const getTransactionByID = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, getTransactionByID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	txs, err := scanTransactions(rows)
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, sql.ErrNoRows
	}
	return txs[0], nil
}

const getTransactionsByUser = `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`

func (q *Queries) GetTransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, getTransactionsByUser, userID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// Dates are stored as YYYY-MM-DD text so lexical order is calendar order.
const getTransactionsByDateRange = `SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = ? AND date >= ? AND date <= ?`

func (q *Queries) GetTransactionsByDateRange(ctx context.Context, userID int64, from, to civil.Date) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, getTransactionsByDateRange, userID, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const countTransactionsByUser = `SELECT COUNT(*) FROM transactions WHERE user_id = ?`

func (q *Queries) CountTransactionsByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactionsByUser, userID).Scan(&n)
	return n, err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t            core.Transaction
			kind, amount string
			date         string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.CategoryID, &kind, &amount, &date, &t.Note); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q of transaction %d: %w", amount, t.ID, err)
		}
		cd, err := civil.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q of transaction %d: %w", date, t.ID, err)
		}
		t.Kind = core.Kind(kind)
		t.Amount = d
		t.Date = cd
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- insights ---

const createInsight = `INSERT INTO insights (user_id, message, level, created_at) VALUES (?, ?, ?, ?) RETURNING id`

func (q *Queries) CreateInsight(ctx context.Context, r core.InsightRecord) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createInsight,
		r.UserID, r.Insight.Message, string(r.Insight.Level), r.CreatedAt.UTC().Format(timeLayout),
	).Scan(&id)
	return id, err
}

const getInsightsByUser = `SELECT id, user_id, message, level, created_at FROM insights WHERE user_id = ?`

func (q *Queries) GetInsightsByUser(ctx context.Context, userID int64) ([]core.InsightRecord, error) {
	rows, err := q.db.QueryContext(ctx, getInsightsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.InsightRecord
	for rows.Next() {
		var (
			r                core.InsightRecord
			level, createdAt string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Insight.Message, &level, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		r.Insight.Level = core.Level(level)
		r.CreatedAt = t
		out = append(out, r)
	}
	return out, rows.Err()
}

const deleteInsightsByUser = `DELETE FROM insights WHERE user_id = ?`

func (q *Queries) DeleteInsightsByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteInsightsByUser, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
