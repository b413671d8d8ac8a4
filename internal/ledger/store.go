package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"paper-exchange/internal/engine"
	"paper-exchange/internal/infrastructure"
	"paper-exchange/internal/model"
	"paper-exchange/internal/pricegen"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("account not found")
	ErrBadCredentials  = errors.New("wrong name or password")
	ErrVersionConflict = errors.New("account modified concurrently")
)

// Store reads and mutates the accounts table, the system of record for
// cash and holdings. One row per account; instrument-named rows carry the
// popularity score in the WON column instead of cash (ledger quirk kept
// from the spreadsheet this replaced).
type Store struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewStore(db *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// symbols returns the instrument column names in a stable order.
func symbols() []string {
	out := make([]string, 0, len(pricegen.Instruments))
	for s := range pricegen.Instruments {
		out = append(out, s)
	}
	// map order is random; keep hyungi before kkong for predictable SQL
	if len(out) == 2 && out[0] > out[1] {
		out[0], out[1] = out[1], out[0]
	}
	return out
}

func scanAccount(row pgx.Row) (model.Account, error) {
	syms := symbols()
	acct := model.Account{Holdings: make(map[string]int64, len(syms))}

	held := make([]int64, len(syms))
	dest := []interface{}{&acct.Name, &acct.Password, &acct.Cash, &acct.Version}
	for i := range held {
		dest = append(dest, &held[i])
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, err
	}
	for i, s := range syms {
		acct.Holdings[s] = held[i]
	}
	return acct, nil
}

func selectAccountSQL(forUpdate bool) string {
	cols := append([]string{"name", "pw", "won", "version"}, symbols()...)
	q := fmt.Sprintf("SELECT %s FROM accounts WHERE name = $1", strings.Join(cols, ", "))
	if forUpdate {
		q += " FOR UPDATE"
	}
	return q
}

// Get fetches one account row.
func (s *Store) Get(ctx context.Context, name string) (model.Account, error) {
	return scanAccount(s.db.QueryRow(ctx, selectAccountSQL(false), name))
}

// Authenticate looks the account up by name and compares the password.
// A missing account and a wrong password are distinct failures.
func (s *Store) Authenticate(ctx context.Context, name, password string) (model.Account, error) {
	acct, err := s.Get(ctx, name)
	if err != nil {
		return model.Account{}, err
	}
	if !passwordMatches(acct.Password, password) {
		return model.Account{}, ErrBadCredentials
	}
	return acct, nil
}

// passwordMatches compares the stored PW against user input. The ledger
// stores passwords as numeric strings and the sheet this replaced
// round-tripped them through a number type, so "123456" may come back as
// "123456.0"; compare numerically when both sides parse as integers.
func passwordMatches(stored, given string) bool {
	stored = strings.TrimSpace(stored)
	given = strings.TrimSpace(given)

	ns := strings.TrimSuffix(stored, ".0")
	a, errA := strconv.ParseInt(ns, 10, 64)
	b, errB := strconv.ParseInt(given, 10, 64)
	if errA == nil && errB == nil {
		return a == b
	}
	return stored == given
}

// Popularity reads the WON score of the instrument's own row.
func (s *Store) Popularity(ctx context.Context, symbol string) (int64, error) {
	if _, err := pricegen.Lookup(symbol); err != nil {
		return 0, err
	}

	var won decimal.Decimal
	err := s.db.QueryRow(ctx, "SELECT won FROM accounts WHERE name = $1", symbol).Scan(&won)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return won.IntPart(), nil
}

// Exchange runs one buy/sell inside a transaction: the account row is
// locked, the engine validates and applies the mutation on a snapshot, and
// cash plus holdings are written back together under a version check.
// Nothing reaches the table on any validation failure.
func (s *Store) Exchange(ctx context.Context, name, symbol string, amount int64, side model.Side, refPrice int64) (model.Account, model.TradeEvent, error) {
	inst, err := pricegen.Lookup(symbol)
	if err != nil {
		return model.Account{}, model.TradeEvent{}, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return model.Account{}, model.TradeEvent{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	acct, err := scanAccount(tx.QueryRow(ctx, selectAccountSQL(true), name))
	if err != nil {
		return model.Account{}, model.TradeEvent{}, err
	}

	next, event, err := engine.Apply(acct, inst, amount, side, refPrice, time.Now())
	if err != nil {
		return model.Account{}, model.TradeEvent{}, err
	}

	// symbol came from the static instrument set, safe to splice in.
	tag, err := tx.Exec(ctx,
		fmt.Sprintf("UPDATE accounts SET won = $1, %s = $2, version = $3 WHERE name = $4 AND version = $5", symbol),
		next.Cash, next.Holdings[symbol], next.Version, name, acct.Version)
	if err != nil {
		return model.Account{}, model.TradeEvent{}, fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return model.Account{}, model.TradeEvent{}, ErrVersionConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Account{}, model.TradeEvent{}, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("exchange executed",
		zap.String("account", name),
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Int64("amount", amount),
		zap.Int64("price", refPrice),
	)
	infrastructure.TradesExecuted.WithLabelValues(symbol, string(side)).Inc()

	return next, event, nil
}

// Snapshot reads every user row for the dashboard account table.
// Instrument rows are filtered out; they are score carriers, not users.
func (s *Store) Snapshot(ctx context.Context) ([]model.Account, error) {
	syms := symbols()
	cols := append([]string{"name", "pw", "won", "version"}, syms...)

	args := make([]interface{}, len(syms))
	ph := make([]string, len(syms))
	for i, sym := range syms {
		args[i] = sym
		ph[i] = fmt.Sprintf("$%d", i+1)
	}

	rows, err := s.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM accounts WHERE name NOT IN (%s) ORDER BY name",
			strings.Join(cols, ", "), strings.Join(ph, ", ")),
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}
