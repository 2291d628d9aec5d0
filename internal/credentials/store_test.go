package credentials

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"testing"

	"revox-adapter/internal/revox"
)

func TestStores_ImplementStore(t *testing.T) {
	var _ Store = StaticStore{}
	var _ Store = (*PostgresStore)(nil)
}

func TestStaticStore_Lookup(t *testing.T) {
	s := StaticStore{Credentials: revox.Credentials{APIKey: "k", BaseURL: "https://revox.test/"}}
	c, err := s.Lookup(context.Background(), "any")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.APIKey != "k" || c.BaseURL != "https://revox.test/" {
		t.Fatalf("unexpected credentials %+v", c)
	}
}

func TestStaticStore_EmptyKeyIsNotFound(t *testing.T) {
	if _, err := (StaticStore{}).Lookup(context.Background(), "w"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresStore_RequiresDB(t *testing.T) {
	if _, err := NewPostgresStore(nil).Lookup(context.Background(), "w"); err == nil {
		t.Fatalf("expected error without database")
	}
}

// fakeDriver answers the lookup query from an in-memory table.
type fakeDriver struct{}

type fakeConn struct{}

type fakeStmt struct{}

type fakeRows struct {
	rows [][]driver.Value
}

var fakeTable = map[string][]driver.Value{
	"ws-1": {"rvx_1", ""},
	"ws-2": {"rvx_2", "https://eu.revox.test/"},
}

var errFakeDB = errors.New("connection reset")

func init() {
	sql.Register("credentials-fake", fakeDriver{})
}

func (fakeDriver) Open(name string) (driver.Conn, error) { return fakeConn{}, nil }

func (fakeConn) Prepare(query string) (driver.Stmt, error) { return fakeStmt{}, nil }
func (fakeConn) Close() error                              { return nil }
func (fakeConn) Begin() (driver.Tx, error)                 { return nil, errors.New("not supported") }

func (fakeStmt) Close() error  { return nil }
func (fakeStmt) NumInput() int { return 1 }
func (fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, errors.New("not supported")
}

func (fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	ws, _ := args[0].(string)
	if ws == "ws-down" {
		return nil, errFakeDB
	}
	row, ok := fakeTable[ws]
	if !ok {
		return &fakeRows{}, nil
	}
	return &fakeRows{rows: [][]driver.Value{row}}, nil
}

func (r *fakeRows) Columns() []string { return []string{"api_key", "base_url"} }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if len(r.rows) == 0 {
		return io.EOF
	}
	copy(dest, r.rows[0])
	r.rows = r.rows[1:]
	return nil
}

func openFakeDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("credentials-fake", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresStore_Lookup(t *testing.T) {
	s := NewPostgresStore(openFakeDB(t))
	ctx := context.Background()

	c, err := s.Lookup(ctx, "ws-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.APIKey != "rvx_1" || c.BaseURL != revox.DefaultBaseURL {
		t.Fatalf("expected default base url, got %+v", c)
	}

	c, err = s.Lookup(ctx, "ws-2")
	if err != nil || c.BaseURL != "https://eu.revox.test/" {
		t.Fatalf("unexpected credentials %+v %v", c, err)
	}
}

func TestPostgresStore_MissingRowIsNotFound(t *testing.T) {
	s := NewPostgresStore(openFakeDB(t))
	if _, err := s.Lookup(context.Background(), "ws-unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresStore_QueryErrorIsWrapped(t *testing.T) {
	s := NewPostgresStore(openFakeDB(t))
	_, err := s.Lookup(context.Background(), "ws-down")
	if !errors.Is(err, errFakeDB) || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
}
