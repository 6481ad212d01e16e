package task

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/todos-api/internal/dbsession"
	"github.com/stretchr/testify/require"
)

type countingConn struct {
	dbsession.Conn
	closes *atomic.Int32
}

func (c countingConn) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

// countingOpener counts sessions opened and closed over a sqlmock pool.
type countingOpener struct {
	inner  dbsession.Opener
	opens  atomic.Int32
	closes atomic.Int32
}

func (o *countingOpener) Open(ctx context.Context) (dbsession.Conn, error) {
	conn, err := o.inner.Open(ctx)
	if err != nil {
		return nil, err
	}
	o.opens.Add(1)
	return countingConn{Conn: conn, closes: &o.closes}, nil
}

func newTestSessions(t *testing.T) (*dbsession.Registry, *countingOpener) {
	t.Helper()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	opener := &countingOpener{inner: dbsession.NewPoolOpener(db, 0)}
	return dbsession.NewRegistry(opener, nil), opener
}
