// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     stdlib
// Description: db:: namespace (SQLite connections and a leveldb cache)
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package stdlib

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/runtime"
)

// database owns the SQLite connections opened by db::connect and the
// key/value cache behind db::cache_*
type database struct {
	mu     sync.Mutex
	conns  map[string]*sql.DB
	cache  *leveldb.DB
	logger *mdwlog.Logger
}

func openDatabase(cacheDir string, logger *mdwlog.Logger) (*database, error) {
	var (
		cache *leveldb.DB
		err   error
	)
	if cacheDir == "" {
		cache, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		cache, err = leveldb.OpenFile(cacheDir, nil)
	}
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to open cache").WithCode(mdwerror.CodeDatabaseError)
	}
	return &database{
		conns:  make(map[string]*sql.DB),
		cache:  cache,
		logger: logger,
	}, nil
}

func (d *database) connect(path string) (string, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return "", mdwerror.Wrap(err, "failed to open database").WithCode(mdwerror.CodeDatabaseError)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return "", mdwerror.Wrap(err, "failed to connect to database").WithCode(mdwerror.CodeDatabaseError)
	}

	id := "db_" + uuid.New().String()
	d.mu.Lock()
	d.conns[id] = db
	d.mu.Unlock()
	d.logger.Debug("Database connected", mdwlog.Fields{"conn": id, "path": path})
	return id, nil
}

func (d *database) conn(id string) (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	db, ok := d.conns[id]
	if !ok {
		return nil, runtime.NewError(mdwerror.CodeNotFound, "database connection %s not found", id)
	}
	return db, nil
}

func (d *database) disconnect(id string) error {
	d.mu.Lock()
	db, ok := d.conns[id]
	delete(d.conns, id)
	d.mu.Unlock()
	if !ok {
		return runtime.NewError(mdwerror.CodeNotFound, "database connection %s not found", id)
	}
	return db.Close()
}

// Close closes every connection and the cache
func (d *database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for id, db := range d.conns {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.conns, id)
	}
	if err := d.cache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func queryRows(ctx context.Context, db *sql.DB, query string, params []interface{}) ([]interface{}, error) {
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, mdwerror.Wrap(err, "query failed").WithCode(mdwerror.CodeDatabaseError)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, mdwerror.Wrap(err, "query failed").WithCode(mdwerror.CodeDatabaseError)
	}
	out := []interface{}{}
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mdwerror.Wrap(err, "failed to scan row").WithCode(mdwerror.CodeDatabaseError)
		}
		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			row[col] = raw[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mdwerror.Wrap(err, "query failed").WithCode(mdwerror.CodeDatabaseError)
	}
	return out, nil
}

// sqlArgs reads (conn, sql, params...) and converts params for the driver
func (d *database) sqlArgs(a runtime.Args) (*sql.DB, string, []interface{}, error) {
	id, err := a.String(0)
	if err != nil {
		return nil, "", nil, err
	}
	query, err := a.String(1)
	if err != nil {
		return nil, "", nil, err
	}
	db, err := d.conn(id)
	if err != nil {
		return nil, "", nil, err
	}
	var params []interface{}
	for _, v := range a.Values[2:] {
		// a single vector argument carries all parameters
		if vec, ok := v.AsVector(); ok && a.Len() == 3 {
			for _, item := range vec.Items() {
				params = append(params, item.Interface())
			}
			break
		}
		params = append(params, v.Interface())
	}
	return db, strings.TrimSpace(query), params, nil
}

func (l *Library) dbFuncs() runtime.FuncTable {
	d := l.db
	return runtime.FuncTable{
		// connect(path) opens a SQLite database and returns its handle
		"connect": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			path, err := runtime.NewArgs("db::connect", args).StringOr(0, ":memory:")
			if err != nil {
				return runtime.Null, err
			}
			id, err := d.connect(path)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.String(id), nil
		},

		"close": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			id, err := runtime.NewArgs("db::close", args).String(0)
			if err != nil {
				return runtime.Null, err
			}
			if err := d.disconnect(id); err != nil {
				return runtime.Null, err
			}
			return runtime.Bool(true), nil
		},

		// exec(conn, sql, params...) returns the number of affected rows
		"exec": func(ctx context.Context, args []runtime.Value) (runtime.Value, error) {
			db, query, params, err := d.sqlArgs(runtime.NewArgs("db::exec", args))
			if err != nil {
				return runtime.Null, err
			}
			res, err := db.ExecContext(ctx, query, params...)
			if err != nil {
				return runtime.Null, mdwerror.Wrap(err, "exec failed").WithCode(mdwerror.CodeDatabaseError)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return runtime.Null, mdwerror.Wrap(err, "exec failed").WithCode(mdwerror.CodeDatabaseError)
			}
			return runtime.Int(n), nil
		},

		// query(conn, sql, params...) returns the rows as maps
		"query": func(ctx context.Context, args []runtime.Value) (runtime.Value, error) {
			db, query, params, err := d.sqlArgs(runtime.NewArgs("db::query", args))
			if err != nil {
				return runtime.Null, err
			}
			rows, err := queryRows(ctx, db, query, params)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.FromInterface(rows), nil
		},

		"cache_set": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("db::cache_set", args)
			if err := a.Exactly(2); err != nil {
				return runtime.Null, err
			}
			key, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			if err := d.cache.Put([]byte(key), []byte(a.Get(1).String()), nil); err != nil {
				return runtime.Null, mdwerror.Wrap(err, "cache write failed").WithCode(mdwerror.CodeDatabaseError)
			}
			return runtime.Bool(true), nil
		},

		// cache_get(key[, default])
		"cache_get": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("db::cache_get", args)
			key, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			data, err := d.cache.Get([]byte(key), nil)
			if err == leveldb.ErrNotFound {
				return a.Get(1), nil
			}
			if err != nil {
				return runtime.Null, mdwerror.Wrap(err, "cache read failed").WithCode(mdwerror.CodeDatabaseError)
			}
			return runtime.String(string(data)), nil
		},

		"cache_delete": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			key, err := runtime.NewArgs("db::cache_delete", args).String(0)
			if err != nil {
				return runtime.Null, err
			}
			found, err := d.cache.Has([]byte(key), nil)
			if err != nil {
				return runtime.Null, mdwerror.Wrap(err, "cache read failed").WithCode(mdwerror.CodeDatabaseError)
			}
			if err := d.cache.Delete([]byte(key), nil); err != nil {
				return runtime.Null, mdwerror.Wrap(err, "cache delete failed").WithCode(mdwerror.CodeDatabaseError)
			}
			return runtime.Bool(found), nil
		},
	}
}
