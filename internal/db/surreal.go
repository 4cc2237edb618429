package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

type SurrealOpts struct {
	URL         string // ws://127.0.0.1:8000/rpc
	Namespace   string
	Database    string
	Username    string        // optional
	Password    string        // optional
	DialTimeout time.Duration // default 5s
}

// NewSurrealConnection connects over websocket using the surrealcbor codec,
// which round-trips time.Time and record ids without custom wrapper types.
func NewSurrealConnection(opts SurrealOpts) (*surrealdb.DB, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("empty SurrealDB URL")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse surreal url: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()

	sdb, err := surrealdb.FromConnection(ctx, gorillaws.New(conf))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if opts.Username != "" && opts.Password != "" {
		if _, err := sdb.SignIn(ctx, map[string]any{
			"user": opts.Username,
			"pass": opts.Password,
		}); err != nil {
			_ = sdb.Close(context.Background())
			return nil, fmt.Errorf("sign in: %w", err)
		}
	}

	if err := sdb.Use(ctx, opts.Namespace, opts.Database); err != nil {
		_ = sdb.Close(context.Background())
		return nil, fmt.Errorf("use %s/%s: %w", opts.Namespace, opts.Database, err)
	}

	return sdb, nil
}
