// Package nats wraps the connection used to mirror room events onto NATS
// subjects. Url and token come from the environment; token auth is applied
// only when configured.
package nats

import (
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
)

const defaultUrl = "nats://localhost:4224"

type Nats struct {
	Url   string
	Token string
	Conn  *nats.Conn
}

func Connect() (*Nats, error) {
	n := &Nats{
		Url:   os.Getenv("NATS_URL"),
		Token: os.Getenv("NATS_TOKEN"),
	}

	if n.Url == "" {
		n.Url = defaultUrl
	}

	opts := []nats.Option{
		nats.Name("bingo-rooms relay"),
	}

	if n.Token != "" {
		opts = append(opts, nats.Token(n.Token))
	}

	conn, err := nats.Connect(n.Url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", n.Url, err)
	}

	n.Conn = conn

	return n, nil
}
