// Command reviewer is a terminal front end for the back-office review queue.
// It keeps the admin session between runs, in a local file or in Redis.
//
//	reviewer login <email> <password>
//	reviewer pending | approved
//	reviewer approve <id>
//	reviewer reject <id> [reason...]
//	reviewer notifications [after]
//	reviewer logout
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"

	"github.com/druksewa/marketplace/internal/client"
	"github.com/druksewa/marketplace/internal/core/domain"
	redisdb "github.com/druksewa/marketplace/internal/infrastructure/db/redis"
	"github.com/druksewa/marketplace/internal/session"
	"github.com/druksewa/marketplace/pkg/logger"
)

type settings struct {
	APIURL      string        `env:"REVIEWER_API_URL, default=http://localhost:8080"`
	Timeout     time.Duration `env:"REVIEWER_TIMEOUT, default=15s"`
	SessionFile string        `env:"REVIEWER_SESSION_FILE"`
	// When RedisAddr is set the session lives in Redis under ClientID.
	RedisAddr  string        `env:"REVIEWER_REDIS_ADDR"`
	ClientID   string        `env:"REVIEWER_CLIENT_ID, default=reviewer"`
	SessionTTL time.Duration `env:"REVIEWER_SESSION_TTL, default=24h"`
	LogLevel   string        `env:"LOG_LEVEL, default=warn"`
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "reviewer:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cfg settings
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr})

	persister, closeFn, err := openPersister(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	sessions := session.NewStore(persister, log)
	c := client.New(client.Config{BaseURL: cfg.APIURL, Timeout: cfg.Timeout}, sessions, log)

	if len(args) == 0 {
		return errors.New("missing command")
	}
	return dispatch(ctx, c, args[0], args[1:], log)
}

func openPersister(ctx context.Context, cfg settings) (session.Persister, func(), error) {
	if cfg.RedisAddr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, nil, err
		}
		return redisdb.NewSessionCache(rdb, cfg.ClientID, cfg.SessionTTL), func() { _ = rdb.Close() }, nil
	}

	path := cfg.SessionFile
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, nil, err
		}
		path = filepath.Join(dir, "marketplace", "reviewer-session.json")
	}
	return session.NewFilePersister(path), func() {}, nil
}

func dispatch(ctx context.Context, c *client.Client, cmd string, args []string, log zerolog.Logger) error {
	switch cmd {
	case "login":
		if len(args) != 2 {
			return errors.New("usage: login <email> <password>")
		}
		sess, err := c.AdminSignIn(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s (%s)\n", sess.UserID, sess.Role)
		return nil

	case "logout":
		return c.SignOut(ctx)

	case "pending", "approved":
		fetch := c.PendingQueue
		if cmd == "approved" {
			fetch = c.ApprovedQueue
		}
		q, err := fetch(ctx)
		if err != nil {
			return err
		}
		if q.Stale {
			log.Warn().Time("fetched_at", q.FetchedAt).Msg("backend unreachable, showing the last fetched queue")
		}
		for _, app := range q.Applications {
			fmt.Printf("%s\t%s\t%s/%s\t%s\n", app.ID, app.CitizenID, app.Location.Dzongkhag, app.Location.City, joinCategories(app.Categories))
		}
		fmt.Printf("%d application(s)\n", len(q.Applications))
		return nil

	case "approve", "reject":
		if len(args) < 1 {
			return fmt.Errorf("usage: %s <id>", cmd)
		}
		var (
			d   *client.Decision
			err error
		)
		if cmd == "approve" {
			d, err = c.Approve(ctx, args[0])
		} else {
			d, err = c.Reject(ctx, args[0], strings.Join(args[1:], " "))
		}
		if err != nil {
			return err
		}
		if !d.Applied {
			fmt.Printf("no change: application %s is already %s\n", d.Application.ID, d.Application.Status)
			return nil
		}
		fmt.Printf("application %s is now %s\n", d.Application.ID, d.Application.Status)
		return nil

	case "notifications":
		var after int64
		if len(args) > 0 {
			v, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("after must be a number: %w", err)
			}
			after = v
		}
		list, next, err := c.Notifications(ctx, after)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(list); err != nil {
			return err
		}
		fmt.Printf("next cursor: %d\n", next)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func joinCategories(cats []domain.ServiceCategory) string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return strings.Join(out, ",")
}
