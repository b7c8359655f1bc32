// Command admin runs operator tasks against the configured stores.
//
//	admin migrate up|down|status|version
//	admin clear-sessions --yes
//	admin backfill-created-at [--force]
//	admin token <user-id>
//	admin user create --first NAME [--last NAME] [--username U] [--role R] ...
//	admin user role <user-id> <role>
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/api"
	"github.com/Freeeeeet/studio_scheduler/internal/app"
	"github.com/Freeeeeet/studio_scheduler/internal/cache"
	"github.com/Freeeeeet/studio_scheduler/internal/config"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

const usage = `usage: admin <command> [flags]

commands:
  migrate up|down|status|version   manage the Postgres schema
  clear-sessions --yes             delete every studio session
  backfill-created-at [--force]    fill in missing session creation times
  token <user-id> [--ttl 24h]      mint an API bearer token
  user create [flags]              add a roster entry
  user role <user-id> <role>       change a user's role
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "migrate" {
		err = runMigrate(ctx, cfg, logger, args)
	} else {
		err = runWithServices(ctx, cfg, logger, cmd, args)
	}
	if err != nil {
		logger.Error("Command failed", zap.String("command", cmd), zap.Error(err))
		os.Exit(1)
	}
}

func runMigrate(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("migrate: expected up|down|status|version")
	}
	if cfg.GetDBDSN() == "" {
		return fmt.Errorf("migrate: DB_DSN is not set")
	}

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	switch args[0] {
	case "up":
		return migrator.Run(ctx)
	case "down":
		return migrator.Down(ctx)
	case "status":
		return migrator.Status(ctx)
	case "version":
		v, err := migrator.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	}
	return fmt.Errorf("migrate: unknown action %q", args[0])
}

func runWithServices(ctx context.Context, cfg *config.Config, logger *zap.Logger, cmd string, args []string) error {
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())

	catalog, err := service.NewStudioCatalog(cfg.Studios)
	if err != nil {
		return err
	}
	users := service.NewUserService(stores.Users, logger)
	sessions := service.NewSessionService(stores.Sessions, stores.Users, catalog, nil, cfg.Location(), logger)

	// clear-sessions and friends must drop the counts the server cached
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer client.Close()
		sessions.SetPendingCache(cache.NewPendingCounter(client, cfg.PendingCacheTTL))
	}

	switch cmd {
	case "clear-sessions":
		return clearSessions(ctx, sessions, args)
	case "backfill-created-at":
		return backfill(ctx, sessions, args)
	case "token":
		return mintToken(ctx, cfg, users, args)
	case "user":
		return userCommand(ctx, users, args)
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

func clearSessions(ctx context.Context, sessions *service.SessionService, args []string) error {
	fs := flag.NewFlagSet("clear-sessions", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "confirm deletion of every session")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("clear-sessions: refusing to run without --yes")
	}

	summary, err := sessions.ClearAllSessions(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d sessions\n", summary.Affected)
	return nil
}

func backfill(ctx context.Context, sessions *service.SessionService, args []string) error {
	fs := flag.NewFlagSet("backfill-created-at", flag.ContinueOnError)
	force := fs.Bool("force", false, "overwrite existing creation times too")
	if err := fs.Parse(args); err != nil {
		return err
	}

	summary, err := sessions.BackfillCreatedAt(ctx, *force)
	if err != nil {
		return err
	}
	fmt.Printf("updated %d sessions\n", summary.Affected)
	return nil
}

func mintToken(ctx context.Context, cfg *config.Config, users *service.UserService, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("token: expected <user-id>")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("token: invalid user id %q", fs.Arg(0))
	}

	user, err := users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	issuer, err := api.NewTokenIssuer(cfg.JWTSecret, *ttl)
	if err != nil {
		return err
	}
	token, err := issuer.Issue(user)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Println(token)
	return nil
}

func userCommand(ctx context.Context, users *service.UserService, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("user: expected create|role")
	}

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("user create", flag.ContinueOnError)
		u := &model.User{}
		var role string
		fs.StringVar(&u.FirstName, "first", "", "first name")
		fs.StringVar(&u.LastName, "last", "", "last name")
		fs.StringVar(&u.Username, "username", "", "Telegram username")
		fs.StringVar(&u.Email, "email", "", "email")
		fs.StringVar(&u.Instrument, "instrument", "", "instrument")
		fs.Int64Var(&u.TelegramID, "telegram-id", 0, "Telegram account id")
		fs.StringVar(&role, "role", string(model.RoleStudent), "admin|professor|student")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		u.Role = model.Role(role)
		if err := users.CreateUser(ctx, u); err != nil {
			return err
		}
		fmt.Printf("created user %d (%s, %s)\n", u.ID, u.DisplayName(), u.Role)
		return nil

	case "role":
		if len(args) != 3 {
			return fmt.Errorf("user role: expected <user-id> <role>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("user role: invalid user id %q", args[1])
		}
		u, err := users.SetRole(ctx, id, model.Role(args[2]))
		if err != nil {
			return err
		}
		fmt.Printf("user %d is now %s\n", u.ID, u.Role)
		return nil
	}
	return fmt.Errorf("user: unknown action %q", args[0])
}
