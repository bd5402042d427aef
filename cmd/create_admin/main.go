package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/SINTT/TODO/internal/config"
	"github.com/SINTT/TODO/internal/db"
	"github.com/SINTT/TODO/internal/domain"
	"github.com/SINTT/TODO/internal/logger"
	"github.com/SINTT/TODO/internal/repository"
	"github.com/SINTT/TODO/internal/service"
)

// create_admin bootstraps an administrator. Registration always yields
// role user, so the first admin has to be created out of band. An
// existing account is promoted instead.
func main() {
	nickname := flag.String("nickname", "admin", "account nickname")
	password := flag.String("password", "", "password for a new account")
	first := flag.String("first", "Admin", "first name")
	last := flag.String("last", "Admin", "last name")
	patronymic := flag.String("patronymic", "Admin", "patronymic")
	flag.Parse()

	cfg := config.Load()
	if cfg.StorageDriver == config.DriverMemory {
		logger.Fatal("create_admin needs persistent storage, set STORAGE_DRIVER")
	}

	var users service.UserStore
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		gdb, err := repository.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			logger.Fatal("open sqlite", "error", err)
		}
		users = repository.NewSQLiteUserRepository(gdb)
	default:
		pool := db.Connect(cfg.DatabaseURL, cfg.OpTimeout)
		defer pool.Close()
		users = repository.NewUserRepository(pool)
	}

	ctx := context.Background()
	identity := service.NewIdentityService(users, cfg.OpTimeout, cfg.BcryptCost)

	u, err := users.GetByNickname(ctx, *nickname)
	switch {
	case err == nil:
		if u.Role != domain.RoleAdmin {
			if err := users.UpdateRole(ctx, u.Nickname, domain.RoleAdmin); err != nil {
				logger.Fatal("promote user", "nickname", u.Nickname, "error", err)
			}
		}
		logger.Info("user promoted to admin", "nickname", u.Nickname)
	case errors.Is(err, domain.ErrNotFound):
		if *password == "" {
			logger.Fatal("-password is required for a new account")
		}
		u, err = identity.Register(ctx, service.RegisterInput{
			Nickname:   *nickname,
			Credential: *password,
			FirstName:  *first,
			LastName:   *last,
			Patronymic: *patronymic,
		})
		if err != nil {
			logger.Fatal("create user", "error", err)
		}
		if err := users.UpdateRole(ctx, u.Nickname, domain.RoleAdmin); err != nil {
			logger.Fatal("promote user", "nickname", u.Nickname, "error", err)
		}
		logger.Info("admin created", "nickname", u.Nickname)
	default:
		logger.Fatal("lookup user", "error", err)
	}

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Fatal("token service", "error", err)
	}
	token, err := tokens.Generate(*nickname)
	if err != nil {
		logger.Fatal("failed to generate token", "error", err)
	}
	fmt.Fprintln(os.Stdout, token)
}
