package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/helo0ks/heloyse4bimestre/services/auth"
	"github.com/helo0ks/heloyse4bimestre/services/people"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "loja",
		Usage:  "backend da loja: vitrine, checkout e painel administrativo",
		Action: serveAction,
		Flags:  serveFlags(),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "sobe o servidor HTTP",
				Flags:  serveFlags(),
				Action: serveAction,
			},
			{
				Name:  "migrate",
				Usage: "aplica ou reverte as migrações embutidas",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "aplica as migrações pendentes", Action: migrateAction("up")},
					{Name: "down", Usage: "reverte todas as migrações", Action: migrateAction("down")},
				},
			},
			{
				Name:  "token",
				Usage: "gera um JWT de desenvolvimento assinado com JWT_SECRET",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "cpf", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "role", Value: auth.RoleCustomer},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: tokenAction,
			},
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "migrate", Usage: "aplica as migrações antes de subir o servidor"},
	}
}

func setup() (Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return Config{}, err
	}
	if err := configureLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func serveAction(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Telemetria
	tel, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	// 2. Migrações opcionais
	if c.Bool("migrate") {
		if err := runMigrations(cfg.DSN(), "up"); err != nil {
			return err
		}
	}

	// 3. Bancos de dados
	pool, err := initDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	reportsDB, err := openReportsDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer reportsDB.Close()

	// 4. Dependências e rotas
	h, err := newHandlers(cfg, pool, reportsDB, tel)
	if err != nil {
		return err
	}
	router := newRouter(cfg, cfg.Verifier(), pool, h)

	return serve(ctx, cfg, router)
}

func migrateAction(direction string) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		return runMigrations(cfg.DSN(), direction)
	}
}

func tokenAction(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required to sign tokens")
	}

	cpf, err := people.NormalizeCPF(c.String("cpf"))
	if err != nil {
		return err
	}
	role := auth.NormalizeRole(c.String("role"))
	if !auth.ValidRole(role) {
		return fmt.Errorf("invalid role %q", c.String("role"))
	}

	token, err := auth.IssueToken([]byte(cfg.JWTSecret), auth.Identity{
		CPF:   cpf,
		Email: c.String("email"),
		Role:  role,
	}, c.Duration("ttl"))
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, token)
	return nil
}
