package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/dori/taskdeck/internal/docstore"
	"github.com/dori/taskdeck/internal/rpc"
	"github.com/dori/taskdeck/internal/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document store and procedures over HTTP",
		Long: `Start the taskdeck server.

Examples:
  taskdeck serve
  taskdeck serve --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			logger := log.New(os.Stderr, "taskdeck: ", log.LstdFlags)

			auth, err := server.NewAuth(cfg.Server.JWTSecret, cfg.Server.TokenTTL)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			db, err := docstore.OpenSQLite(cfg.ServerDBPath())
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			var mailer server.Mailer = server.LogMailer{Logger: logger}
			if cfg.Email.Enabled() {
				mailer = server.NewSMTPMailer(server.SMTPConfig{
					Host:     cfg.Email.SMTPHost,
					Port:     cfg.Email.SMTPPort,
					User:     cfg.Email.SMTPUser,
					Password: cfg.Email.SMTPPassword,
					From:     cfg.Email.From,
				})
			}

			srv := server.New(server.Options{
				Store:  db,
				Auth:   auth,
				Mailer: mailer,
				Logger: logger,
			})
			logger.Printf("listening on %s", addr)
			return http.ListenAndServe(addr, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		name   string
		roles  string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			auth, err := server.NewAuth(cfg.Server.JWTSecret, cfg.Server.TokenTTL)
			if err != nil {
				return err
			}
			if userID == "" {
				userID = cfg.User.ID
			}

			p := rpc.Principal{UserID: userID, Email: email}
			for _, r := range strings.Split(roles, ",") {
				if r = strings.TrimSpace(r); r != "" {
					p.Roles = append(p.Roles, r)
				}
			}
			token, err := auth.GenerateToken(p, name)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (default user.id)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	cmd.Flags().StringVar(&roles, "roles", "member", "comma-separated roles")
	return cmd
}
