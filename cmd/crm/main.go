package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/splax/cornerstone/internal/localstore"
	"github.com/splax/cornerstone/internal/tui"
	apiclient "github.com/splax/cornerstone/pkg/api/client"
	"github.com/splax/cornerstone/pkg/config"
	"github.com/splax/cornerstone/pkg/logger"
)

var buildVersion = "dev"

// cliEnv is what every command needs: the API client with the saved session
// restored, the local state store and a file logger.
type cliEnv struct {
	cfg     config.ClientConfig
	log     *slog.Logger
	logFile io.Closer
	state   *localstore.Store
	client  *apiclient.Client
}

func openEnv(ctx context.Context, cfg config.ClientConfig) (*cliEnv, error) {
	log, closer, err := logger.NewFile(cfg.LogFile, "crm", cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	state, err := localstore.Open(ctx, cfg.StateDir)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open local state: %w", err)
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		state.Close()
		closer.Close()
		return nil, err
	}
	e := &cliEnv{cfg: cfg, log: log, logFile: closer, state: state, client: client}
	e.restore(ctx)
	return e, nil
}

// restore loads the saved session and refreshes it when the access token has lapsed.
func (e *cliEnv) restore(ctx context.Context) {
	sess, ok, err := e.state.LoadSession(ctx)
	if err != nil {
		e.log.Warn("load saved session", "error", err)
		return
	}
	if !ok {
		return
	}
	e.client.SetSession(sess)
	if team, err := e.state.Team(ctx); err == nil && team != "" {
		e.client.SetTeam(team)
	}
	if !e.client.AccessExpired(time.Now()) || sess.RefreshToken == "" {
		return
	}
	refreshCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	fresh, err := e.client.Refresh(refreshCtx)
	if err != nil {
		e.log.Warn("session refresh failed", "error", err)
		e.client.ClearSession()
		if err := e.state.ClearSession(ctx); err != nil {
			e.log.Warn("clear saved session", "error", err)
		}
		return
	}
	if err := e.state.SaveSession(ctx, fresh); err != nil {
		e.log.Warn("save refreshed session", "error", err)
	}
	e.log.Info("session refreshed")
}

func (e *cliEnv) Close() {
	if err := e.state.Close(); err != nil {
		e.log.Warn("close local state", "error", err)
	}
	e.logFile.Close()
}

func (e *cliEnv) requireSession() error {
	if !e.client.Session().Valid() {
		return errors.New("please login first using 'crm login'")
	}
	return nil
}

func (e *cliEnv) saveSession(ctx context.Context) error {
	return e.state.SaveSession(ctx, e.client.Session())
}

func readSecret(prompt, supplied string) (string, error) {
	secret := strings.TrimSpace(supplied)
	if secret != "" {
		return secret, nil
	}
	fmt.Print(prompt)
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(bytes), nil
}

func main() {
	cfg := config.LoadClientConfig()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var env *cliEnv
	open := func(cmd *cobra.Command, _ []string) error {
		var err error
		env, err = openEnv(cmd.Context(), cfg)
		return err
	}

	root := &cobra.Command{
		Use:               "crm",
		Short:             "Cornerstone CRM terminal client",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: open,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				cwd = "."
			}
			env.log.Info("starting terminal client", "api", cfg.APIBaseURL, "version", buildVersion)
			return tui.Run(cmd.Context(), tui.Options{
				Client:    env.client,
				State:     env.state,
				Logger:    env.log,
				Debounce:  cfg.SearchDebounce,
				ExportDir: cwd,
			})
		},
	}

	root.AddCommand(
		signupCommand(&env),
		loginCommand(&env),
		logoutCommand(&env),
		passwdCommand(&env),
		teamCommand(&env),
		reportCommand(&env),
		&cobra.Command{
			Use:              "version",
			Short:            "Print the client version",
			PersistentPreRun: func(*cobra.Command, []string) {},
			Run: func(*cobra.Command, []string) {
				fmt.Println(strings.TrimSpace(buildVersion))
			},
		},
	)

	err := root.ExecuteContext(ctx)
	if env != nil {
		env.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func signupCommand(env **cliEnv) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := *env
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			secret, err := readSecret("Password: ", password)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			if _, err := e.client.Signup(ctx, email, secret, name); err != nil {
				return err
			}
			if err := e.saveSession(ctx); err != nil {
				return err
			}
			fmt.Println("account created")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (supply to avoid prompt)")
	cmd.Flags().StringVar(&name, "name", "", "full name")
	return cmd
}

func loginCommand(env **cliEnv) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := *env
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			secret, err := readSecret("Password: ", password)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			if _, err := e.client.Login(ctx, email, secret); err != nil {
				return err
			}
			if err := e.saveSession(ctx); err != nil {
				return err
			}
			fmt.Println("login successful")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (supply to avoid prompt)")
	return cmd
}

func logoutCommand(env **cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget local tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := *env
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			if e.client.Session().Valid() {
				if err := e.client.Logout(ctx); err != nil {
					e.log.Warn("server logout failed", "error", err)
				}
			}
			if err := e.state.ClearSession(ctx); err != nil {
				return err
			}
			fmt.Println("signed out")
			return nil
		},
	}
}

func passwdCommand(env **cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := *env
			if err := e.requireSession(); err != nil {
				return err
			}
			password, err := readSecret("New password: ", "")
			if err != nil {
				return err
			}
			confirm, err := readSecret("Confirm password: ", "")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			if err := e.client.UpdatePassword(ctx, password, confirm); err != nil {
				return err
			}
			fmt.Println("password updated")
			return nil
		},
	}
}

func teamCommand(env **cliEnv) *cobra.Command {
	team := &cobra.Command{
		Use:   "team",
		Short: "Manage teams and their members",
	}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a team you own",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := *env
			if err := e.requireSession(); err != nil {
				return err
			}
			if strings.TrimSpace(name) == "" {
				return errors.New("--name is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			t, err := e.client.CreateTeam(ctx, name)
			if err != nil {
				return err
			}
			fmt.Printf("team created: %s (%s)\n", t.ID, t.Name)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "team name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List your teams",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := *env
			if err := e.requireSession(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			teams, err := e.client.ListTeams(ctx)
			if err != nil {
				return err
			}
			for _, t := range teams {
				fmt.Printf("%s\t%s\n", t.ID, t.Name)
			}
			return nil
		},
	}

	var teamID, email, role string
	addMember := &cobra.Command{
		Use:   "add-member",
		Short: "Add a registered account to a team",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := *env
			if err := e.requireSession(); err != nil {
				return err
			}
			if strings.TrimSpace(teamID) == "" {
				return errors.New("--team is required")
			}
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			m, err := e.client.AddMember(ctx, teamID, email, role)
			if err != nil {
				return err
			}
			fmt.Printf("member added: %s role=%s\n", m.UserID, m.Role)
			return nil
		},
	}
	addMember.Flags().StringVar(&teamID, "team", "", "team identifier")
	addMember.Flags().StringVar(&email, "email", "", "member email address")
	addMember.Flags().StringVar(&role, "role", "member", "member role")

	members := &cobra.Command{
		Use:   "members",
		Short: "List a team's members",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := *env
			if err := e.requireSession(); err != nil {
				return err
			}
			if strings.TrimSpace(teamID) == "" {
				return errors.New("--team is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			list, err := e.client.Members(ctx, teamID)
			if err != nil {
				return err
			}
			for _, m := range list {
				fmt.Printf("%s\t%s\t%s\t%s\n", m.UserID, m.Email, m.FullName, m.Role)
			}
			return nil
		},
	}
	members.Flags().StringVar(&teamID, "team", "", "team identifier")

	team.AddCommand(create, list, addMember, members)
	return team
}

func reportCommand(env **cliEnv) *cobra.Command {
	report := &cobra.Command{
		Use:   "report",
		Short: "Run reports",
	}
	var pdfPath string
	status := &cobra.Command{
		Use:   "status",
		Short: "Print the current status report, or save it as a PDF",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := *env
			if err := e.requireSession(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if pdfPath != "" {
				data, err := e.client.StatusReportPDF(ctx)
				if err != nil {
					return err
				}
				if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("report saved to %s\n", pdfPath)
				return nil
			}
			digest, err := e.client.StatusReport(ctx)
			if err != nil {
				return err
			}
			fmt.Print(digest.Markdown())
			return nil
		},
	}
	status.Flags().StringVar(&pdfPath, "pdf", "", "write the report to this PDF file")
	report.AddCommand(status)
	return report
}
