package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"resumectl/internal/auth"
	"resumectl/internal/common"
	"resumectl/internal/config"
	"resumectl/internal/errors"
	"resumectl/internal/types"

	"github.com/spf13/cobra"
)

var loginFlags struct {
	email         string
	password      string
	passwordStdin bool
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the access token",
	Long: `Exchange an email and password for an access token and store it in the
token file (auth.tokenFile, default ~/.resumectl/token).

Credentials are taken from flags first, then from RESUMECTL_AUTH_EMAIL and
RESUMECTL_AUTH_PASSWORD, then from Vault when vault.secrets.credentials is set.`,
	Args: cobra.NoArgs,
	RunE: withEnv(runLogin),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		if err := e.client.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	}),
}

var registerFlags struct {
	name     string
	email    string
	password string
	output   common.CommandConfig
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		reg := types.Registration{
			Name:     registerFlags.name,
			Email:    registerFlags.email,
			Password: registerFlags.password,
		}
		return run(cmd, e, registerFlags.output, "register", func(ctx context.Context) (*types.User, error) {
			return e.client.Register(ctx, reg)
		})
	}),
}

var whoamiOutput common.CommandConfig

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and when the token expires",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		token := e.tokens.Token()
		if token == "" {
			return errors.NewAuthError(errors.ErrCodeMissingToken, "not logged in, run 'resumectl login'", nil)
		}

		claims, err := auth.ParseClaims(token)
		if err != nil {
			return err
		}
		if claims.Expired(time.Now(), 0) {
			return errors.NewAuthError(errors.ErrCodeTokenExpired, "token has expired, run 'resumectl login'", nil).
				WithContext("expired_at", claims.ExpiresAt)
		}

		if err := run(cmd, e, whoamiOutput, "whoami", e.client.Me); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), describeExpiry(claims, time.Now()))
		return nil
	}),
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your account profile",
}

var profileFlags struct {
	name   string
	email  string
	output common.CommandConfig
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change your name and email",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		return run(cmd, e, profileFlags.output, "profile_update", func(ctx context.Context) (*types.User, error) {
			current, err := e.client.Me(ctx)
			if err != nil {
				return nil, err
			}
			update := types.ProfileUpdate{Name: current.Name, Email: current.Email}
			if profileFlags.name != "" {
				update.Name = profileFlags.name
			}
			if profileFlags.email != "" {
				update.Email = profileFlags.email
			}
			return e.client.UpdateProfile(ctx, update)
		})
	}),
}

func init() {
	loginCmd.Flags().StringVar(&loginFlags.email, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginFlags.password, "password", "", "Account password (prefer --password-stdin)")
	loginCmd.Flags().BoolVar(&loginFlags.passwordStdin, "password-stdin", false, "Read the password from stdin")

	registerCmd.Flags().StringVar(&registerFlags.name, "name", "", "Display name")
	registerCmd.Flags().StringVar(&registerFlags.email, "email", "", "Account email")
	registerCmd.Flags().StringVar(&registerFlags.password, "password", "", "Password, at least 8 characters")
	_ = registerCmd.MarkFlagRequired("name")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("password")
	addOutputFlags(registerCmd, &registerFlags.output)

	addOutputFlags(whoamiCmd, &whoamiOutput)

	profileUpdateCmd.Flags().StringVar(&profileFlags.name, "name", "", "New display name")
	profileUpdateCmd.Flags().StringVar(&profileFlags.email, "email", "", "New email")
	profileUpdateCmd.MarkFlagsOneRequired("name", "email")
	addOutputFlags(profileUpdateCmd, &profileFlags.output)
	profileCmd.AddCommand(profileUpdateCmd)
}

func runLogin(cmd *cobra.Command, args []string, e *env) error {
	creds, err := resolveCredentials(e.cfg, loginFlags.email, loginFlags.password, loginFlags.passwordStdin, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if e.tokens.Path() == "" {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"a token is already supplied by Vault, login has nothing to store", nil)
	}

	token, err := e.client.Login(cmd.Context(), creds)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Logged in as %s", creds.Email)
	if claims, err := auth.ParseClaims(token); err == nil {
		message += "; " + describeExpiry(claims, time.Now())
		e.metrics.RecordTokenExpiry(cmd.Context(), claims.ExpiresIn(time.Now()))
	}
	fmt.Fprintln(cmd.OutOrStdout(), message)
	return nil
}

// resolveCredentials merges flag values with configured ones; flags win.
func resolveCredentials(cfg *config.Config, email, password string, passwordStdin bool, stdin io.Reader) (types.Credentials, error) {
	if passwordStdin {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return types.Credentials{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read password from stdin", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	creds := types.Credentials{Email: email, Password: password}
	if creds.Email == "" {
		creds.Email = cfg.Auth.Email
	}
	if creds.Password == "" {
		creds.Password = cfg.Auth.Password
	}
	if creds.Email == "" || creds.Password == "" {
		return creds, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"email and password are required (flags, environment, or Vault)", nil)
	}
	return creds, nil
}

func describeExpiry(claims *auth.Claims, now time.Time) string {
	if claims.ExpiresAt.IsZero() {
		return "token does not expire"
	}
	return fmt.Sprintf("token expires at %s (in %s)",
		claims.ExpiresAt.Local().Format(time.RFC1123), claims.ExpiresIn(now).Round(time.Minute))
}
