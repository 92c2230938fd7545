// FILE: logmonitor/src/internal/auth/generator.go
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// GeneratorCommand prints credentials for the [http.auth] config section
type GeneratorCommand struct {
	output io.Writer
	errOut io.Writer
	// reads a password without echo
	readPassword func(prompt string) (string, error)
}

func NewGeneratorCommand() *GeneratorCommand {
	g := &GeneratorCommand{
		output: os.Stdout,
		errOut: os.Stderr,
	}
	g.readPassword = g.promptPassword
	return g
}

func (g *GeneratorCommand) Execute(args []string) error {
	cmd := flag.NewFlagSet("auth", flag.ContinueOnError)
	cmd.SetOutput(g.errOut)

	var (
		username   = cmd.String("u", "", "Username for basic auth")
		password   = cmd.String("p", "", "Password to hash (will prompt if not provided)")
		genToken   = cmd.Bool("t", false, "Generate random bearer token")
		tokenLen   = cmd.Int("l", 32, "Token length in bytes")
		signingKey = cmd.String("jwt-key", "", "Sign a JWT with this HMAC key instead")
		subject    = cmd.String("sub", "", "JWT subject")
		issuer     = cmd.String("iss", "", "JWT issuer")
		audience   = cmd.String("aud", "", "JWT audience")
		ttl        = cmd.Duration("ttl", 24*time.Hour, "JWT lifetime")
	)

	cmd.Usage = func() {
		fmt.Fprintln(g.errOut, "Generate HTTP API credentials for logmonitor")
		fmt.Fprintln(g.errOut, "\nUsage: logmonitor auth [options]")
		fmt.Fprintln(g.errOut, "\nExamples:")
		fmt.Fprintln(g.errOut, "  # Generate bcrypt hash for user")
		fmt.Fprintln(g.errOut, "  logmonitor auth -u admin")
		fmt.Fprintln(g.errOut, "  ")
		fmt.Fprintln(g.errOut, "  # Generate 64-byte bearer token")
		fmt.Fprintln(g.errOut, "  logmonitor auth -t -l 64")
		fmt.Fprintln(g.errOut, "  ")
		fmt.Fprintln(g.errOut, "  # Sign a JWT valid for one hour")
		fmt.Fprintln(g.errOut, "  logmonitor auth -jwt-key secret -sub ops -ttl 1h")
		fmt.Fprintln(g.errOut, "\nOptions:")
		cmd.PrintDefaults()
	}

	if err := cmd.Parse(args); err != nil {
		return err
	}

	switch {
	case *signingKey != "":
		return g.generateJWT(*signingKey, *subject, *issuer, *audience, *ttl)
	case *genToken:
		return g.generateToken(*tokenLen)
	case *username == "":
		cmd.Usage()
		return fmt.Errorf("username required for password hash generation")
	default:
		return g.generatePasswordHash(*username, *password)
	}
}

func (g *GeneratorCommand) generatePasswordHash(username, password string) error {
	if password == "" {
		pass1, err := g.readPassword("Enter password: ")
		if err != nil {
			return err
		}
		pass2, err := g.readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if pass1 != pass2 {
			return fmt.Errorf("passwords don't match")
		}
		password = pass1
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	fmt.Fprintln(g.output, "\n# TOML Configuration (add to logmonitor.toml):")
	fmt.Fprintln(g.output, "[[http.auth.basic.users]]")
	fmt.Fprintf(g.output, "username = %q\n", username)
	fmt.Fprintf(g.output, "password_hash = %q\n", string(hash))

	return nil
}

func (g *GeneratorCommand) generateToken(length int) error {
	if length < 16 {
		fmt.Fprintln(g.errOut, "Warning: tokens < 16 bytes are cryptographically weak")
	}
	if length > 512 {
		return fmt.Errorf("token length exceeds maximum (512 bytes)")
	}

	token := make([]byte, length)
	if _, err := rand.Read(token); err != nil {
		return fmt.Errorf("failed to generate random bytes: %w", err)
	}

	b64 := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(token)

	fmt.Fprintln(g.output, "\n# TOML Configuration (add to logmonitor.toml):")
	fmt.Fprintln(g.output, "[http.auth.bearer]")
	fmt.Fprintf(g.output, "tokens = [%q]\n", b64)

	return nil
}

func (g *GeneratorCommand) generateJWT(key, subject, issuer, audience string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	signed, err := SignJWT(key, subject, issuer, audience, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(g.output, "# Authorization header:")
	fmt.Fprintf(g.output, "Bearer %s\n", signed)
	return nil
}

// SignJWT issues an HS256 token accepted by a bearer authenticator with the same key
func SignJWT(key, subject, issuer, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (g *GeneratorCommand) promptPassword(prompt string) (string, error) {
	fmt.Fprint(g.errOut, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(g.errOut)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func (g *GeneratorCommand) Description() string {
	return "Generate HTTP API credentials"
}

func (g *GeneratorCommand) Help() string {
	return `Usage: logmonitor auth [options]

Generate credentials for the [http.auth] config section.

Options:
  -u <name>         Username; prints a bcrypt password_hash entry
  -p <password>     Password (prompted without echo when omitted)
  -t                Generate a random bearer token
  -l <bytes>        Token length in bytes (default 32)
  -jwt-key <key>    Sign an HS256 JWT with key
  -sub, -iss, -aud  JWT subject, issuer and audience
  -ttl <duration>   JWT lifetime (default 24h)
`
}
