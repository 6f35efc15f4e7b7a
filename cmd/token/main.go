// Command token mints an operator API access token from the service's
// own JWT settings.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"telephony-bridge/internal/auth"
	"telephony-bridge/internal/config"
	"telephony-bridge/internal/rbac"
)

func main() {
	user := flag.String("user", "", "operator user id")
	role := flag.String("role", rbac.RoleOperator, "role: admin, operator or viewer")
	flag.Parse()

	if *user == "" || !rbac.Known(*role) {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	m, err := auth.NewManager(cfg.Auth)
	if err != nil {
		slog.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	tok, err := m.IssueAccess(time.Now(), *user, *role)
	if err != nil {
		slog.Error("token issuance failed", "err", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
