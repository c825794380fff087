package cmd

import (
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"

	"jordanella.com/reward-pinger/internal/accounts"
	"jordanella.com/reward-pinger/internal/config"
	"jordanella.com/reward-pinger/internal/logging"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Show the token to proxy pairing without contacting the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		mgr, err := loadAccounts(cfg)
		if err != nil {
			return err
		}
		printAccounts(cmd.OutOrStdout(), mgr)
		return nil
	},
}

// loadAccounts reads tokens and, when enabled, proxies and pairs them
func loadAccounts(cfg *config.Config) (*accounts.Manager, error) {
	logger := logging.NewLogger("accounts")

	tokens, err := accounts.LoadTokens(cfg.Accounts.TokensFile)
	if err != nil {
		return nil, err
	}

	var proxies []*url.URL
	if cfg.Accounts.UseProxies {
		parsed, skipped, err := accounts.LoadProxies(cfg.Accounts.ProxiesFile)
		if err != nil {
			return nil, err
		}
		for _, line := range skipped {
			logger.Warn(fmt.Sprintf("Skipping malformed proxy %q", line))
		}
		proxies = parsed
		if len(proxies) == 0 {
			logger.Warn("Proxies enabled but none loaded, running direct")
		}
	}

	mgr, err := accounts.NewManager(accounts.AssignProxies(tokens, proxies))
	if err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("Loaded %d accounts, %d proxies", mgr.Count(), len(proxies)))
	return mgr, nil
}

func printAccounts(w io.Writer, mgr *accounts.Manager) {
	for _, acct := range mgr.All() {
		fmt.Fprintf(w, "%02d  %-13s  %s\n", acct.Index, accounts.MaskToken(acct.Token), acct.ProxyLabel())
	}
}
