package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/eventbus"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/idmap"
	"github.com/vaultwarden-hd/hdcore/internal/clicmd"
	"github.com/vaultwarden-hd/hdcore/internal/config"
	"github.com/vaultwarden-hd/hdcore/keyspace"
	"github.com/vaultwarden-hd/hdcore/profile"
	"github.com/vaultwarden-hd/hdcore/storage"
)

const demoProfileID = "hdcore-cli"

// demoSecureStorage is where the CLI persists its profile snapshot
// between invocations: a plain-file stand-in for the platform
// keychain a real host would bind.
func demoSecureStorage() (storage.SecureStorageDriver, error) {
	return storage.NewLocalSecureStorageDriver(".")
}

// getDemoProfile loads the persisted demo profile, or starts a fresh
// one on first use.
func getDemoProfile(cfg config.Config) (*profile.Profile, error) {
	driver, err := demoSecureStorage()
	if err != nil {
		return nil, err
	}
	bus := eventbus.NewInProcessEventBus()
	if p, err := profile.LoadFromSecureStorage(driver, demoProfileID, bus); err == nil {
		return p, nil
	}
	return profile.New(demoProfileID, cfg.CurrentNetwork, bus), nil
}

func saveDemoProfile(p *profile.Profile) error {
	driver, err := demoSecureStorage()
	if err != nil {
		return err
	}
	return p.SaveToSecureStorage(driver)
}

func newProfileCmd() *cobra.Command {
	return clicmd.NewSubcommandGroup("profile",
		newProfileCreateAccountCmd(),
		newProfileListAccountsCmd(),
	)
}

func newProfileCreateAccountCmd() *cobra.Command {
	var address, displayName string
	var localIndex uint32

	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create an unsecured account controlled by the demo device's factor instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			p, err := getDemoProfile(cfg)
			if err != nil {
				return err
			}

			// AddFactorSource fails if the source was already registered
			// by a prior run; fine for a demo that may run create-account
			// more than once.
			_ = p.AddFactorSource(demoFactorSource())

			idx, err := keyspace.NewUnsecurifiedHardened(localIndex)
			if err != nil {
				return err
			}
			path, err := derivation.NewAccountPath(cfg.CurrentNetwork, derivation.KeyKindTransactionSigning, idx)
			if err != nil {
				return err
			}
			inst := factor.NewInstance(demoFactorSourceID(), demoPublicKeyAt(localIndex), derivation.NewDerivationPathFromCAP26(path))

			account := entity.NewAccount(
				cfg.CurrentNetwork,
				entity.Address(address),
				displayName,
				entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: inst}),
			)

			err = p.UpdateAccounts(cfg.CurrentNetwork, func(m *idmap.Map[string, entity.Entity]) error {
				return m.TryInsertUnique(account)
			})
			if err != nil {
				return err
			}
			if err := saveDemoProfile(p); err != nil {
				return err
			}
			fmt.Printf("created account %s (%s)\n", address, displayName)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "account_demo", "account address")
	cmd.Flags().StringVar(&displayName, "display-name", "Demo Account", "account display name")
	cmd.Flags().Uint32Var(&localIndex, "local-index", 0, "hardened local index of the controlling factor instance")
	return cmd
}

func newProfileListAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-accounts",
		Short: "List every account on the current network",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			p, err := getDemoProfile(cfg)
			if err != nil {
				return err
			}
			accounts, err := p.Accounts(cfg.CurrentNetwork)
			if err != nil {
				fmt.Println("(no accounts yet)")
				return nil
			}
			for _, a := range accounts {
				fmt.Printf("%s\t%s\tsecurified=%v\n", a.Address, a.DisplayName, a.IsSecurified())
			}
			return nil
		},
	}
}

// demoPublicKeyAt derives a stable, non-cryptographic placeholder
// public key for local-index localIndex so repeated CLI invocations
// against the same cache produce the same instance identity.
func demoPublicKeyAt(localIndex uint32) []byte {
	return []byte{byte(localIndex), byte(localIndex >> 8), 0x01}
}
