package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/collector"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/interactors"
	"github.com/vaultwarden-hd/hdcore/internal/config"
	"github.com/vaultwarden-hd/hdcore/internal/session"
	"github.com/vaultwarden-hd/hdcore/internal/wiring"
	"github.com/vaultwarden-hd/hdcore/profile"
)

// profileResolver adapts a *profile.Profile to collector.EntityResolver,
// the glue the collector's preprocess step needs between the
// authoritative profile state and the signatures collector.
type profileResolver struct {
	profile *profile.Profile
}

func newProfileResolver(p *profile.Profile) *profileResolver {
	return &profileResolver{profile: p}
}

func (r *profileResolver) ResolveAccount(addr entity.Address) (entity.Entity, error) {
	accounts, err := r.profile.Accounts(r.profile.CurrentNetworkID())
	if err != nil {
		return entity.Entity{}, err
	}
	for _, a := range accounts {
		if a.Address == addr {
			return a, nil
		}
	}
	return entity.Entity{}, cerrors.Withf(cerrors.KindUnknownAccount, "%s", addr)
}

func (r *profileResolver) ResolvePersona(addr entity.Address) (entity.Entity, error) {
	personas, err := r.profile.Personas(r.profile.CurrentNetworkID())
	if err != nil {
		return entity.Entity{}, err
	}
	for _, p := range personas {
		if p.Address == addr {
			return p, nil
		}
	}
	return entity.Entity{}, cerrors.Withf(cerrors.KindUnknownPersona, "%s", addr)
}

func newCollectCmd() *cobra.Command {
	var address, payloadID, payload string
	var mirrorToRedis bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect a transaction signature for a previously created demo account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			interactor := interactors.NewDeviceInteractor(demoFactorSourceID(), demoSeed())
			app, err := wiring.InitApp(wiring.Deps{Config: cfg, Interactor: interactor})
			if err != nil {
				return err
			}

			p, err := getDemoProfile(cfg)
			if err != nil {
				return err
			}
			resolver := newProfileResolver(p)

			c, err := collector.New(
				p.FactorSources(),
				[]collector.SignableInput{{
					Signable: collector.Signable{PayloadID: payloadID, Payload: []byte(payload)},
					Entities: []collector.EntityRef{{Kind: entity.KindAccount, Address: entity.Address(address)}},
				}},
				resolver,
				interactor,
				interactors.SigningPurposeSignTransactionPrimary,
				collector.FinishOnFirstSuccess,
				nil,
			)
			if err != nil {
				return err
			}

			outcome, err := c.Collect(ctx)
			if err != nil {
				return err
			}

			sigs, successful := outcome.Successful[payloadID]
			app.Metrics.ObserveCollectOutcome(successful)
			for _, reason := range outcome.NeglectedFactors {
				app.Metrics.ObserveNeglectedFactor(reason.String())
			}

			if successful {
				now := time.Now().Unix()
				touched := make(map[factor.IDFromHash]bool)
				for _, sig := range sigs {
					id := sig.Instance.Instance.FactorSourceID
					if touched[id] {
						continue
					}
					touched[id] = true
					if err := p.TouchFactorSource(id, now); err != nil {
						return err
					}
				}
				if err := saveDemoProfile(p); err != nil {
					return err
				}
			}

			if mirrorToRedis {
				mirrorOutcome(cmd, cfg, payloadID, successful, outcome)
			}

			if successful {
				fmt.Printf("signed %q with %d signature(s)\n", payloadID, len(sigs))
				return nil
			}
			failed := outcome.Failed[payloadID]
			return fmt.Errorf("collection failed for %q: reason=%d, partial signatures=%d", payloadID, failed.Reason, len(failed.Signatures))
		},
	}
	cmd.Flags().StringVar(&address, "address", "account_demo", "address of the account to collect a signature for")
	cmd.Flags().StringVar(&payloadID, "payload-id", "demo-tx-1", "identifier of the signable payload")
	cmd.Flags().StringVar(&payload, "payload", "demo transaction payload", "bytes (as a string) to sign")
	cmd.Flags().BoolVar(&mirrorToRedis, "mirror-to-redis", false, "mirror the terminal collection status into Redis for dashboards")
	return cmd
}

// mirrorOutcome writes the run's terminal status into the Redis
// session mirror. Best effort: a dashboard going dark never fails the
// collection itself.
func mirrorOutcome(cmd *cobra.Command, cfg config.Config, payloadID string, successful bool, outcome collector.Outcome) {
	ctx := cmd.Context()
	client, err := session.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "session mirror unavailable: %v\n", err)
		return
	}
	defer client.Close()

	kind := "failed"
	if successful {
		kind = "successful"
	}
	neglected := make([]string, 0, len(outcome.NeglectedFactors))
	for id := range outcome.NeglectedFactors {
		neglected = append(neglected, id.String())
	}
	session.New(client, 0).RecordProgress(ctx, payloadID, session.Status{
		SignableID:       payloadID,
		Kind:             kind,
		OutstandingCount: 0,
		NeglectedFactors: neglected,
	})
}
