package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	aistm7 "github.com/barkalona/AISTM7"
	"github.com/barkalona/AISTM7/api"
	"github.com/barkalona/AISTM7/config"
	"github.com/barkalona/AISTM7/core"
	"github.com/barkalona/AISTM7/ledger"
	"github.com/barkalona/AISTM7/notify"
	"github.com/barkalona/AISTM7/oracle"
	"github.com/barkalona/AISTM7/store"
)

type app struct {
	cfg    *config.Config
	svc    *aistm7.Service
	store  *store.Store
	logger core.Log
}

func (a *app) authority(flag string) (uuid.UUID, error) {
	raw := flag
	if raw == "" {
		raw = a.cfg.Authority
	}
	authority, err := uuid.FromString(raw)
	if err != nil {
		return uuid.Nil, errors.New("authority must be a UUID (flag --authority or AISTM7_AUTHORITY)")
	}
	return authority, nil
}

func preRun(a *app) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := core.NewLogger(cfg.LogLevel)

		st, err := store.Open(cfg.DatabaseDSN)
		if err != nil {
			return err
		}

		tokens := ledger.New(st.DB())
		if err := tokens.Migrate(); err != nil {
			return err
		}

		feed := oracle.NewPythClient(cfg.OracleBaseURL, cfg.OracleMaxAge)

		sinks := core.MultiSink{st}
		if cfg.WebhookURL != "" {
			sinks = append(sinks, notify.NewWebhookSink(cfg.WebhookURL, logger))
		}

		a.cfg = cfg
		a.store = st
		a.logger = logger
		a.svc = aistm7.NewService(st, feed, tokens, sinks, aistm7.WithLogger(logger))
		return nil
	}
}

func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()
	return ctx
}

func initCommand(a *app) *cobra.Command {
	var supply uint64
	var authorityFlag string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the requirement policy, the asset and the initial supply",
		RunE: func(cmd *cobra.Command, args []string) error {
			authority, err := a.authority(authorityFlag)
			if err != nil {
				return err
			}

			state, err := a.svc.Initialize(cmd.Context(), authority, supply)
			if err != nil {
				return err
			}
			fmt.Printf("initialized: asset=%s requirement=%d\n", state.AssetId, state.CurrentRequirement)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&supply, "supply", 0, "initial supply minted to the authority")
	cmd.Flags().StringVar(&authorityFlag, "authority", "", "authority identity (UUID)")
	return cmd
}

func updateCommand(a *app) *cobra.Command {
	var authorityFlag string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Recompute the requirement from the current oracle price once",
		RunE: func(cmd *cobra.Command, args []string) error {
			authority, err := a.authority(authorityFlag)
			if err != nil {
				return err
			}

			state, changed, err := a.svc.UpdateRequirement(cmd.Context(), authority, a.cfg.PriceFeedID)
			if err != nil {
				return err
			}
			if changed {
				fmt.Printf("requirement updated to %d\n", state.CurrentRequirement)
			} else {
				fmt.Printf("requirement unchanged at %d\n", state.CurrentRequirement)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&authorityFlag, "authority", "", "authority identity (UUID)")
	return cmd
}

func verifyCommand(a *app) *cobra.Command {
	var holderFlag string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check whether a holder meets the current requirement",
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := uuid.FromString(holderFlag)
			if err != nil {
				return errors.New("holder must be a UUID")
			}

			ok, err := a.svc.VerifyBalance(cmd.Context(), holder)
			if err != nil {
				return err
			}
			fmt.Println(ok)
			return nil
		},
	}
	cmd.Flags().StringVar(&holderFlag, "holder", "", "holder identity (UUID)")
	_ = cmd.MarkFlagRequired("holder")
	return cmd
}

func monitorCommand(a *app) *cobra.Command {
	var authorityFlag string

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the periodic requirement updater",
		RunE: func(cmd *cobra.Command, args []string) error {
			authority, err := a.authority(authorityFlag)
			if err != nil {
				return err
			}

			err = a.svc.Monitor(signalContext(), authority, a.cfg.PriceFeedID, a.cfg.PollInterval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&authorityFlag, "authority", "", "authority identity (UUID)")
	return cmd
}

func serverCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Serve the admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := api.NewServer(a.svc, a.store, a.store, a.cfg.PriceFeedID, a.logger)
			return server.Run(a.cfg.Bind)
		},
	}
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:               "aistm7d",
		Short:             "AISTM7 minimum balance requirement service",
		PersistentPreRunE: preRun(a),
	}
	root.AddCommand(
		initCommand(a),
		updateCommand(a),
		verifyCommand(a),
		monitorCommand(a),
		serverCommand(a),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
