package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/genricoloni/nowshowing/internal/catalog"
	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/genricoloni/nowshowing/internal/power"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	daemonURL  string
	backendURL string
	timezone   string
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "posterctl",
		Short:         "Control a NowShowing display and its poster backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.daemonURL, "daemon",
		envOr("POSTERCTL_DAEMON_URL", "http://localhost:8090"), "display daemon API base URL")
	root.PersistentFlags().StringVar(&opts.backendURL, "backend",
		envOr("NOWSHOWING_BACKEND_URL", "http://localhost"), "poster backend base URL")
	root.PersistentFlags().StringVar(&opts.timezone, "timezone",
		envOr("NOWSHOWING_TIMEZONE", power.DefaultTimezone), "timezone of the power window")

	root.AddCommand(
		newReloadCmd(opts),
		newStateCmd(opts),
		newSetFieldCmd(opts),
		newPowerCmd(opts),
	)
	return root
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func daemonURL(opts *options, path string) string {
	return strings.TrimRight(opts.daemonURL, "/") + path
}

func newReloadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload settings and posters on the display",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, daemonURL(opts, "/api/reload"), nil)
			if err != nil {
				return err
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("reload: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusAccepted {
				return fmt.Errorf("reload: daemon answered %s", resp.Status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reload requested")
			return nil
		},
	}
}

func newStateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the display state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, daemonURL(opts, "/api/state"), nil)
			if err != nil {
				return err
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("state: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("state: daemon answered %s", resp.Status)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("state: %w", err)
			}

			var out bytes.Buffer
			if err := json.Indent(&out, body, "", "  "); err != nil {
				return fmt.Errorf("state: invalid response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			return nil
		},
	}
}

// parseFieldValue keeps booleans and numbers typed so the backend stores them as such
func parseFieldValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if raw == "null" {
		return nil
	}
	return raw
}

func newSetFieldCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "set-field <poster-id> <field> <value>",
		Short:   "Update a single poster column on the backend",
		Example: "  posterctl set-field 12 show_in_rotation false",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid poster id %q", args[0])
			}

			client := catalog.NewClient(zap.NewNop(), strings.TrimRight(opts.backendURL, "/"))
			if err := client.SetPosterField(cmd.Context(), id, args[1], parseFieldValue(args[2])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "poster %d: %s updated\n", id, args[1])
			return nil
		},
	}
}

func newPowerCmd(opts *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:       "power <on|standby>",
		Short:     "Send a power command through the backend, honoring the power window",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.PowerOn), string(domain.PowerStandby)},
		RunE: func(cmd *cobra.Command, args []string) error {
			requested := domain.PowerCommand(args[0])
			if requested != domain.PowerOn && requested != domain.PowerStandby {
				return fmt.Errorf("unknown power command %q", args[0])
			}

			client := catalog.NewClient(zap.NewNop(), strings.TrimRight(opts.backendURL, "/"))

			send := requested
			if !force {
				settings, err := client.GetSettings(cmd.Context())
				if err != nil {
					return err
				}
				gate, err := power.NewGate(opts.timezone)
				if err != nil {
					return err
				}
				send = gate.Apply(requested, settings.StartPowerTime, settings.EndPowerTime)
			}

			if err := client.SendPowerCommand(cmd.Context(), send); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", send)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip the power window check")
	return cmd
}
