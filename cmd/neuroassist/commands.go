package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbaille/neuroassist/internal/api"
	"github.com/pbaille/neuroassist/internal/domain"
	"github.com/pbaille/neuroassist/internal/metrics"
	"github.com/pbaille/neuroassist/internal/monitor"
	"github.com/pbaille/neuroassist/internal/notify"
	"github.com/pbaille/neuroassist/internal/risk"
	"github.com/pbaille/neuroassist/internal/telemetry"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := telemetry.Init(ctx, a.log, a.cfg.Telemetry)
			if err != nil {
				return err
			}
			defer shutdownTracing(context.Background())

			var publisher notify.Publisher = notify.Nop{}
			if a.cfg.NATS.URL != "" {
				p, err := notify.Connect(a.cfg.NATS.URL, a.cfg.NATS.SubjectPrefix)
				if err != nil {
					return err
				}
				defer p.Close()
				publisher = p
				a.log.Info("publishing alerts to NATS",
					zap.String("url", a.cfg.NATS.URL),
					zap.String("prefix", a.cfg.NATS.SubjectPrefix))
			}

			mon := a.monitor(monitor.Options{
				Metrics:   metrics.New(prometheus.DefaultRegisterer),
				Publisher: publisher,
			})

			serviceName := ""
			if a.cfg.Telemetry.Enabled {
				serviceName = a.cfg.Telemetry.ServiceName
			}
			server := api.New(a.store, mon, api.Options{
				Addr:            a.cfg.Server.Addr,
				AllowedOrigins:  a.cfg.Server.AllowedOrigins,
				ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
				Logger:          a.log,
				ServiceName:     serviceName,
			})
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (overrides server.addr)")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(userAddCmd())
	return cmd
}

func userAddCmd() *cobra.Command {
	var role, dob, caregiver string

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a patient or caregiver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			u := domain.User{Name: args[0], Role: r, DateOfBirth: dob}
			if caregiver != "" {
				cg, err := a.resolveUser(cmd.Context(), caregiver)
				if err != nil {
					return err
				}
				u.CaregiverID = cg.ID
			}

			created, err := a.store.CreateUser(cmd.Context(), u)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s: %s (%s)\n", created.Role, created.Name, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(domain.RolePatient), "patient or caregiver")
	cmd.Flags().StringVar(&dob, "dob", "", "date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&caregiver, "caregiver", "", "caregiver id, id prefix or name")
	return cmd
}

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			users, err := a.store.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			if len(users) == 0 {
				fmt.Println("No users yet. Use 'neuroassist user add' to create one.")
				return nil
			}

			for _, u := range users {
				onboarded := ""
				if u.OnboardingCompleted {
					onboarded = "  onboarded"
				}
				fmt.Printf("%s  %-9s  %s%s\n", shortID(u.ID), u.Role, u.Name, onboarded)
			}
			return nil
		},
	}
}

func scoreCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "score [user]",
		Short: "Compute a user's risk score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.resolveUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			mon := a.monitor(monitor.Options{})

			var assessment risk.Assessment
			if save {
				rs, err := mon.RecordRiskScore(cmd.Context(), u.ID)
				if err != nil {
					return err
				}
				assessment = risk.Assessment{Score: rs.Score, Status: rs.Status, Breakdown: rs.Breakdown}
			} else {
				if assessment, err = mon.CalculateRiskScore(cmd.Context(), u.ID); err != nil {
					return err
				}
			}

			b := assessment.Breakdown
			fmt.Printf("%s: %.1f (%s)\n", u.Name, assessment.Score, assessment.Status)
			fmt.Printf("  missed medications:        %d\n", b.MissedMedications)
			fmt.Printf("  abnormal functional tasks: %d\n", b.AbnormalFunctionalTasks)
			fmt.Printf("  low memory recall:         %d\n", b.LowMemoryRecall)
			fmt.Printf("  slow trail making:         %d\n", b.SlowTrailMaking)
			fmt.Printf("  negative mood days:        %d\n", b.NegativeMoodDays)
			fmt.Printf("  trend factor:              %d\n", b.TrendFactor)
			if b.BaselineDecline != nil {
				fmt.Printf("  baseline decline:          %.1f points\n", *b.BaselineDecline)
			}
			if save {
				fmt.Println("(saved)")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "append the score to the user's history")
	return cmd
}

func trendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trend [user]",
		Short: "Compare recent cognitive tests with the baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.resolveUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			report, err := a.monitor(monitor.Options{}).AnalyzeTrend(cmd.Context(), u.ID)
			if err != nil {
				return err
			}
			if !report.HasBaseline {
				fmt.Println("No trend: missing baseline or no recent cognitive tests.")
				return nil
			}

			for _, testType := range report.TestTypes() {
				tr := report.Trends[testType]
				fmt.Printf("%-13s %5.1f%% -> %5.1f%%  %+6.1f  %s\n",
					testType, tr.Baseline, tr.Current, tr.Change, tr.Direction)
			}
			return nil
		},
	}
}

func alertsCmd() *cobra.Command {
	var unread bool

	cmd := &cobra.Command{
		Use:   "alerts [user]",
		Short: "List a user's alerts, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.resolveUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			alerts, err := a.store.ListAlerts(cmd.Context(), u.ID, unread)
			if err != nil {
				return err
			}

			if len(alerts) == 0 {
				fmt.Println("No alerts.")
				return nil
			}

			for _, al := range alerts {
				mark := " "
				if !al.Read {
					mark = "*"
				}
				fmt.Printf("%s %s  %s  %-6s  %-15s  %s\n",
					mark, shortID(al.ID), al.Timestamp.Format("2006-01-02 15:04"),
					al.Priority, al.Type, truncate(al.Message, 60))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&unread, "unread", false, "only unread alerts")
	return cmd
}

func ackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack [alertId]",
		Short: "Mark an alert as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			al, err := a.store.MarkAlertRead(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("acknowledge %s: %w", args[0], err)
			}
			fmt.Printf("Acknowledged: %s\n", truncate(al.Message, 60))
			return nil
		},
	}
}
