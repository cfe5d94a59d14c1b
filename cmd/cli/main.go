package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/cashledger/internal/adapter/http/dto"
	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/auth"
)

// options are the persistent flags shared by every command.
type options struct {
	baseURL string
	token   string
	timeout time.Duration
	json    bool
}

func (o *options) client() *apiClient {
	return newAPIClient(o.baseURL, o.token, o.timeout)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "cashledger-cli",
		Short:         "Cash register ledger CLI",
		Long:          `A command line interface for the repair shop cash register ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("CASHLEDGER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", defaultURL, "Base URL of the ledger sync API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("CASHLEDGER_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Print raw JSON")

	rootCmd.AddCommand(
		balanceCmd(opts),
		entriesCmd(opts),
		reconcileCmd(opts),
		deleteEntryCmd(opts),
		consistencyCmd(opts),
		executorTotalsCmd(opts),
		issueTokenCmd(),
		hashPasswordCmd(),
	)

	return rootCmd
}

func balanceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show current cash and card balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var balances dto.BalancesResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/balances", nil, nil, &balances); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, balances)
			}
			fmt.Fprintf(out, "cash:  %s\ncard:  %s\ntotal: %s\n",
				balances.Cash.StringFixed(2), balances.Card.StringFixed(2), balances.Total.StringFixed(2))
			return nil
		},
	}
}

func entriesCmd(opts *options) *cobra.Command {
	var (
		from, to, category, method, search string
		limit, offset                      int
	)

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List ledger entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			setIf(query, "from", from)
			setIf(query, "to", to)
			setIf(query, "category", category)
			setIf(query, "payment_method", method)
			setIf(query, "q", search)
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				query.Set("offset", strconv.Itoa(offset))
			}

			var list dto.EntryListResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/entries", query, nil, &list); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, list)
			}
			printEntries(out, list.Entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Executed at or after (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Executed at or before (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&method, "method", "", "Filter by payment method")
	cmd.Flags().StringVar(&search, "search", "", "Substring of the description")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	return cmd
}

func reconcileCmd(opts *options) *cobra.Command {
	var cash, card, note string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Set balances to physically counted values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.ReconcileRequest{ActualCash: cash, ActualCard: card, Note: note}

			var result dto.ReconcileResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/reconcile", nil, req, &result); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, result)
			}
			if !result.Changed {
				fmt.Fprintln(out, "Balances already match, nothing recorded")
				return nil
			}
			fmt.Fprintf(out, "Correction #%d recorded (cash %s, card %s)\n",
				result.Correction.ID, signed(result.CashDiff.StringFixed(2)), signed(result.CardDiff.StringFixed(2)))
			return nil
		},
	}

	cmd.Flags().StringVar(&cash, "cash", "", "Counted cash balance")
	cmd.Flags().StringVar(&card, "card", "", "Counted card balance")
	cmd.Flags().StringVar(&note, "note", "", "Reason shown on the correction entry")
	_ = cmd.MarkFlagRequired("cash")
	_ = cmd.MarkFlagRequired("card")
	return cmd
}

func deleteEntryCmd(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-entry <id>",
		Short: "Delete an entry and shift later balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid entry id %q", args[0])
			}
			if !yes {
				return errors.New("refusing to delete without --yes")
			}

			var result dto.DeleteEntryResponse
			path := "/api/v1/entries/" + strconv.FormatInt(id, 10)
			if _, err := opts.client().do(cmd.Context(), http.MethodDelete, path, nil, nil, &result); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, result)
			}
			fmt.Fprintf(out, "Entry #%d deleted, %d later entries shifted (cash %s, card %s)\n",
				id, result.ShiftedCount,
				signed(result.CashDelta.Neg().StringFixed(2)), signed(result.CardDelta.Neg().StringFixed(2)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

// errInconsistent makes the process exit non-zero after the report is shown.
var errInconsistent = errors.New("ledger is inconsistent")

func consistencyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "consistency",
		Short: "Replay the ledger and verify every stored balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var report dto.ConsistencyResponse
			_, err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/consistency", nil, nil, &report, http.StatusConflict)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				if err := printJSON(out, report); err != nil {
					return err
				}
			} else if report.Consistent {
				fmt.Fprintf(out, "Consistency check PASSED\nEntries: %d\nCash: %s\nCard: %s\n",
					report.EntryCount, report.Replayed.Cash.StringFixed(2), report.Replayed.Card.StringFixed(2))
			} else {
				fmt.Fprintf(out, "Consistency check FAILED\nEntries: %d\n", report.EntryCount)
				if m := report.Mismatch; m != nil {
					fmt.Fprintf(out, "First mismatch at entry #%d: stored %s/%s, expected %s/%s\n",
						m.EntryID,
						m.Stored.Cash.StringFixed(2), m.Stored.Card.StringFixed(2),
						m.Expected.Cash.StringFixed(2), m.Expected.Card.StringFixed(2))
				}
			}

			if !report.Consistent {
				return errInconsistent
			}
			return nil
		},
	}
}

func executorTotalsCmd(opts *options) *cobra.Command {
	var from, to, salaryPercent string

	cmd := &cobra.Command{
		Use:   "executor-totals <name>",
		Short: "Show an executor's labor, parts profit and commission for a period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			setIf(query, "from", from)
			setIf(query, "to", to)
			setIf(query, "salary_percent", salaryPercent)

			var totals dto.ExecutorTotalsResponse
			path := "/api/v1/reports/executors/" + url.PathEscape(args[0])
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, path, query, nil, &totals); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, totals)
			}
			fmt.Fprintf(out, "Executor:     %s\n", totals.ExecutorName)
			fmt.Fprintf(out, "Period:       %s .. %s\n", totals.From.Format(time.DateOnly), totals.To.Format(time.DateOnly))
			fmt.Fprintf(out, "Entries:      %d\n", totals.EntryCount)
			fmt.Fprintf(out, "Labor:        %s\n", totals.LaborTotal.StringFixed(2))
			fmt.Fprintf(out, "Parts profit: %s\n", totals.PartsProfit.StringFixed(2))
			fmt.Fprintf(out, "Commission:   %s\n", totals.CommissionTotal.StringFixed(2))
			if totals.Share != nil && totals.SalaryPercent != nil {
				fmt.Fprintf(out, "Share (%s%%):  %s\n", totals.SalaryPercent.String(), totals.Share.StringFixed(2))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Period start (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Period end (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&salaryPercent, "salary-percent", "", "Salary percent to compute the share")
	return cmd
}

func issueTokenCmd() *cobra.Command {
	var (
		secret, id, email, name, role string
		ttl                           time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign an API token locally with the server's JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}
			parsed, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			user := &domain.User{ID: id, Email: email, Name: name, Role: parsed, Active: true}
			if user.ID == "" {
				user.ID = email
			}

			token, expiresAt, err := auth.NewJWTManager(secret, ttl).Generate(user)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "JWT signing secret")
	cmd.Flags().StringVar(&id, "id", "", "User ID (defaults to the email)")
	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().StringVar(&name, "name", "", "Display name; executors are matched by it")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleOperator), "admin, operator, executor or viewer")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for the operators file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func printEntries(w io.Writer, entries []*dto.EntryResponse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEXECUTED\tCATEGORY\tMETHOD\tAMOUNT\tCASH\tCARD\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.ExecutedAt.Format("2006-01-02 15:04"),
			e.Category,
			e.PaymentMethod,
			e.Amount.StringFixed(2),
			e.CashAfter.StringFixed(2),
			e.CardAfter.StringFixed(2),
			truncate(e.Description, 40),
		)
	}
	_ = tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func signed(s string) string {
	if len(s) > 0 && s[0] != '-' {
		return "+" + s
	}
	return s
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

