package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/config"
	"github.com/goliatone/go-library-catalog/pkg/di"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand builds the catalog command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "catalog",
		Short: "Library catalog of books, authors, genres and series",
		Long: `catalog stores books and the authors, genres and series they reference,
each identified by a normalized name, and serves them over HTTP.

Configuration is read from the file given with --config, then from
CATALOG_ environment variables such as CATALOG_DATABASE_DSN.`,
		SilenceUsage: true,
	}
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")
	rc.PersistentFlags().String("dsn", "", "Database location, overrides database.dsn.")

	rc.AddCommand(newServeCommand())
	rc.AddCommand(newPopulateCommand())
	rc.AddCommand(newIndexCommand())
	rc.AddCommand(newClearCommand())
	rc.AddCommand(newConfigCommand())
	rc.AddCommand(newVersionCommand())

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if dsn, _ := cmd.Flags().GetString("dsn"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	return cfg, nil
}

func openContainer(cmd *cobra.Command) (*di.Container, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return di.NewContainer(cmd.Context(), cfg, di.WithVersion(version))
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog routes over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			cfg := c.Config().HTTP
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Addr = addr
			}
			srv := c.Server().HTTPServer(cfg.Addr, cfg.ReadTimeout, cfg.WriteTimeout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				c.Logger().Info("catalog listening", zap.String("addr", cfg.Addr), zap.String("version", version))
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			c.Logger().Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("addr", "", "Listen address, overrides http.addr.")
	return cmd
}

func newPopulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Add the sample library and print the book index",
		Long: `populate adds the sample library: three authors, two genres, two series
and four books. It is idempotent; with --repeat the later runs leave the
database unchanged. --clear drops every row before the first run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wipe, _ := cmd.Flags().GetBool("clear")
			repeat, _ := cmd.Flags().GetInt("repeat")

			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			db := c.DB()
			if wipe {
				if err := db.Clear(cmd.Context()); err != nil {
					return err
				}
			}
			for i := 0; i < max(repeat, 1); i++ {
				books, err := db.Populate(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "\nEnd state list of books:")
				printIndex(cmd.OutOrStdout(), books)
			}
			return nil
		},
	}
	cmd.Flags().Bool("clear", false, "Drop every row first.")
	cmd.Flags().Int("repeat", 1, "Number of times to add the sample library.")
	return cmd
}

func newIndexCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "index <kind>",
		Short:     "Print the id and name of every record of a kind",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"author", "genre", "series", "book"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := catalog.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown kind %q", args[0])
			}
			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			idx, err := c.DB().Index(cmd.Context(), kind)
			if err != nil {
				return err
			}
			printIndex(cmd.OutOrStdout(), idx)
			return nil
		},
	}
}

func newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop and recreate every catalog table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.DB().Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", c.DB())
			return nil
		},
	}
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return cfg.Dump(cmd.OutOrStdout())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "catalog v%s (%s)\n", version, commit)
		},
	}
}

func printIndex(w io.Writer, idx catalog.Index) {
	for _, e := range idx.Sorted() {
		fmt.Fprintf(w, "%4d: %s\n", e.Key, e.Name)
	}
}
