package enginecli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neuroplastio/mdplug/extensions"
	"github.com/neuroplastio/mdplug/internal/buildsvc"
	"github.com/neuroplastio/mdplug/internal/configsvc"
	"github.com/neuroplastio/mdplug/pkg/engine"
	"github.com/neuroplastio/mdplug/pkg/markdown"
)

const DefaultConfigFile = "mdplug.yml"

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	dir, err := os.UserCacheDir()
	if err != nil {
		return err
	}
	cmd := NewRootCmd(filepath.Join(dir, "mdplug"))
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

type engineProvider func() (*engine.Engine, error)

func NewRootCmd(dataDir string) *cobra.Command {
	cfg := engine.Config{
		DataDir:    dataDir,
		ConfigFile: DefaultConfigFile,
		Build:      buildsvc.DefaultConfig(),
	}
	var noCache bool
	rootCmd := &cobra.Command{
		Use:           "mdplug",
		Short:         "Markdown to HTML with extended tables and inline plugins",
		Long:          `mdplug renders Markdown documents to HTML with goldmark and a set of extensions: extended tables, sections, highlight spans, small images, blank links and buttons.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "render cache directory")
	rootCmd.PersistentFlags().StringVarP(&cfg.ConfigFile, "config", "c", cfg.ConfigFile, "converter config file")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable the render cache")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().IntVarP(&cfg.Build.Workers, "workers", "j", cfg.Build.Workers, "files rendered in parallel")

	provider := func() (*engine.Engine, error) {
		c := cfg
		if noCache {
			c.DataDir = ""
		}
		return engine.New(c)
	}
	rootCmd.AddCommand(NewRender(provider))
	rootCmd.AddCommand(NewBuild(provider))
	rootCmd.AddCommand(NewWatch(provider))
	rootCmd.AddCommand(NewExtensions())
	rootCmd.AddCommand(NewInit(&cfg.ConfigFile))
	return rootCmd
}

func NewRender(provider engineProvider) *cobra.Command {
	var meta bool
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a Markdown file",
		Long:  `Render a Markdown file to standard output. Use "-" to read standard input.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				source []byte
				err    error
			)
			if args[0] == "-" {
				source, err = io.ReadAll(cmd.InOrStdin())
			} else {
				source, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			e, err := provider()
			if err != nil {
				return err
			}
			defer e.Close()
			doc, err := e.Render(cmd.Context(), args[0], source)
			if err != nil {
				return err
			}
			if meta {
				b, err := yaml.Marshal(doc.Meta)
				if err != nil {
					return fmt.Errorf("failed to marshal front matter: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			_, err = cmd.OutOrStdout().Write(doc.HTML)
			return err
		},
	}
	cmd.Flags().BoolVar(&meta, "meta", false, "print the front matter as YAML instead of the HTML")
	return cmd
}

func NewBuild(provider engineProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "build <src> <dst>",
		Short: "Render a directory of Markdown files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := provider()
			if err != nil {
				return err
			}
			defer e.Close()
			stats, err := e.Build(cmd.Context(), args[0], args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "rendered %d, failed %d\n", stats.Rendered, stats.Failed)
			return err
		},
	}
}

func NewWatch(provider engineProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <src> <dst>",
		Short: "Render a directory and keep it up to date",
		Long:  `Render a directory of Markdown files and re-render them when they or the config file change.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := provider()
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()
			events := e.Events().Subscribe(ctx)
			go func() {
				for msg := range events {
					printEvent(cmd.OutOrStdout(), msg.Key, msg.Message)
				}
			}()
			return e.Watch(ctx, args[0], args[1])
		},
	}
}

func printEvent(out io.Writer, typ buildsvc.EventType, event buildsvc.Event) {
	switch typ {
	case buildsvc.EventFailed:
		fmt.Fprintf(out, "%s %s: %v\n", typ, event.Source, event.Err)
	case buildsvc.EventRemoved:
		fmt.Fprintf(out, "%s %s\n", typ, event.Output)
	default:
		fmt.Fprintf(out, "%s %s -> %s (%s)\n", typ, event.Source, event.Output, event.Took)
	}
}

func NewExtensions() *cobra.Command {
	return &cobra.Command{
		Use:   "extensions",
		Short: "List the available extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := extensions.NewRegistry(zap.NewNop())
			if err := extensions.RegisterBuiltin(reg); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range reg.IDs() {
				d, err := reg.Descriptor(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n\t%s\n", id, d.DisplayName, d.Description)
				if len(d.Syntax) > 0 {
					fmt.Fprintf(out, "\t%s\n", strings.Join(d.Syntax, "  "))
				}
			}
			return nil
		},
	}
}

func NewInit(configFile *string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configFile
			if force {
				if err := configsvc.Write(path, markdown.DefaultConfig()); err != nil {
					return err
				}
			} else {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite it", path)
				}
				if _, err := configsvc.LoadOrCreate(path, markdown.DefaultConfig()); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}
