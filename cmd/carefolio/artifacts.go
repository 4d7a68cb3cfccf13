package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/feature"
	"github.com/rushteam/carefolio/model"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Manage trained artifacts in the configured store",
}

var pushKind string

var artifactsPushCmd = &cobra.Command{
	Use:   "push <store-key> <file> [<store-key> <file>...]",
	Short: "Upload artifact files so they can be referenced as store://<store-key>",
	Example: `  carefolio artifacts push workout/artifacts.json ./artifacts/workout/artifacts.json
  carefolio artifacts push workout/model.json ./model.json --kind forest
  carefolio artifacts push mealplan/regressor.json ./reg.json mealplan/classifier.json ./clf.json --kind forest`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 || len(args)%2 != 0 {
			return fmt.Errorf("expected <store-key> <file> pairs, got %d args", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStoreLoader(cmd, func(ctx context.Context, sl *feature.StoreLoader) error {
			return pushArtifacts(ctx, sl, pushKind, args, cmd.OutOrStdout())
		})
	},
}

var artifactsStatCmd = &cobra.Command{
	Use:   "stat <store-key>...",
	Short: "Report which artifacts exist in the store and their sizes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStoreLoader(cmd, func(ctx context.Context, sl *feature.StoreLoader) error {
			return statArtifacts(ctx, sl, args, cmd.OutOrStdout())
		})
	},
}

var artifactsRmCmd = &cobra.Command{
	Use:   "rm <store-key>...",
	Short: "Delete artifacts from the store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStoreLoader(cmd, func(ctx context.Context, sl *feature.StoreLoader) error {
			for _, key := range args {
				if err := sl.Remove(ctx, key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s%s\n", feature.StoreScheme, key)
			}
			return nil
		})
	},
}

func init() {
	artifactsPushCmd.Flags().StringVar(&pushKind, "kind", "artifacts", "validate the files as: artifacts, forest, linear, raw")
	artifactsCmd.AddCommand(artifactsPushCmd, artifactsStatCmd, artifactsRmCmd)
}

// withStoreLoader 打开配置的存储并执行 fn
func withStoreLoader(cmd *cobra.Command, fn func(ctx context.Context, sl *feature.StoreLoader) error) error {
	s, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if s == nil {
		return fmt.Errorf("store.backend is %q; configure memory or redis to manage artifacts", cfg.Store.Backend)
	}
	defer s.Close()
	return fn(cmd.Context(), storeLoader(s, cfg.Store.KeyPrefix))
}

func storeLoader(s core.Store, prefix string) *feature.StoreLoader {
	sl := feature.NewStoreLoader(s)
	if prefix != "" {
		sl.WithKeyPrefix(prefix)
	}
	return sl
}

// pushArtifacts 校验全部文件后一次性写入，任一文件非法时不写入任何内容
func pushArtifacts(ctx context.Context, sl *feature.StoreLoader, kind string, args []string, out io.Writer) error {
	blobs := make(map[string][]byte, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, path := args[i], args[i+1]
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := validateArtifact(kind, key, data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		blobs[key] = data
	}
	if err := sl.PutAll(ctx, blobs); err != nil {
		return err
	}
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(out, "pushed %s (%d bytes) as %s%s\n", args[i+1], len(blobs[args[i]]), feature.StoreScheme, args[i])
	}
	return nil
}

// statArtifacts 输出每个 key 的大小，有缺失时返回错误
func statArtifacts(ctx context.Context, sl *feature.StoreLoader, keys []string, out io.Writer) error {
	sizes, err := sl.Stat(ctx, keys)
	if err != nil {
		return err
	}
	missing := 0
	for _, key := range keys {
		if n, ok := sizes[key]; ok {
			fmt.Fprintf(out, "%s%s\t%d bytes\n", feature.StoreScheme, key, n)
			continue
		}
		missing++
		fmt.Fprintf(out, "%s%s\tmissing\n", feature.StoreScheme, key)
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d artifacts missing", missing, len(keys))
	}
	return nil
}

func validateArtifact(kind, name string, data []byte) error {
	var err error
	switch kind {
	case "artifacts":
		_, err = feature.ParseArtifacts(data)
	case "forest":
		_, err = model.LoadTreeEnsemble(name, data)
	case "linear":
		_, err = model.LoadLinearModel(name, data)
	case "raw":
	default:
		err = fmt.Errorf("unknown artifact kind %q", kind)
	}
	return err
}
