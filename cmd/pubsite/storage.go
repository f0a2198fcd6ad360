package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/pubsite"
	"github.com/eringen/pubsite/assets"
)

func newCheckStorageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-storage",
		Short: "Verify that the upload bucket exists and is public",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := pubsite.LoadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if cfg.StorageURL == "" {
				return checkLocal(ctx, cmd.OutOrStdout(), assets.NewLocalBucket(cfg.UploadsDir, "/uploads"))
			}
			return checkStorage(ctx, cmd.OutOrStdout(),
				assets.NewSupabaseBucket(cfg.StorageURL, cfg.StorageServiceKey, cfg.StorageBucket, nil))
		},
	}
}

func checkLocal(ctx context.Context, out io.Writer, b *assets.LocalBucket) error {
	fmt.Fprintf(out, "STORAGE_URL is not set; uploads go to the local directory %s\n", b.Dir())
	if _, err := b.Stat(ctx); err != nil {
		if errors.Is(err, assets.ErrBucketNotFound) {
			fmt.Fprintln(out, "The directory does not exist yet. It is created on the first upload.")
			return nil
		}
		return err
	}
	fmt.Fprintln(out, "Directory found.")
	return nil
}

// checkStorage lists the project's buckets and reports whether the upload
// bucket is present and public.
func checkStorage(ctx context.Context, out io.Writer, b *assets.SupabaseBucket) error {
	fmt.Fprintf(out, "Checking for %q bucket...\n\n", b.Name())

	buckets, err := b.ListBuckets(ctx)
	if err != nil {
		return fmt.Errorf("accessing storage: %w", err)
	}

	fmt.Fprintln(out, "Available buckets:")
	if len(buckets) == 0 {
		fmt.Fprintln(out, "   (no buckets found)")
	}
	var target *assets.BucketInfo
	for i, bucket := range buckets {
		marker := "  "
		if bucket.Name == b.Name() {
			marker = "* "
			target = &buckets[i]
		}
		visibility := "private"
		if bucket.Public {
			visibility = "public"
		}
		fmt.Fprintf(out, "   %s%s (%s)\n", marker, bucket.Name, visibility)
	}

	if target == nil {
		fmt.Fprintf(out, "\nBucket %q not found.\n\n", b.Name())
		fmt.Fprintln(out, "To create it:")
		fmt.Fprintln(out, "   1. Open your project's dashboard and go to Storage")
		fmt.Fprintln(out, "   2. Click \"New bucket\"")
		fmt.Fprintf(out, "   3. Name it %s and make it public\n", b.Name())
		return fmt.Errorf("bucket %q: %w", b.Name(), assets.ErrBucketNotFound)
	}

	fmt.Fprintf(out, "\nBucket %q found.\n", b.Name())
	if !target.Public {
		fmt.Fprintln(out, "Warning: the bucket is not public, so uploaded images will not load on the site.")
		fmt.Fprintf(out, "Make it public under Storage > %s > Settings.\n", b.Name())
	}
	return nil
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}

// redactDSN hides the password of a database URL for log output.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
