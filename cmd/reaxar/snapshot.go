package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reaxar/internal/config"
	"github.com/vango-dev/reaxar/internal/errors"
	"github.com/vango-dev/reaxar/pkg/snapshot"
)

func snapshotCmd(flags *globalFlags) *cobra.Command {
	var (
		addr   string
		dir    string
		bucket string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save a snapshot of a running inspector's stores",
		Long: `Fetch every store value from a running inspector and write the
snapshot document to a directory or an S3 bucket.

S3 is used when a bucket is configured. Credentials are read from
AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.

Examples:
  reaxar snapshot
  reaxar snapshot --dir=backups
  reaxar snapshot --bucket=my-bucket`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Inspector.Addr = addr
			}
			if dir != "" {
				cfg.Snapshot.Dir = dir
			}
			if bucket != "" {
				cfg.Snapshot.Bucket = bucket
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			return runSnapshot(ctx, cfg, http.DefaultClient)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Inspector address (default from config)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Output directory (default from config)")
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "S3 bucket (overrides --dir)")

	return cmd
}

func runSnapshot(ctx context.Context, cfg *config.Config, client *http.Client) error {
	doc, err := fetchSnapshot(ctx, client, baseURL(cfg.Inspector.Addr))
	if err != nil {
		return err
	}
	sink, where, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}
	if err := snapshot.Write(ctx, doc, sink); err != nil {
		return err
	}
	success("Wrote %s (%d stores) to %s", doc.Name(), len(doc.Stores), where)
	return nil
}

// baseURL turns a listen address into an http URL.
func baseURL(addr string) string {
	if strings.Contains(addr, "://") {
		return strings.TrimRight(addr, "/")
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

func fetchSnapshot(ctx context.Context, client *http.Client, base string) (*snapshot.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/snapshot", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.New(errors.CodeSnapshotRead).
			WithDetail("The inspector could not be reached.").
			WithSuggestion("Start it with 'reaxar serve' or pass --addr").
			Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(errors.CodeSnapshotRead).Wrap(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.CodeSnapshotRead).
			WithDetail(fmt.Sprintf("The inspector answered %s.", resp.Status))
	}
	return snapshot.Decode(body)
}

// newSink selects S3 when a bucket is configured, otherwise a directory.
// The returned string describes the destination.
func newSink(ctx context.Context, cfg *config.Config) (snapshot.Sink, string, error) {
	if cfg.UseS3() {
		client, err := snapshot.NewS3Client(ctx, cfg.Snapshot.Region, cfg.Snapshot.Endpoint)
		if err != nil {
			return nil, "", errors.New(errors.CodeSnapshotWrite).WithKey(cfg.Snapshot.Bucket).Wrap(err)
		}
		where := "s3://" + cfg.Snapshot.Bucket + "/" + cfg.Snapshot.Prefix
		return snapshot.NewS3Sink(client, cfg.Snapshot.Bucket, cfg.Snapshot.Prefix), where, nil
	}
	sink, err := snapshot.NewDiskSink(cfg.Snapshot.Dir)
	if err != nil {
		return nil, "", errors.New(errors.CodeSnapshotWrite).WithKey(cfg.Snapshot.Dir).Wrap(err)
	}
	return sink, sink.Dir(), nil
}
