package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cachelab/cachesim/internal/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch URL [DEST]",
	Short: "Download a trace file",
	Long: `Download a trace to a local file. Supported schemes:

  http:// https://  resumable download
  gs://             Google Cloud Storage (default credentials)
  s3://             AWS S3 (default credential chain)

DEST defaults to the URL's base name in the current directory.

Examples:
  cachesim fetch https://example.org/traces/web.csv.zst
  cachesim fetch gs://traces/cdn/day1.csv.gz day1.csv.gz
  cachesim fetch s3://traces/block/volume7.csv volume7.csv`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFetch,
}

var (
	fetchS3Region   string
	fetchS3Endpoint string
)

func init() {
	fetchCmd.Flags().StringVar(&fetchS3Region, "s3-region", "", "AWS region for s3:// URLs")
	fetchCmd.Flags().StringVar(&fetchS3Endpoint, "s3-endpoint", "", "custom S3 endpoint (e.g. MinIO)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	url := args[0]
	dest := path.Base(url)
	if len(args) == 2 {
		dest = args[1]
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted")
		cancel()
	}()

	opts := []fetch.Option{fetch.WithLogger(logger.Named("fetch"))}
	if fetchS3Region != "" {
		opts = append(opts, fetch.WithS3Region(fetchS3Region))
	}
	if fetchS3Endpoint != "" {
		opts = append(opts, fetch.WithS3Endpoint(fetchS3Endpoint))
	}
	f := fetch.New(opts...)
	err := f.Fetch(ctx, url, dest, func(p fetch.Progress) {
		if p.BytesTotal > 0 {
			fmt.Fprintf(os.Stderr, "\r%s / %s (%.1f%%)",
				formatBytes(p.BytesFetched), formatBytes(p.BytesTotal),
				float64(p.BytesFetched)/float64(p.BytesTotal)*100)
		} else {
			fmt.Fprintf(os.Stderr, "\r%s", formatBytes(p.BytesFetched))
		}
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	fmt.Printf("fetched %s -> %s\n", url, dest)
	return nil
}
