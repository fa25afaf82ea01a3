package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/bringup/internal/report"
)

// ReportsOptions select the bucket holding run reports.
type ReportsOptions struct {
	Bucket string
	Prefix string
}

// ListReports prints the keys of the stored reports of cluster, or of every
// cluster when cluster is empty.
func ListReports(ctx context.Context, opts ReportsOptions, cluster string) error {
	store, err := openStore(ctx, opts.Bucket, opts.Prefix)
	if err != nil {
		return err
	}
	keys, err := store.List(ctx, cluster)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(stdout, "No reports found")
		return nil
	}
	for _, key := range keys {
		fmt.Fprintln(stdout, key)
	}
	return nil
}

// ShowReport downloads the report at key and prints it in format.
func ShowReport(ctx context.Context, opts ReportsOptions, key, format string) error {
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, opts.Bucket, opts.Prefix)
	if err != nil {
		return err
	}
	doc, err := store.Fetch(ctx, key)
	if err != nil {
		return err
	}

	if f == report.FormatText {
		report.NewRenderer(colorOutput()).Render(stdout, doc)
		return nil
	}
	data, err := report.Encode(doc, f)
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}
