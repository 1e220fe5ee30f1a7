package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ambiyansyah-risyal/lintas"
)

var (
	queryParams []string
	rawOutput   bool
	outputPath  string
	bodyFlag    string
)

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "GET a resource and print its normalized payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := newClient()
		if err != nil {
			return err
		}
		defer cleanup()

		params, err := parseQuery(queryParams)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		var opts []lintas.RequestOption
		if rawOutput {
			opts = append(opts, lintas.WithReturnRaw())
		}
		res, err := client.Get(ctx, args[0], params, opts...)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res.Data)
	},
}

var streamCmd = &cobra.Command{
	Use:   "stream <path>",
	Short: "POST a JSON body and print each NDJSON line as it arrives",
	Long: `stream posts --body (a JSON document, or @file to read one) and prints
every line of the NDJSON response as soon as it is complete. Malformed lines
are skipped. Interrupt with Ctrl-C to cancel the stream.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := newClient()
		if err != nil {
			return err
		}
		defer cleanup()

		body, err := readBody(bodyFlag)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		out := cmd.OutOrStdout()
		stats, err := client.Stream(ctx, args[0], body, func(line json.RawMessage) error {
			_, werr := fmt.Fprintf(out, "%s\n", line)
			return werr
		})
		if err != nil && !lintas.IsCanceled(err) {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d lines, %d malformed, %d bytes\n", stats.Dispatched, stats.Malformed, stats.Bytes)
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <path>",
	Short: "Download a binary resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := newClient()
		if err != nil {
			return err
		}
		defer cleanup()

		params, err := parseQuery(queryParams)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		dl, err := client.Download(ctx, args[0], params, lintas.WithFilename("download.bin"))
		if err != nil {
			return err
		}

		target := outputPath
		if target == "" {
			target = dl.Filename
		}
		if target == "-" {
			_, err = cmd.OutOrStdout().Write(dl.Data)
			return err
		}
		if err := os.WriteFile(target, dl.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved %s (%d bytes, %s)\n", target, len(dl.Data), dl.ContentType)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), lintas.GetVersion())
	},
}

func init() {
	getCmd.Flags().StringArrayVarP(&queryParams, "query", "q", nil, "query parameter as key=value (repeatable)")
	getCmd.Flags().BoolVar(&rawOutput, "raw", false, "print the body as received, without envelope normalization")

	streamCmd.Flags().StringVarP(&bodyFlag, "body", "d", "", "JSON request body, or @file")

	downloadCmd.Flags().StringArrayVarP(&queryParams, "query", "q", nil, "query parameter as key=value (repeatable)")
	downloadCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file, '-' for stdout (default: server filename)")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func parseQuery(raw []string) (url.Values, error) {
	params := url.Values{}
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid query parameter %q, want key=value", kv)
		}
		params.Add(k, v)
	}
	return params, nil
}

func readBody(flag string) (json.RawMessage, error) {
	if flag == "" {
		return json.RawMessage("{}"), nil
	}
	data := []byte(flag)
	if path, ok := strings.CutPrefix(flag, "@"); ok {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func writeJSON(w io.Writer, data json.RawMessage) error {
	if len(data) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		// not JSON, print as is
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
