package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/export"
	"github.com/dmitrijs2005/docverify/internal/filex"
	"github.com/dmitrijs2005/docverify/internal/ledger"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/dustin/go-humanize"
)

func recordLine(r *records.FileRecord) string {
	mark := " "
	if r.IsRegistered {
		mark = "*"
	}
	sha := r.SHA256
	if len(sha) > 16 {
		sha = sha[:16]
	}
	return fmt.Sprintf("%s %s  %-32s %10s  %s  %s",
		mark, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.FileName,
		humanize.Bytes(uint64(max(r.FileSize, 0))), sha, r.ID)
}

func printRecords(rows []*records.FileRecord) {
	if len(rows) == 0 {
		printlnFn("No records")
		return
	}
	for _, r := range rows {
		printlnFn(recordLine(r))
	}
	printlnFn(fmt.Sprintf("%d record(s), * = registered on the ledger", len(rows)))
}

// scope returns the connected wallet's rows, or every row when no wallet is
// connected.
func (a *App) scope(ctx context.Context) ([]*records.FileRecord, error) {
	if owner, ok := a.owner(); ok {
		return a.api.QueryByOwner(ctx, owner)
	}
	return a.api.QueryAll(ctx)
}

func (a *App) List(ctx context.Context, _ []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	rows, err := a.scope(ctx)
	if err != nil {
		return a.report(ctx, "list", err)
	}
	printRecords(rows)
	return nil
}

func parseTime(v string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("bad time %q, want YYYY-MM-DD or RFC3339: %w", v, common.ErrInput)
}

// parseFilter reads key=value search terms. A bare word is a file name
// term; "registered" alone restricts to registered records.
func parseFilter(args []string) (records.Filter, error) {
	var f records.Filter
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok {
			if arg == "registered" {
				f.RegisteredOnly = true
			} else {
				f.FileName = arg
			}
			continue
		}

		var err error
		switch key {
		case "name":
			f.FileName = val
		case "tag":
			f.Tag = val
		case "owner":
			f.Owner = val
		case "tx":
			f.BlockchainTx = val
		case "sha256":
			f.SHA256 = val
		case "registered":
			f.RegisteredOnly, err = strconv.ParseBool(val)
		case "from":
			f.From, err = parseTime(val)
		case "to":
			f.To, err = parseTime(val)
		case "limit":
			f.Limit, err = strconv.Atoi(val)
		default:
			err = fmt.Errorf("unknown search key %q: %w", key, common.ErrInput)
		}
		if err != nil {
			return records.Filter{}, fmt.Errorf("%s: %w", arg, err)
		}
	}
	return f, nil
}

// Search runs a filtered query, e.g. "search tag=contract registered limit=5".
func (a *App) Search(ctx context.Context, args []string) error {
	f, err := parseFilter(args)
	if err != nil {
		return a.report(ctx, "search", err)
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	rows, err := a.api.Search(ctx, f)
	if err != nil {
		return a.report(ctx, "search", err)
	}
	printRecords(rows)
	return nil
}

func (a *App) Stats(ctx context.Context, _ []string) error {
	owner, ok := a.owner()
	if !ok {
		printlnFn("Connect a wallet first")
		return nil
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	s, err := a.api.Stats(ctx, owner)
	if err != nil {
		return a.report(ctx, "stats", err)
	}
	printlnFn("Records:   ", s.Total)
	printlnFn("Registered:", s.Registered)
	printlnFn("Pinned:    ", s.Pinned)
	printlnFn("Total size:", humanize.Bytes(uint64(max(s.TotalBytes, 0))))
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := argOrPrompt(a.reader, args, "Record ID", os.Stdout)
	if err != nil {
		return err
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.api.Delete(ctx, id); err != nil {
		return a.report(ctx, "delete", err)
	}
	printlnFn("Deleted", id)
	return nil
}

// Export writes the listed records as CSV to args, or to the default file
// in the output directory.
func (a *App) Export(ctx context.Context, args []string) error {
	qctx, cancel := a.withTimeout(ctx)
	rows, err := a.scope(qctx)
	cancel()
	if err != nil {
		return a.report(ctx, "export", err)
	}

	path, err := a.outputPath(args, export.DefaultFileName)
	if err != nil {
		return a.report(ctx, "export", err)
	}
	if err := filex.WriteFileAtomic(path, export.CSV(rows), 0o644); err != nil {
		return a.report(ctx, "export", fmt.Errorf("write export: %w", err))
	}
	printlnFn(fmt.Sprintf("Exported %d record(s) to %s", len(rows), path))
	return nil
}

// Tx decodes a registration transaction.
func (a *App) Tx(ctx context.Context, args []string) error {
	hash, err := argOrPrompt(a.reader, args, "Transaction hash", os.Stdout)
	if err != nil {
		return err
	}
	if a.tx == nil {
		return a.report(ctx, "tx", fmt.Errorf("no ledger node configured: %w", common.ErrNoProvider))
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	d, err := ledger.DecodeRegistrationTx(ctx, a.tx, hash)
	if err != nil {
		return a.report(ctx, "tx", err)
	}

	printlnFn("Tx:      ", d.TxHash)
	printlnFn("From:    ", d.From)
	printlnFn("To:      ", d.To)
	switch {
	case d.Pending:
		printlnFn("Status:  ", "pending")
	case d.Succeeded:
		printlnFn("Status:  ", fmt.Sprintf("mined in block %d, gas %d", d.BlockNumber, d.GasUsed))
	default:
		printlnFn("Status:  ", "failed")
	}
	if d.Function == "" {
		printlnFn("Input:   ", "not a registration call")
		return nil
	}
	printlnFn("Function:", d.Function)
	printlnFn("Digest:  ", d.Digest)
	if d.FileName != "" {
		printlnFn("Name:    ", d.FileName)
	}
	if d.Tag != "" {
		printlnFn("Tag:     ", d.Tag)
	}
	return nil
}
