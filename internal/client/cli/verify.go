package cli

import (
	"context"
	"errors"
	"os"

	"github.com/dmitrijs2005/docverify/internal/verify"
	"github.com/dustin/go-humanize"
)

func printResult(res *verify.Result) {
	if res.File != nil {
		printlnFn("File:    ", res.File.Name, "("+humanize.Bytes(uint64(max(res.File.Size, 0)))+")")
	}
	printlnFn("Outcome: ", res.Outcome.String())

	if res.StoreErr != nil {
		printlnFn("Store:   ", "lookup failed:", res.StoreErr.Error())
	}
	if res.LedgerErr != nil {
		printlnFn("Ledger:  ", "lookup failed:", res.LedgerErr.Error())
	}

	if r := res.Record; r != nil {
		printlnFn("Record:  ", r.ID, r.FileName, "saved", humanize.Time(r.CreatedAt))
		printlnFn("Owner:   ", r.OwnerAddress)
		if r.BlockchainTx != nil {
			printlnFn("Tx:      ", *r.BlockchainTx)
		}
		if r.IPFSCID != nil {
			printlnFn("CID:     ", *r.IPFSCID)
		}
		if n := len(res.Matches); n > 1 {
			printlnFn("Matches: ", n, "records share this digest")
		}
	}

	if e := res.Entry; e != nil {
		printlnFn("Uploader:", e.Uploader)
		printlnFn("Name:    ", e.FileName)
		if e.Tag != "" {
			printlnFn("Tag:     ", e.Tag)
		}
		if !e.Timestamp.IsZero() {
			printlnFn("On chain:", e.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
		}
	}
}

// Verify hashes the file at args and looks it up in the record store and on
// the ledger.
func (a *App) Verify(ctx context.Context, args []string) error {
	path, err := argOrPrompt(a.reader, args, "File path", os.Stdout)
	if err != nil {
		return err
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := a.verifier.VerifyFile(ctx, path)
	return a.showResult(ctx, res, err)
}

// VerifyHash looks up a digest typed by the user.
func (a *App) VerifyHash(ctx context.Context, args []string) error {
	raw, err := argOrPrompt(a.reader, args, "Digest (SHA-1, SHA-256 or SHA-512 hex)", os.Stdout)
	if err != nil {
		return err
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := a.verifier.VerifyDigest(ctx, raw)
	return a.showResult(ctx, res, err)
}

func (a *App) showResult(ctx context.Context, res *verify.Result, err error) error {
	if errors.Is(err, verify.ErrSuperseded) {
		return nil
	}
	if err != nil {
		return a.report(ctx, "verify", err)
	}
	printResult(res)
	return nil
}
