package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/docverify/internal/certificate"
	"github.com/dmitrijs2005/docverify/internal/client/services"
	"github.com/dmitrijs2005/docverify/internal/filex"
)

func printCurrent(c *services.Current) {
	f := c.File
	printlnFn("File:     ", f.Info.Name)
	printlnFn("Type:     ", f.Info.Type)
	printlnFn("Size:     ", f.Info.HumanSize())
	if !f.Info.Modified.IsZero() {
		printlnFn("Modified: ", f.Info.Modified.Format("2006-01-02 15:04:05"))
	}
	printlnFn("SHA-256:  ", f.Digests.Display(f.Digests.SHA256))
	printlnFn("SHA-1:    ", f.Digests.Display(f.Digests.SHA1))
	printlnFn("SHA-512:  ", f.Digests.Display(f.Digests.SHA512))
	printlnFn("Checksum: ", f.Digests.Checksum)
	printlnFn("Ledger:   ", c.Status.String())
	if c.Tags != "" {
		printlnFn("Tags:     ", c.Tags)
	}
	if c.CID != "" {
		printlnFn("CID:      ", c.CID)
	}
	if c.TxHash != "" {
		printlnFn("Tx:       ", c.TxHash)
	}
}

// Hash makes the file at args the current one.
func (a *App) Hash(ctx context.Context, args []string) error {
	path, err := argOrPrompt(a.reader, args, "File path", os.Stdout)
	if err != nil {
		return err
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	c, err := a.files.Hash(ctx, path)
	if err != nil {
		return a.report(ctx, "hash", err)
	}
	if c.File.Digests.Degraded {
		printlnFn("Warning: cryptographic digests are unavailable, only the checksum was computed")
	}
	printCurrent(c)
	return nil
}

// Annotate asks for the tags and notes stored with the current file.
func (a *App) Annotate(ctx context.Context, _ []string) error {
	if a.files.Current() == nil {
		return a.report(ctx, "annotate", services.ErrNoFile)
	}
	tags, err := GetSimpleText(a.reader, "Tags (comma separated)", os.Stdout)
	if err != nil {
		return err
	}
	notes, err := GetMultiline(a.reader, "Notes", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.files.Annotate(tags, notes); err != nil {
		return a.report(ctx, "annotate", err)
	}
	printlnFn("Annotations updated")
	return nil
}

func (a *App) Save(ctx context.Context, _ []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	r, err := a.files.Save(ctx)
	if err != nil {
		return a.report(ctx, "save", err)
	}
	printlnFn("Saved record", r.ID)
	return nil
}

func (a *App) Pin(ctx context.Context, _ []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	cid, err := a.files.Pin(ctx)
	if cid != "" {
		printlnFn("Pinned:", cid)
	}
	if err != nil {
		return a.report(ctx, "pin", err)
	}
	return nil
}

// Register waits for the transaction to be mined, so it is bound by ctx
// only and not by the request timeout.
func (a *App) Register(ctx context.Context, _ []string) error {
	tx, err := a.files.Register(ctx, func(txHash string) {
		printlnFn("Submitted:", txHash, "(waiting to be mined)")
	})
	if err != nil {
		return a.report(ctx, "register", err)
	}
	printlnFn("Registered in transaction", tx)
	return nil
}

func (a *App) Check(ctx context.Context, _ []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	status, err := a.files.Check(ctx)
	if err != nil {
		return a.report(ctx, "check", err)
	}
	printlnFn("Ledger:", status.String())
	return nil
}

// Cert writes the PDF certificate of the current file to args, or into the
// output directory under a generated name.
func (a *App) Cert(ctx context.Context, args []string) error {
	data, err := a.files.CertificateData(a.contractAddress(), a.config.PublicBaseURL)
	if err != nil {
		return a.report(ctx, "cert", err)
	}

	if a.eth != nil {
		lctx, cancel := a.withTimeout(ctx)
		entry, err := ledgerReader{a}.FileInfo(lctx, data.Digests.SHA256)
		cancel()
		if err != nil {
			a.logger.Warn(ctx, "ledger timestamp unavailable", "error", err)
		} else if entry != nil {
			data.LedgerTimestamp = entry.Timestamp
		}
	}

	cert, err := certificate.Render(data)
	if err != nil {
		return a.report(ctx, "cert", err)
	}

	path, err := a.outputPath(args, cert.FileName)
	if err != nil {
		return a.report(ctx, "cert", err)
	}
	if err := filex.WriteFileAtomic(path, cert.Content, 0o644); err != nil {
		return a.report(ctx, "cert", fmt.Errorf("write certificate: %w", err))
	}
	printlnFn("Certificate written to", path)
	return nil
}

func (a *App) outputPath(args []string, name string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	dir, err := filex.EnsureDir(a.config.OutputDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
