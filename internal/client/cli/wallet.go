package cli

import (
	"context"
)

// Connect authorizes the wallet and logs in to the record server. The
// wallet stays connected when the server is unreachable; reads work without
// a login and writes log in on demand.
func (a *App) Connect(ctx context.Context, _ []string) error {
	addr, err := a.session.Connect(ctx)
	if err != nil {
		return a.report(ctx, "connect", err)
	}
	printlnFn("Connected:", addr.Hex())
	a.serverLogin(ctx)
	return nil
}

func (a *App) serverLogin(ctx context.Context) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.api.Login(ctx); err != nil {
		a.logger.Warn(ctx, "record server login failed", "error", err)
		printlnFn("Warning: record server login failed:", err.Error())
	}
}

func (a *App) Disconnect(ctx context.Context, _ []string) error {
	a.api.Logout()
	if err := a.session.Disconnect(ctx); err != nil {
		return a.report(ctx, "disconnect", err)
	}
	printlnFn("Disconnected")
	return nil
}

func (a *App) WhoAmI(context.Context, []string) error {
	addr, ok := a.session.CurrentAddress()
	if !ok {
		printlnFn("Not connected")
		return nil
	}
	printlnFn("Address: ", addr.Hex())
	if c := a.contractAddress(); c != "" {
		printlnFn("Contract:", c)
	}
	return nil
}
