package handler

import (
	"errors"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/tonkeeper/tongo"

	"stargift/internal/models"
	"stargift/internal/pkg/ton_utils"
	"stargift/internal/services"
)

type groupWallet struct {
	container *do.Injector
}

func (gr *groupWallet) Status(c echo.Context) error {
	session, err := do.Invoke[*services.WalletSession](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, session.Status(), nil)
}

// Connect verifies the caller's TON Connect ownership proof and brings
// the wallet session up.
func (gr *groupWallet) Connect(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := ResolveAuthUser(ctx); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload models.TonProof
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	address, err := tongo.ParseAddress(payload.Address)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	proofMessage, err := ton_utils.ParseTonProofMessage(&payload)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](gr.container, "redis-db")
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	vs, err := do.InvokeNamed[map[string]string](gr.container, "envs")
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ok, err := ton_utils.CheckProof(ctx, redisDB, address.ID, vs["TON_APP_DOMAIN"], payload.Nonce, proofMessage)
	if err != nil || !ok {
		return httpx.RestAbort(c, nil, errorx.Wrap(errors.New("invalid ton proof"), errorx.Authn))
	}

	session, err := do.Invoke[*services.WalletSession](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	account, err := session.Connect(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"status":  session.Status(),
		"account": account,
	}, nil)
}

func (gr *groupWallet) Disconnect(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := ResolveAuthUser(ctx); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	session, err := do.Invoke[*services.WalletSession](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	if err := session.Disconnect(ctx); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, session.Status(), nil)
}
