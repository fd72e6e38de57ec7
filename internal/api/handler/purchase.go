package handler

import (
	"strconv"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"

	"stargift/internal/models"
	"stargift/internal/services"
)

type groupPurchase struct {
	container *do.Injector
}

func (gr *groupPurchase) SearchRecipient(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveAuthUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	servicePurchase, err := do.Invoke[*services.ServicePurchase](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	kind := models.ProductKind(c.Param("kind"))
	resolution, err := servicePurchase.Search(ctx, user.ID, kind, c.QueryParam("username"))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, resolution, nil)
}

func (gr *groupPurchase) GetIntent(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveAuthUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	servicePurchase, err := do.Invoke[*services.ServicePurchase](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	kind := models.ProductKind(c.Param("kind"))
	return httpx.RestAbort(c, servicePurchase.Intent(user.ID, kind), nil)
}

type submitPayload struct {
	Quantity int `json:"quantity"`
	Months   int `json:"months"`
}

func (gr *groupPurchase) Submit(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveAuthUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload submitPayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	kind := models.ProductKind(c.Param("kind"))
	amount := payload.Quantity
	if kind == models.ProductPremium {
		amount = payload.Months
	}

	servicePurchase, err := do.Invoke[*services.ServicePurchase](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	result, err := servicePurchase.Submit(ctx, user, kind, amount)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, result, nil)
}

func (gr *groupPurchase) ResetForm(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveAuthUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	servicePurchase, err := do.Invoke[*services.ServicePurchase](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	kind := models.ProductKind(c.Param("kind"))
	return httpx.RestAbort(c, servicePurchase.ResetForm(user.ID, kind), nil)
}

func (gr *groupPurchase) GetFee(c echo.Context) error {
	ctx := c.Request().Context()

	serviceBilling, err := do.Invoke[*services.ServiceBilling](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	// fee is display-only; unknown is a valid answer, not an error
	fee, err := serviceBilling.CachedNetworkFee(ctx)
	if err != nil {
		return httpx.RestAbort(c, map[string]interface{}{
			"fee":   nil,
			"known": false,
		}, nil)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"fee":   fee,
		"known": true,
	}, nil)
}

func (gr *groupPurchase) GetHistory(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveAuthUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	page := 0
	limit := 10
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, _ = strconv.Atoi(limitStr)
		if limit > 100 {
			limit = 100
		}
	}
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 0 {
		page = 0
	}

	servicePurchase, err := do.Invoke[*services.ServicePurchase](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	purchases, count, err := servicePurchase.History(ctx, user.ID, page, limit)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"purchases": purchases,
		"count":     count,
	}, nil)
}
