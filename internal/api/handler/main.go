package handler

import (
	"net/http"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"

	"stargift/internal/services"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🎁")
	})

	routesAPIv1 := r.Group("/api/v1")
	{
		bot, err := do.Invoke[*services.Bot](cfg.Container)
		if err != nil {
			return nil, err
		}
		authentication, err := do.Invoke[*services.Authentication](cfg.Container)
		if err != nil {
			return nil, err
		}
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		})

		routesAPIv1.Use(cors)

		routesAPIv1Me := routesAPIv1.Group("/user/me")
		routesAPIv1Me.Use(Authn(bot))
		{
			u := groupUser{cfg.Container}
			routesAPIv1Me.GET("", u.Me)
		}

		routesAPIv1.Use(Authn(authentication)) // Authn will NOT terminate unauthenticated request.

		p := groupPurchase{cfg.Container}
		routesAPIv1.GET("/fee", p.GetFee)
		routesAPIv1.GET("/purchases", p.GetHistory)

		routesAPIv1Purchase := routesAPIv1.Group("/purchase")
		{
			routesAPIv1Purchase.GET("/:kind/recipient", p.SearchRecipient)
			routesAPIv1Purchase.GET("/:kind/intent", p.GetIntent)
			routesAPIv1Purchase.POST("/:kind/submit", p.Submit)
			routesAPIv1Purchase.POST("/:kind/reset", p.ResetForm)
		}

		w := groupWallet{cfg.Container}
		routesAPIv1.GET("/wallet", w.Status)
		routesAPIv1.POST("/wallet/connect", w.Connect)
		routesAPIv1.POST("/wallet/disconnect", w.Disconnect)
	}

	return r, nil
}
