package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"

	"stargift/internal/models"
	"stargift/internal/pkg/tonaddr"
	"stargift/internal/services"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name: "treasury",
		Commands: []*cli.Command{
			commandBalance(),
			commandBuy(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandBalance() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "show the treasury wallet address and state",
		Action: func(c *cli.Context) error {
			vs, err := env.EnvsRequired("TREASURY_SEED")
			if err != nil {
				return err
			}

			session := services.NewWalletSession(services.NewTonConnector(vs["TREASURY_SEED"]))
			account, err := session.Connect(c.Context)
			if err != nil {
				return err
			}

			fmt.Printf("wallet %s\n", tonaddr.Format(account.Address))
			return nil
		},
	}
}

func commandBuy() *cli.Command {
	return &cli.Command{
		Name:  "buy",
		Usage: "buy stars or premium for a username straight from the treasury",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Value: string(models.ProductStars),
				Usage: "product kind: stars or premium",
			},
			&cli.StringFlag{
				Name:     "username",
				Required: true,
				Usage:    "recipient telegram username",
			},
			&cli.IntFlag{
				Name:  "amount",
				Usage: "star quantity or premium months",
			},
		},
		Action: func(c *cli.Context) error {
			vs, err := env.EnvsRequired("TREASURY_SEED")
			if err != nil {
				return err
			}

			kind := models.ProductKind(c.String("kind"))
			if !kind.Valid() {
				return fmt.Errorf("unknown product kind %q", c.String("kind"))
			}

			amount := c.Int("amount")
			if amount == 0 {
				amount = models.DefaultIntent(kind).Amount
			}

			billing, err := getBilling(vs)
			if err != nil {
				return err
			}

			ctx := c.Context

			recipient, err := billing.LookupRecipient(ctx, kind, c.String("username"))
			if err != nil {
				return err
			}
			fmt.Printf("recipient %s (%s)\n", recipient.DisplayName, recipient.BillingID)

			quote, err := billing.QuoteTransaction(ctx, kind, recipient.BillingID, amount)
			if err != nil {
				return err
			}
			fmt.Printf("quote %d nano to %s, valid until %d\n", quote.AmountNano, tonaddr.Truncate(quote.WalletAddress, 6, 4), quote.ValidUntil)

			session := services.NewWalletSession(services.NewTonConnector(vs["TREASURY_SEED"]))
			if _, err := session.Connect(ctx); err != nil {
				return err
			}

			hash, err := session.SendTransaction(ctx, quote.WalletRequest())
			if err != nil {
				return err
			}

			fmt.Printf("@%s received %d %s in tx %s\n", recipient.Handle, amount, kind, hash)
			return session.Disconnect(ctx)
		},
	}
}

func getBilling(vs map[string]string) (*services.ServiceBilling, error) {
	vs["BILLING_BASE_URL"] = os.Getenv("BILLING_BASE_URL")

	injector := do.New()
	do.ProvideNamedValue(injector, "envs", vs)
	if url := os.Getenv("REDIS_BILLING"); url != "" {
		do.ProvideNamed(injector, "redis-db", func(i *do.Injector) (redis.UniversalClient, error) {
			return db.InitRedis(&db.RedisConfig{URL: url})
		})
	}
	return services.NewServiceBilling(injector)
}
