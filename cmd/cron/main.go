package main

import (
	"log"
	"os"

	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"

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
		Name: "cronjob",
		Commands: []*cli.Command{
			commandCronjob(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandCronjob() *cli.Command {
	return &cli.Command{
		Name: "cron",
		Action: func(c *cli.Context) error {
			vs := map[string]string{}

			dbRedis, err := getRedis()
			if err != nil {
				return err
			}

			billing, err := getBilling(vs, dbRedis)
			if err != nil {
				return err
			}

			cronRunner := cron.New()

			feeJob := NewNetworkFeeJob(dbRedis, billing)
			feeJob.Start(cronRunner)
			log.Println("Start cronjob")
			cronRunner.Run()
			return nil
		},
	}
}

func getRedis() (redis.UniversalClient, error) {
	clusterRedisURL := os.Getenv("CLUSTER_REDIS_BILLING")
	if clusterRedisURL != "" {
		clusterOpts, err := redis.ParseClusterURL(clusterRedisURL)
		if err != nil {
			return nil, err
		}
		return redis.NewClusterClient(clusterOpts), nil
	}
	return db.InitRedis(&db.RedisConfig{
		URL: os.Getenv("REDIS_BILLING"),
	})
}

func getBilling(vs map[string]string, dbRedis redis.UniversalClient) (*services.ServiceBilling, error) {
	vs["BILLING_BASE_URL"] = os.Getenv("BILLING_BASE_URL")

	injector := do.New()
	do.ProvideNamedValue(injector, "envs", vs)
	do.ProvideNamedValue(injector, "redis-db", dbRedis)
	return services.NewServiceBilling(injector)
}
