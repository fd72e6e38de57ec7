package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"stargift/internal/datastore/redis_store"
	"stargift/internal/services"
)

// NetworkFeeJob keeps the billing fee ratio warm in redis so the API never
// fetches it on the request path.
type NetworkFeeJob struct {
	Redis   redis.UniversalClient
	Billing *services.ServiceBilling
}

func NewNetworkFeeJob(redis redis.UniversalClient, billing *services.ServiceBilling) *NetworkFeeJob {
	return &NetworkFeeJob{
		Redis:   redis,
		Billing: billing,
	}
}

func (j *NetworkFeeJob) Start(cronRunner *cron.Cron) {
	spec := os.Getenv("CRONJOB_TIME_NETWORK_FEE")
	if spec == "" {
		spec = "*/2 * * * *"
	}

	_, err := cronRunner.AddFunc(spec, j.runScheduledTask)
	log.Println("Network fee cronjob start at:", time.Now().Format("2006-01-02 15:04:05"), "cron:", spec, err)
	j.runScheduledTask()
}

func (j *NetworkFeeJob) runScheduledTask() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ratio, err := j.Billing.NetworkFee(ctx)
	if err != nil {
		log.Println("network fee fetch failed:", err)
		return
	}

	ttl := time.Duration(j.cacheTTLSeconds()) * time.Second
	err = redis_store.SetNetworkFee(ctx, j.Redis, &redis_store.NetworkFee{
		Ratio:     ratio,
		FetchedAt: time.Now().UTC(),
	}, ttl)
	if err != nil {
		log.Println("network fee cache write failed:", err)
		return
	}
	log.Println("network fee refreshed:", ratio)
}

func (j *NetworkFeeJob) cacheTTLSeconds() int {
	raw := os.Getenv("NETWORK_FEE_CACHE_TTL_SECONDS")
	if raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			return seconds
		}
	}
	return services.DEFAULT_FEE_CACHE_TTL_SECONDS
}
