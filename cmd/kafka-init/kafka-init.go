package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	kafkax "github.com/NordCoder/Warden/internal/repository/kafka"
)

func main() {
	brokers := strings.Split(env("KAFKA_BROKERS", "kafka:9092"), ",")
	topics := strings.Split(env("KAFKA_TOPICS", kafkax.DefaultSessionEventsTopic), ",")
	spec := kafkax.TopicSpec{
		NumPartitions:     envInt("KAFKA_PARTITIONS", 3),
		ReplicationFactor: envInt("KAFKA_RF", 1),
		RetentionHours:    envInt("KAFKA_RETENTION_HOURS", 168),
		MaxWait:           30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		spec.Name = t
		if err := kafkax.EnsureTopic(ctx, brokers, spec, nil); err != nil {
			log.Fatalf("ensure topic %q: %v", t, err)
		}
		log.Printf("topic %q ready", t)
	}
	log.Println("kafka-init ok")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, _ := strconv.Atoi(v); n > 0 {
			return n
		}
	}
	return def
}
