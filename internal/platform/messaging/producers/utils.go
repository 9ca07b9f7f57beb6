package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// createKafkaTopicIfNotExists makes a producer usable against a fresh broker.
// Partition reads are retried because a broker that just started can answer
// before its metadata settles.
func createKafkaTopicIfNotExists(conn *kafka.Conn, topicName string, numPartitions int, replicationFactor int, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for attempt := 1; attempt <= 5; attempt++ {
		partitions, err = conn.ReadPartitions(topicName)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying",
			"topic", topicName, "attempt", attempt, "error", err)
		time.Sleep(2 * time.Second)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", topicName)
		return nil
	}

	if numPartitions <= 0 {
		numPartitions = 1
	}
	if replicationFactor <= 0 {
		replicationFactor = 1
	}

	log.Info("Creating Kafka topic",
		"topic", topicName,
		"partitions", numPartitions,
		"replication_factor", replicationFactor,
	)
	if err := conn.CreateTopics(kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}

	return nil
}
