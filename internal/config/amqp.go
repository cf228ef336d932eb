package config

import (
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConnectAMQP dials RabbitMQ with a few retries and opens a channel.
func ConnectAMQP(url string) (*amqp.Connection, *amqp.Channel, error) {
	var (
		conn *amqp.Connection
		ch   *amqp.Channel
		err  error
	)
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			ch, err = conn.Channel()
			if err == nil {
				log.Println("connected to RabbitMQ")
				return conn, ch, nil
			}
			_ = conn.Close()
		}
		log.Printf("RabbitMQ not ready, retrying... (%d/5)", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
}
