// Package rabbitmq публикует события ядра (создание участника,
// создание/возврат/перенос записи) для внешнего отправителя
// уведомлений. Доставка уведомлений — забота отдельного сервиса,
// ядро только кладёт события в обменник.
package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/maka255-beep/workshop-registry/internal/models"
)

// ExchangeName — обменник событий реестра.
const ExchangeName = "registry.events"

// Ключи маршрутизации по типу события.
const (
	RoutingPersonCreated           = "person.created"
	RoutingSubscriptionCreated     = "subscription.created"
	RoutingSubscriptionRefunded    = "subscription.refunded"
	RoutingSubscriptionTransferred = "subscription.transferred"
)

// PersonEvent — полезная нагрузка события участника.
type PersonEvent struct {
	PersonID string `json:"person_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// SubscriptionEvent — полезная нагрузка события записи.
type SubscriptionEvent struct {
	SubscriptionID string `json:"subscription_id"`
	PersonID       string `json:"person_id"`
	WorkshopID     int    `json:"workshop_id"`
	Status         string `json:"status"`
}

// Connect подключается к RabbitMQ с повторными попытками.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал и объявляет обменник событий.
func SetupChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	err = ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}

// Publisher публикует события реестра в обменник.
type Publisher struct {
	ch *amqp.Channel
}

// NewPublisher создает новый Publisher поверх открытого канала.
func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) publish(routingKey string, message any) error {
	const op = "rabbitmq.publish"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.ch.Publish(
		ExchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PersonCreated публикует событие создания участника.
func (p *Publisher) PersonCreated(person models.Person) error {
	return p.publish(RoutingPersonCreated, PersonEvent{
		PersonID: person.ID,
		FullName: person.FullName,
		Email:    person.Email,
		Phone:    person.Phone,
	})
}

// SubscriptionCreated публикует событие создания записи.
func (p *Publisher) SubscriptionCreated(sub models.Subscription) error {
	return p.publish(RoutingSubscriptionCreated, subscriptionEvent(sub))
}

// SubscriptionRefunded публикует событие возврата записи.
func (p *Publisher) SubscriptionRefunded(sub models.Subscription) error {
	return p.publish(RoutingSubscriptionRefunded, subscriptionEvent(sub))
}

// SubscriptionTransferred публикует событие переноса записи.
func (p *Publisher) SubscriptionTransferred(sub models.Subscription) error {
	return p.publish(RoutingSubscriptionTransferred, subscriptionEvent(sub))
}

func subscriptionEvent(sub models.Subscription) SubscriptionEvent {
	return SubscriptionEvent{
		SubscriptionID: sub.ID,
		PersonID:       sub.PersonID,
		WorkshopID:     sub.WorkshopID,
		Status:         string(sub.Status),
	}
}
