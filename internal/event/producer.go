package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/potrail/identity/internal/domain"
	pkgkafka "github.com/potrail/identity/pkg/kafka"
)

// Kafka topics for account domain events.
var (
	TopicAccountRegistered    = pkgkafka.Topic("account", "registered")
	TopicAccountConfirmed     = pkgkafka.Topic("account", "confirmed")
	TopicAccountUpdated       = pkgkafka.Topic("account", "updated")
	TopicAccountDeleted       = pkgkafka.Topic("account", "deleted")
	TopicAccountPasswordReset = pkgkafka.Topic("account", "password_reset")
)

// Aggregate type constant.
const AggregateTypeAccount = "account"

// Source identifier for events originating from the identity service.
const SourceIdentityService = "identity-service"

// AccountRegisteredData is the payload for an account.registered event.
type AccountRegisteredData struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// AccountConfirmedData is the payload for an account.confirmed event.
type AccountConfirmedData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AccountUpdatedData is the payload for an account.updated event.
type AccountUpdatedData struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// AccountDeletedData is the payload for an account.deleted event.
type AccountDeletedData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AccountPasswordResetData is the payload for an account.password_reset event.
type AccountPasswordResetData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Producer publishes account domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the identity service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishAccountRegistered publishes an account.registered event.
func (p *Producer) PublishAccountRegistered(ctx context.Context, a *domain.Account) error {
	data := AccountRegisteredData{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
	}

	return p.publish(ctx, TopicAccountRegistered, a.ID, data)
}

// PublishAccountConfirmed publishes an account.confirmed event.
func (p *Producer) PublishAccountConfirmed(ctx context.Context, accountID, email string) error {
	return p.publish(ctx, TopicAccountConfirmed, accountID, AccountConfirmedData{ID: accountID, Email: email})
}

// PublishAccountUpdated publishes an account.updated event.
func (p *Producer) PublishAccountUpdated(ctx context.Context, a *domain.Account) error {
	data := AccountUpdatedData{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
	}

	return p.publish(ctx, TopicAccountUpdated, a.ID, data)
}

// PublishAccountDeleted publishes an account.deleted event.
func (p *Producer) PublishAccountDeleted(ctx context.Context, accountID, email string) error {
	return p.publish(ctx, TopicAccountDeleted, accountID, AccountDeletedData{ID: accountID, Email: email})
}

// PublishAccountPasswordReset publishes an account.password_reset event.
func (p *Producer) PublishAccountPasswordReset(ctx context.Context, accountID, email string) error {
	return p.publish(ctx, TopicAccountPasswordReset, accountID, AccountPasswordResetData{ID: accountID, Email: email})
}

func (p *Producer) publish(ctx context.Context, topic, accountID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, accountID, AggregateTypeAccount, SourceIdentityService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published account event",
		slog.String("topic", topic),
		slog.String("account_id", accountID),
	)

	return nil
}
