package postgres

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/core/repo"
	"github.com/sardis-labs/agentpay/native/webhook"
)

// WebhookRepository is a gorm-backed repo.WebhookRepository: the durable
// counterpart to core/repo/boltdb's WebhookLog, used when the deployment
// already runs postgres for everything else and doesn't want a second
// embedded store.
type WebhookRepository struct{ db *gorm.DB }

func NewWebhookRepository(db *gorm.DB) *WebhookRepository { return &WebhookRepository{db: db} }

func subToModel(s webhook.Subscription) (webhookSubscriptionModel, error) {
	data, err := json.Marshal(s.Events)
	if err != nil {
		return webhookSubscriptionModel{}, err
	}
	return webhookSubscriptionModel{
		SubscriptionID: s.SubscriptionID, OrganizationID: s.OrganizationID, URL: s.URL,
		EventsJSON: string(data), Secret: s.Secret, IsActive: s.IsActive,
		TotalAttempts: s.TotalAttempts, SuccessCount: s.SuccessCount, FailCount: s.FailCount,
		LastDeliveryAt: s.LastDeliveryAt,
	}, nil
}

func modelToSub(m webhookSubscriptionModel) (webhook.Subscription, error) {
	var events []string
	if m.EventsJSON != "" {
		if err := json.Unmarshal([]byte(m.EventsJSON), &events); err != nil {
			return webhook.Subscription{}, err
		}
	}
	return webhook.Subscription{
		SubscriptionID: m.SubscriptionID, OrganizationID: m.OrganizationID, URL: m.URL,
		Events: events, Secret: m.Secret, IsActive: m.IsActive,
		TotalAttempts: m.TotalAttempts, SuccessCount: m.SuccessCount, FailCount: m.FailCount,
		LastDeliveryAt: m.LastDeliveryAt,
	}, nil
}

func (r *WebhookRepository) GetSubscription(ctx context.Context, subscriptionID string) (webhook.Subscription, error) {
	var m webhookSubscriptionModel
	if err := r.db.WithContext(ctx).First(&m, "subscription_id = ?", subscriptionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return webhook.Subscription{}, agentpayerrors.NotFound("webhook_subscription", subscriptionID)
		}
		return webhook.Subscription{}, agentpayerrors.Internal(err)
	}
	return modelToSub(m)
}

func (r *WebhookRepository) PutSubscription(ctx context.Context, sub webhook.Subscription) error {
	m, err := subToModel(sub)
	if err != nil {
		return agentpayerrors.Internal(err)
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscription_id"}},
		UpdateAll: true,
	}).Create(&m).Error; err != nil {
		return agentpayerrors.Internal(err)
	}
	return nil
}

func (r *WebhookRepository) ListActiveSubscriptions(ctx context.Context) ([]webhook.Subscription, error) {
	var rows []webhookSubscriptionModel
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&rows).Error; err != nil {
		return nil, agentpayerrors.Internal(err)
	}
	out := make([]webhook.Subscription, 0, len(rows))
	for _, m := range rows {
		s, err := modelToSub(m)
		if err != nil {
			return nil, agentpayerrors.Internal(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *WebhookRepository) RecordAttempt(ctx context.Context, attempt webhook.Attempt) error {
	m := webhookAttemptModel{
		AttemptID: attempt.AttemptID, SubscriptionID: attempt.SubscriptionID, EventID: attempt.EventID,
		EventType: attempt.EventType, URL: attempt.URL, StatusCode: attempt.StatusCode,
		ResponseBody: attempt.ResponseBody, Err: attempt.Err, DurationMS: attempt.DurationMS,
		Success: attempt.Success, AttemptNumber: attempt.AttemptNumber, CreatedAt: attempt.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return agentpayerrors.Internal(err)
	}
	return nil
}

func (r *WebhookRepository) AttemptsForEvent(ctx context.Context, eventID string) ([]webhook.Attempt, error) {
	var rows []webhookAttemptModel
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, agentpayerrors.Internal(err)
	}
	out := make([]webhook.Attempt, len(rows))
	for i, m := range rows {
		out[i] = webhook.Attempt{
			AttemptID: m.AttemptID, SubscriptionID: m.SubscriptionID, EventID: m.EventID,
			EventType: m.EventType, URL: m.URL, StatusCode: m.StatusCode,
			ResponseBody: m.ResponseBody, Err: m.Err, DurationMS: m.DurationMS,
			Success: m.Success, AttemptNumber: m.AttemptNumber, CreatedAt: m.CreatedAt,
		}
	}
	return out, nil
}

var _ repo.WebhookRepository = (*WebhookRepository)(nil)
