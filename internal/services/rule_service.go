package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetsplit/internal/amqp"
	"budgetsplit/internal/core"
	"budgetsplit/internal/rules"
)

// RuleService orchestrates rule operations across the local store and
// AMQP. Mutations land locally first; the sync message is best-effort
// and never fails the request.
type RuleService struct {
	repo       *rules.Repository
	amqpClient *amqp.Client
}

func NewRuleService(repo *rules.Repository, amqpClient *amqp.Client) *RuleService {
	return &RuleService{
		repo:       repo,
		amqpClient: amqpClient,
	}
}

// AllRules returns the full catalog the user can pick from: the
// predefined rules followed by the custom ones.
func (s *RuleService) AllRules(ctx context.Context) []core.Rule {
	all := core.PredefinedRules()
	return append(all, s.repo.List(ctx)...)
}

// CustomRules returns only the user-authored rules.
func (s *RuleService) CustomRules(ctx context.Context) []core.Rule {
	return s.repo.List(ctx)
}

// Resolve finds one rule by id across the whole catalog.
func (s *RuleService) Resolve(ctx context.Context, id string) (core.Rule, bool) {
	if r, ok := core.PredefinedRule(id); ok {
		return r, true
	}
	return s.repo.Get(ctx, id)
}

// NewID hands out a fresh custom rule id.
func (s *RuleService) NewID() string {
	return s.repo.NewID()
}

// NewColor hands out a display color for a category without one.
func (s *RuleService) NewColor() string {
	return s.repo.NewColor()
}

// ColorAvoiding hands out a display color distinguishable from avoid.
func (s *RuleService) ColorAvoiding(avoid string) string {
	return s.repo.ColorAvoiding(avoid)
}

// CreateRule saves a rule locally and publishes a sync message.
func (s *RuleService) CreateRule(ctx context.Context, rule core.Rule) error {
	if err := s.repo.Create(ctx, rule); err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	s.publish(ctx, rule.ID, amqp.ActionUpsert)
	return nil
}

// UpdateRule replaces a rule locally and publishes a sync message.
func (s *RuleService) UpdateRule(ctx context.Context, rule core.Rule) error {
	if err := s.repo.Update(ctx, rule); err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	s.publish(ctx, rule.ID, amqp.ActionUpsert)
	return nil
}

// DeleteRule removes a rule locally and publishes a delete message.
func (s *RuleService) DeleteRule(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	s.publish(ctx, id, amqp.ActionDelete)
	return nil
}

// CloneRule duplicates a rule and publishes a sync message for the copy.
func (s *RuleService) CloneRule(ctx context.Context, id string) (core.Rule, error) {
	clone, err := s.repo.Clone(ctx, id)
	if err != nil {
		return core.Rule{}, fmt.Errorf("clone rule: %w", err)
	}
	s.publish(ctx, clone.ID, amqp.ActionUpsert)
	return clone, nil
}

// ExportRules serializes the custom collection.
func (s *RuleService) ExportRules(ctx context.Context) ([]byte, error) {
	return s.repo.ExportAll(ctx)
}

// ImportRules merges a payload into the custom collection. One sync
// message covers the whole batch since the mirror rewrites everything.
func (s *RuleService) ImportRules(ctx context.Context, data []byte) (rules.ImportResult, error) {
	res, err := s.repo.ImportMerge(ctx, data)
	if err != nil {
		return rules.ImportResult{}, err
	}
	if res.Imported > 0 {
		s.publish(ctx, "import", amqp.ActionUpsert)
	}
	return res, nil
}

func (s *RuleService) publish(ctx context.Context, ruleID, action string) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message",
			"ruleId", ruleID, "action", action)
		return
	}
	if err := s.amqpClient.PublishRuleSync(ctx, ruleID, action); err != nil {
		// The mirror heals on the next message, so publish failures
		// never fail the request.
		slog.ErrorContext(ctx, "Failed to publish rule sync message",
			"ruleId", ruleID, "action", action, "error", err)
	}
}

func (s *RuleService) Close() error {
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			return fmt.Errorf("close rule service: %w", err)
		}
	}
	return nil
}
