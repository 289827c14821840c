// Package chat sends student messages to a hosted language model, walking a
// list of models until one accepts the request.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// ErrBadRequest marks a request the provider rejected as invalid for the
// chosen model, such as a decommissioned model name. Only these errors move
// the responder on to the next model.
var ErrBadRequest = errors.New("bad request")

type Client interface {
	Complete(ctx context.Context, model, system, message string) (string, error)
}

type Responder struct {
	client Client
	models []string
	system string
	logger *slog.Logger
}

func NewResponder(client Client, preferred string, fallbacks []string, logger *slog.Logger) *Responder {
	var models []string
	if preferred != "" {
		models = append(models, preferred)
	}
	for _, m := range fallbacks {
		if m != "" && !slices.Contains(models, m) {
			models = append(models, m)
		}
	}
	return &Responder{client: client, models: models, system: SystemPrompt, logger: logger}
}

// Models returns the order in which models are tried.
func (r *Responder) Models() []string {
	return slices.Clone(r.models)
}

func (r *Responder) Respond(ctx context.Context, message string) (string, error) {
	if len(r.models) == 0 {
		return "", errors.New("no language model configured")
	}

	var lastErr error
	for _, model := range r.models {
		reply, err := r.client.Complete(ctx, model, r.system, message)
		if err == nil {
			return reply, nil
		}
		if !errors.Is(err, ErrBadRequest) {
			return "", fmt.Errorf("failed to get reply from %s: %w", model, err)
		}
		r.logger.Warn("model rejected request, trying next", "model", model, "error", err)
		lastErr = err
	}
	return "", fmt.Errorf("failed to get reply from any model: %w", lastErr)
}
