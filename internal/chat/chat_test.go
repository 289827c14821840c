package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	model   string
	system  string
	message string
}

type scriptedClient struct {
	calls   []call
	replies map[string]string
	errs    map[string]error
}

func (c *scriptedClient) Complete(ctx context.Context, model, system, message string) (string, error) {
	c.calls = append(c.calls, call{model: model, system: system, message: message})
	if err, ok := c.errs[model]; ok {
		return "", err
	}
	return c.replies[model], nil
}

func (c *scriptedClient) models() []string {
	var out []string
	for _, cl := range c.calls {
		out = append(out, cl.model)
	}
	return out
}

func TestNewResponderDeduplicatesPreferred(t *testing.T) {
	r := NewResponder(&scriptedClient{}, "llama-3.1-8b-instant", []string{"llama-3.1-8b-instant", "llama-3.1-70b-versatile", ""}, slog.Default())
	assert.Equal(t, []string{"llama-3.1-8b-instant", "llama-3.1-70b-versatile"}, r.Models())
}

func TestRespondFirstModel(t *testing.T) {
	client := &scriptedClient{replies: map[string]string{"a": "hola"}}
	r := NewResponder(client, "a", []string{"b"}, slog.Default())

	reply, err := r.Respond(context.Background(), "¿qué es DHCP?")
	require.NoError(t, err)
	assert.Equal(t, "hola", reply)
	require.Len(t, client.calls, 1)
	assert.Equal(t, SystemPrompt, client.calls[0].system)
	assert.Equal(t, "¿qué es DHCP?", client.calls[0].message)
}

func TestRespondFallsBackOnBadRequest(t *testing.T) {
	client := &scriptedClient{
		replies: map[string]string{"b": "respuesta de b"},
		errs:    map[string]error{"a": fmt.Errorf("model decommissioned: %w", ErrBadRequest)},
	}
	r := NewResponder(client, "a", []string{"b", "c"}, slog.Default())

	reply, err := r.Respond(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, "respuesta de b", reply)
	assert.Equal(t, []string{"a", "b"}, client.models())
}

func TestRespondStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("connection refused")
	client := &scriptedClient{errs: map[string]error{"a": boom}}
	r := NewResponder(client, "a", []string{"b"}, slog.Default())

	_, err := r.Respond(context.Background(), "hola")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, client.models())
}

func TestRespondExhaustedReturnsLastError(t *testing.T) {
	last := fmt.Errorf("model c: %w", ErrBadRequest)
	client := &scriptedClient{errs: map[string]error{
		"a": fmt.Errorf("model a: %w", ErrBadRequest),
		"c": last,
	}}
	r := NewResponder(client, "a", []string{"a", "c"}, slog.Default())

	_, err := r.Respond(context.Background(), "hola")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "model c")
	assert.Equal(t, []string{"a", "c"}, client.models())
}

func TestRespondNoModels(t *testing.T) {
	r := NewResponder(&scriptedClient{}, "", nil, slog.Default())
	_, err := r.Respond(context.Background(), "hola")
	assert.Error(t, err)
}

func TestTutorPrompt(t *testing.T) {
	p := TutorPrompt("laptop, mouse", "¿cómo conecto el mouse?")
	assert.Contains(t, p, "Detecciones: laptop, mouse\n")
	assert.Contains(t, p, "Nota del estudiante: ¿cómo conecto el mouse?\n")

	assert.Contains(t, TutorPrompt("", "x"), "Detecciones: sin objetos relevantes\n")
}
