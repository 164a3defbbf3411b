package structured

import (
	"context"
	"errors"
	"testing"

	"github.com/mohammad-safakhou/concordance/provider"
)

type verdict struct {
	IsRelevant bool   `json:"is_relevant" jsonschema:"required"`
	Reasoning  string `json:"reasoning" jsonschema:"required"`
}

type scriptedModel struct {
	reply string
	err   error
	got   provider.ChatRequest
}

func (m *scriptedModel) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	m.got = req
	if m.err != nil {
		return provider.ChatResponse{}, m.err
	}
	return provider.ChatResponse{Content: m.reply}, nil
}

func TestGenerateDecodesValidReply(t *testing.T) {
	schema := MustFor[verdict]("ranking_result")
	model := &scriptedModel{reply: `{"is_relevant": true, "reasoning": "mentions ICHD-3"}`}

	out, err := Generate[verdict](context.Background(), model, schema, []provider.Message{{Role: provider.RoleUser, Content: "q"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !out.IsRelevant || out.Reasoning != "mentions ICHD-3" {
		t.Fatalf("unexpected verdict %#v", out)
	}
	if model.got.ResponseFormat == nil || model.got.ResponseFormat.Name != "ranking_result" {
		t.Fatalf("expected response format to be sent, got %#v", model.got.ResponseFormat)
	}
	if _, ok := model.got.ResponseFormat.Schema["$schema"]; ok {
		t.Fatalf("$schema must be stripped before sending")
	}
}

func TestDecodeUnwrapsFencedReply(t *testing.T) {
	schema := MustFor[verdict]("ranking_result")
	var out verdict
	payload := "Voici:\n```json\n{\"is_relevant\": false, \"reasoning\": \"off topic\"}\n```"
	if err := schema.Decode(payload, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.IsRelevant || out.Reasoning != "off topic" {
		t.Fatalf("unexpected verdict %#v", out)
	}
}

func TestDecodeRejectsSchemaMismatch(t *testing.T) {
	schema := MustFor[verdict]("ranking_result")
	var out verdict
	err := schema.Decode(`{"is_relevant": "yes"}`, &out)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Schema != "ranking_result" {
		t.Fatalf("expected DecodeError for ranking_result, got %#v", err)
	}
}

func TestGenerateForwardsModelError(t *testing.T) {
	schema := MustFor[verdict]("ranking_result")
	boom := errors.New("timeout")
	_, err := Generate[verdict](context.Background(), &scriptedModel{err: boom}, schema, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected model error, got %v", err)
	}
	if errors.Is(err, ErrDecode) {
		t.Fatalf("transport errors are not decode errors")
	}
}
