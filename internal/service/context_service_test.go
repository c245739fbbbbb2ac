package service

import (
	"context"
	"testing"
	"time"

	"rules-chat/internal/domain"
)

func TestWindowContextService_History(t *testing.T) {
	repo := &mockMessageRepo{}
	base := time.Now().UTC()
	for i, c := range []string{"q1", "a1", "q2", "a2"} {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		_ = repo.Create(context.Background(), domain.Message{ConversationID: "c1", Role: role, Content: c, CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}

	svc := NewWindowContextService(repo, 3)
	got, err := svc.History(context.Background(), "c1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 3 || got[0].Content != "a1" || got[0].Role != "assistant" || got[2].Content != "a2" {
		t.Fatalf("unexpected window %+v", got)
	}

	empty, err := svc.History(context.Background(), " ")
	if err != nil || len(empty) != 0 {
		t.Fatalf("blank conversation should yield nothing, got %v %v", empty, err)
	}
}
